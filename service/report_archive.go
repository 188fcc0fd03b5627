package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// ArchiveConfig locates the S3 compatible bucket run reports are written to.
type ArchiveConfig struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// Enabled reports whether enough is configured to build an archiver.
func (c ArchiveConfig) Enabled() bool {
	return c.Bucket != "" && c.Region != "" && c.AccessKey != "" && c.SecretKey != ""
}

// S3Archiver writes run reports as JSON objects.
type S3Archiver struct {
	client s3iface.S3API
	bucket string
	prefix string
}

func NewS3Archiver(cfg ArchiveConfig) (*S3Archiver, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing required S3 archive configuration")
	}
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewS3ArchiverWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

func NewS3ArchiverWithClient(client s3iface.S3API, bucket, prefix string) *S3Archiver {
	if prefix == "" {
		prefix = "runs"
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// ReportKey is the object key for a report of the given kind started at at.
func (a *S3Archiver) ReportKey(kind string, at time.Time) string {
	at = at.UTC()
	return path.Join(a.prefix, kind, at.Format("2006/01/02"), at.Format("150405.000000000")+".json")
}

func (a *S3Archiver) ArchiveRun(ctx context.Context, kind string, report interface{}, at time.Time) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	key := a.ReportKey(kind, at)
	_, err = a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.Printf("[ArchiveRun] S3 upload error: %v", err)
		return fmt.Errorf("failed to upload run report to S3: %w", err)
	}
	log.Printf("[ArchiveRun] Report stored at s3://%s/%s", a.bucket, key)
	return nil
}
