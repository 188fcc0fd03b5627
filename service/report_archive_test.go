package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockS3 struct {
	s3iface.S3API
	mock.Mock
}

func (m *MockS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestArchiveConfig_Enabled(t *testing.T) {
	full := ArchiveConfig{Region: "us-east-1", Bucket: "reports", AccessKey: "ak", SecretKey: "sk"}
	assert.True(t, full.Enabled())

	noBucket := full
	noBucket.Bucket = ""
	assert.False(t, noBucket.Enabled())

	noSecret := full
	noSecret.SecretKey = ""
	assert.False(t, noSecret.Enabled())

	_, err := NewS3Archiver(noBucket)
	assert.Error(t, err)
}

func TestS3Archiver_ReportKey(t *testing.T) {
	a := NewS3ArchiverWithClient(nil, "reports", "")
	at := time.Date(2025, time.March, 5, 7, 4, 5, 123, time.FixedZone("CST", -6*3600))
	assert.Equal(t, "runs/action-engine/2025/03/05/130405.000000123.json", a.ReportKey("action-engine", at))

	a = NewS3ArchiverWithClient(nil, "reports", "ops/history")
	assert.Equal(t, "ops/history/automations/2025/03/05/120000.000000000.json", a.ReportKey("automations", FixedTime))
}

func TestS3Archiver_ArchiveRun(t *testing.T) {
	client := &MockS3{}
	var uploaded []byte
	client.On("PutObjectWithContext", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.StringValue(in.Bucket) == "reports" &&
			aws.StringValue(in.Key) == "runs/automations/2025/03/05/120000.000000000.json" &&
			aws.StringValue(in.ContentType) == "application/json"
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		uploaded, _ = io.ReadAll(in.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	a := NewS3ArchiverWithClient(client, "reports", "")
	report := ProcessResult{Processed: 2, Errors: []string{}, Total: 2}
	require.NoError(t, a.ArchiveRun(context.Background(), "automations", report, FixedTime))
	client.AssertExpectations(t)

	var got ProcessResult
	require.NoError(t, json.Unmarshal(uploaded, &got))
	assert.Equal(t, report, got)
}

func TestS3Archiver_UploadFailure(t *testing.T) {
	client := &MockS3{}
	client.On("PutObjectWithContext", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	a := NewS3ArchiverWithClient(client, "reports", "")
	err := a.ArchiveRun(context.Background(), "automations", ProcessResult{}, FixedTime)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
