package initializers

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Itish41/FranchiseOps/rules"
	services "github.com/Itish41/FranchiseOps/service"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when CONFIG_FILE is not set and the file exists.
const DefaultConfigFile = "config.yaml"

// EngineConfig tunes the action engine, the automation processor and the
// in-process scheduler.
type EngineConfig struct {
	ActionExpiry       time.Duration `yaml:"action_expiry"`
	Concurrency        int           `yaml:"concurrency"`
	BatchSize          int           `yaml:"batch_size"`
	ActionInterval     time.Duration `yaml:"action_interval"`
	AutomationInterval time.Duration `yaml:"automation_interval"`
}

type Config struct {
	DatabaseURL      string                 `yaml:"-"`
	Port             string                 `yaml:"port"`
	CronSecret       string                 `yaml:"-"`
	OrganizationID   string                 `yaml:"organization_id"`
	DBDebug          bool                   `yaml:"db_debug"`
	ElasticsearchURL string                 `yaml:"elasticsearch_url"`
	ActionIndex      string                 `yaml:"action_index"`
	Archive          services.ArchiveConfig `yaml:"archive"`
	Engine           EngineConfig           `yaml:"engine"`
	Rules            rules.Thresholds       `yaml:"rules"`
}

// DefaultConfig is the configuration before any file or environment is applied.
func DefaultConfig() Config {
	return Config{
		Port: "8080",
		Engine: EngineConfig{
			ActionExpiry:       services.DefaultActionExpiry,
			Concurrency:        4,
			BatchSize:          services.DefaultBatchSize,
			ActionInterval:     time.Hour,
			AutomationInterval: time.Minute,
		},
		Rules: rules.DefaultThresholds,
	}
}

// LoadConfig layers .env, the YAML config file and environment variables, in
// that order of increasing precedence.
func LoadConfig() (Config, error) {
	if err := LoadEnv(); err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = ParseConfig(data, cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		log.Printf("Config file %s loaded", path)
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	cfg.Rules = cfg.Rules.WithDefaults()
	return cfg, nil
}

// ParseConfig decodes YAML over base.
func ParseConfig(data []byte, base Config) (Config, error) {
	if err := yaml.Unmarshal(data, &base); err != nil {
		return Config{}, err
	}
	return base, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.DatabaseURL, "DIRECT_URL")
	setString(&cfg.Port, "PORT")
	setString(&cfg.CronSecret, "CRON_SECRET")
	setString(&cfg.OrganizationID, "ORGANIZATION_ID")
	setString(&cfg.ElasticsearchURL, "ELASTICSEARCH_URL")
	setString(&cfg.Archive.Region, "SUPABASE_REGION")
	setString(&cfg.Archive.Endpoint, "SUPABASE_S3_ENDPOINT")
	setString(&cfg.Archive.AccessKey, "SUPABASE_ACCESS_KEY")
	setString(&cfg.Archive.SecretKey, "SUPABASE_SECRET_KEY")
	setString(&cfg.Archive.Bucket, "SUPABASE_BUCKET")

	if v := getenv("DB_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DB_DEBUG: %w", err)
		}
		cfg.DBDebug = debug
	}
	return nil
}
