// Package config loads server configuration from an optional YAML file and
// environment variables. Environment variables always win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Item store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Blob store backends.
const (
	BlobS3     = "s3"
	BlobGCS    = "gcs"
	BlobMemory = "memory"
)

// Config holds server configuration.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	TLSCert  string `yaml:"tls_cert"`
	TLSKey   string `yaml:"tls_key"`

	ItemStore     string `yaml:"item_store"`
	DatabaseURL   string `yaml:"database_url"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	RedisAddr     string `yaml:"redis_addr"`
	SeedFile      string `yaml:"seed_file"`

	Blob         Blob          `yaml:"blob"`
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`

	KafkaBrokers string `yaml:"kafka_brokers"`
	KafkaTopic   string `yaml:"kafka_topic"`

	OTELHost        string  `yaml:"otel_host"`
	OTELProbability float64 `yaml:"otel_probability"`

	RateLimitRPS   int `yaml:"rate_limit_rps"`
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// Blob configures the image object store.
type Blob struct {
	Type      string `yaml:"type"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	GCSBucket string `yaml:"gcs_bucket"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:            "8443",
		LogLevel:        "INFO",
		ItemStore:       StoreMemory,
		MongoDatabase:   "shopmart",
		Blob:            Blob{Type: BlobS3, Region: "us-east-1"},
		SignedURLTTL:    time.Hour,
		KafkaTopic:      "shopmart.stock",
		OTELProbability: 1.0,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.TLSCert, "TLS_CERT")
	setString(&c.TLSKey, "TLS_KEY")
	setString(&c.ItemStore, "ITEM_STORE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.MongoDatabase, "MONGO_DATABASE")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.SeedFile, "SEED_FILE")
	setString(&c.Blob.Type, "BLOB_STORAGE_TYPE")
	setString(&c.Blob.Bucket, "BUCKET_NAME")
	setString(&c.Blob.Region, "BUCKET_REGION")
	setString(&c.Blob.AccessKey, "ACCESS_KEY")
	setString(&c.Blob.SecretKey, "SECRET_ACCESS_KEY")
	setString(&c.Blob.Endpoint, "S3_ENDPOINT")
	setString(&c.Blob.Prefix, "BLOB_PREFIX")
	setString(&c.Blob.GCSBucket, "GCS_BUCKET")
	setString(&c.KafkaBrokers, "KAFKA_BROKERS")
	setString(&c.KafkaTopic, "KAFKA_TOPIC")
	setString(&c.OTELHost, "OTEL_HOST")

	if v := env("SIGNED_URL_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SIGNED_URL_TTL: %w", err)
		}
		c.SignedURLTTL = d
	}
	if v := env("OTEL_PROBABILITY"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("OTEL_PROBABILITY: %w", err)
		}
		c.OTELProbability = p
	}
	if err := setInt(&c.RateLimitRPS, "RATE_LIMIT_RPS"); err != nil {
		return err
	}
	return setInt(&c.RateLimitBurst, "RATE_LIMIT_BURST")
}

// Validate reports settings the chosen backends cannot run without.
func (c Config) Validate() error {
	var errs []error

	switch c.ItemStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres item store"))
		}
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo item store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported item store %q", c.ItemStore))
	}

	switch c.Blob.Type {
	case "", BlobS3:
		if c.Blob.Bucket == "" {
			errs = append(errs, errors.New("BUCKET_NAME is required for the s3 image store"))
		}
	case BlobGCS:
		if c.Blob.GCSBucket == "" && c.Blob.Bucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET or BUCKET_NAME is required for the gcs image store"))
		}
	case BlobMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported blob storage type %q", c.Blob.Type))
	}

	if c.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("SIGNED_URL_TTL must be positive"))
	}
	if c.OTELProbability < 0 || c.OTELProbability > 1 {
		errs = append(errs, errors.New("OTEL_PROBABILITY must be within [0, 1]"))
	}

	return errors.Join(errs...)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := env(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
