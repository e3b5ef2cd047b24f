package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("BUCKET_NAME", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8443", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.ItemStore)
	assert.Equal(t, BlobS3, cfg.Blob.Type)
	assert.Equal(t, time.Hour, cfg.SignedURLTTL)
	assert.ErrorContains(t, cfg.Validate(), "BUCKET_NAME is required")

	t.Setenv("BUCKET_NAME", "shopmart-images")
	cfg, err = Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsEverySetting(t *testing.T) {
	cfg := Default()
	cfg.ItemStore = StorePostgres
	cfg.SignedURLTTL = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "DATABASE_URL is required")
	assert.ErrorContains(t, err, "BUCKET_NAME is required")
	assert.ErrorContains(t, err, "SIGNED_URL_TTL must be positive")
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopmart.yaml")
	data := []byte(`
port: "9000"
item_store: postgres
database_url: postgres://file
signed_url_ttl: 15m
blob:
  type: s3
  bucket: from-file
  region: eu-west-1
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BUCKET_NAME", "from-env")
	t.Setenv("RATE_LIMIT_RPS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.ItemStore)
	assert.Equal(t, "postgres://file", cfg.DatabaseURL)
	assert.Equal(t, 15*time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, "from-env", cfg.Blob.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Blob.Region)
	assert.Equal(t, 5, cfg.RateLimitRPS)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SIGNED_URL_TTL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "SIGNED_URL_TTL")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError string
	}{
		{
			name:   "defaults with bucket: ok",
			mutate: func(*Config) {},
		},
		{
			name:      "s3 without bucket: error",
			mutate:    func(c *Config) { c.Blob.Bucket = "" },
			wantError: "BUCKET_NAME is required for the s3 image store",
		},
		{
			name:      "gcs without bucket: error",
			mutate:    func(c *Config) { c.Blob = Blob{Type: BlobGCS} },
			wantError: "GCS_BUCKET or BUCKET_NAME is required",
		},
		{
			name:   "gcs falls back to bucket: ok",
			mutate: func(c *Config) { c.Blob.Type = BlobGCS },
		},
		{
			name:   "memory images need no bucket: ok",
			mutate: func(c *Config) { c.Blob = Blob{Type: BlobMemory} },
		},
		{
			name:      "unknown blob type: error",
			mutate:    func(c *Config) { c.Blob.Type = "ftp" },
			wantError: `unsupported blob storage type "ftp"`,
		},
		{
			name:      "postgres without url: error",
			mutate:    func(c *Config) { c.ItemStore = StorePostgres },
			wantError: "DATABASE_URL is required",
		},
		{
			name:      "mongo without uri: error",
			mutate:    func(c *Config) { c.ItemStore = StoreMongo },
			wantError: "MONGO_URI is required",
		},
		{
			name:      "unknown store: error",
			mutate:    func(c *Config) { c.ItemStore = "sqlite" },
			wantError: `unsupported item store "sqlite"`,
		},
		{
			name:      "non-positive ttl: error",
			mutate:    func(c *Config) { c.SignedURLTTL = 0 },
			wantError: "SIGNED_URL_TTL must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Blob.Bucket = "shopmart-images"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantError != "" {
				assert.ErrorContains(t, err, tt.wantError)
				return
			}
			assert.NoError(t, err)
		})
	}
}
