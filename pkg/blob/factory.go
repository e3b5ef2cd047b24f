package blob

import (
	"context"
	"fmt"

	"shopmart/pkg/config"
)

// Backend types accepted by NewStore.
const (
	TypeS3     = config.BlobS3
	TypeGCS    = config.BlobGCS
	TypeMemory = config.BlobMemory
)

// NewStore creates the image store selected by cfg.Type. S3 is the default.
func NewStore(ctx context.Context, cfg config.Blob) (Store, error) {
	switch cfg.Type {
	case "", TypeS3:
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:    cfg.Bucket,
			Region:    region,
			Endpoint:  cfg.Endpoint,
			Prefix:    cfg.Prefix,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	case TypeGCS:
		return newGCSStore(ctx, cfg)
	case TypeMemory:
		return NewMemoryStore(""), nil
	default:
		return nil, fmt.Errorf("unsupported blob storage type: %s", cfg.Type)
	}
}
