//go:build gcp

package blob

import (
	"context"

	"shopmart/pkg/config"
)

func newGCSStore(ctx context.Context, cfg config.Blob) (Store, error) {
	bucket := cfg.GCSBucket
	if bucket == "" {
		bucket = cfg.Bucket
	}
	return NewGCSStore(ctx, GCSStoreConfig{Bucket: bucket, Prefix: cfg.Prefix})
}
