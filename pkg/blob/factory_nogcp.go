//go:build !gcp

package blob

import (
	"context"
	"fmt"

	"shopmart/pkg/config"
)

func newGCSStore(context.Context, config.Blob) (Store, error) {
	return nil, fmt.Errorf("GCS storage is not enabled in this build (use -tags gcp)")
}
