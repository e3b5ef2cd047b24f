// Command seed loads a catalog file into the configured item store and
// uploads the item images it references.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"shopmart/pkg/app"
	"shopmart/pkg/blob"
	"shopmart/pkg/config"
	"shopmart/pkg/logger"
	"shopmart/pkg/seed"
)

func main() {
	catalogPath := flag.String("catalog", "catalog.yaml", "catalog file to load")
	skipImages := flag.Bool("skip-images", false, "only write items, do not upload images")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	log := logger.New(os.Stdout, logger.LevelInfo, "shopmart-seed", nil)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, log, *catalogPath, *skipImages); err != nil {
		log.Error(ctx, "seed failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, path string, skipImages bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	catalog, err := app.LoadCatalog(cfg, path)
	if err != nil {
		return err
	}

	repo, closeRepo, err := app.OpenRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo(context.Background())

	var images blob.Store
	if !skipImages {
		images, err = blob.NewStore(ctx, cfg.Blob)
		if err != nil {
			return fmt.Errorf("open image store: %w", err)
		}
		if c, ok := images.(io.Closer); ok {
			defer c.Close()
		}
	}

	res, err := seed.Apply(ctx, repo, images, *catalog)
	if err != nil {
		return err
	}
	log.Info(ctx, "catalog seeded",
		"store", cfg.ItemStore,
		"created", res.Created,
		"updated", res.Updated,
		"images", res.Uploaded,
	)
	return nil
}
