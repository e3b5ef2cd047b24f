// Package app wires configuration to concrete stores and runs the API.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/trace"

	"shopmart/pkg/api"
	"shopmart/pkg/blob"
	"shopmart/pkg/blob/urlcache"
	"shopmart/pkg/checkout"
	"shopmart/pkg/config"
	"shopmart/pkg/events"
	"shopmart/pkg/idempotency"
	"shopmart/pkg/item"
	"shopmart/pkg/item/memory"
	"shopmart/pkg/item/mongo"
	"shopmart/pkg/item/postgres"
	"shopmart/pkg/logger"
	"shopmart/pkg/metrics"
	"shopmart/pkg/otel"
	"shopmart/pkg/seed"
)

const serviceName = "shopmart"

// Stack holds the resources opened for one process.
type Stack struct {
	Items    item.Repository
	Images   blob.Store
	Redis    *redis.Client
	Notifier events.Notifier

	closers []func(context.Context) error
}

func (s *Stack) onClose(fn func(context.Context) error) {
	s.closers = append(s.closers, fn)
}

// Close releases resources in reverse order of opening.
func (s *Stack) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Open connects every backend named by cfg. On error, anything already
// opened is closed.
func Open(ctx context.Context, cfg config.Config, log *logger.Logger) (_ *Stack, err error) {
	s := &Stack{}
	defer func() {
		if err != nil {
			err = errors.Join(err, s.Close(ctx))
		}
	}()

	catalog, err := LoadSeed(cfg)
	if err != nil {
		return nil, err
	}

	items, closeItems, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.Items = items
	s.onClose(closeItems)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s.onClose(func(context.Context) error { return rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		s.Redis = rdb
	}

	images, err := blob.NewStore(ctx, cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open image store: %w", err)
	}
	if c, ok := images.(io.Closer); ok {
		s.onClose(func(context.Context) error { return c.Close() })
	}
	if s.Redis != nil {
		images = urlcache.New(images, s.Redis, cfg.SignedURLTTL, log)
	}
	s.Images = images

	s.Notifier = events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	s.onClose(func(context.Context) error { return s.Notifier.Close() })

	if catalog != nil {
		res, err := seed.Apply(ctx, s.Items, s.Images, *catalog)
		if err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		log.Info(ctx, "catalog seeded", "created", res.Created, "updated", res.Updated, "images", res.Uploaded)
	}

	return s, nil
}

// LoadSeed loads cfg.SeedFile, or returns nil when none is set. Persistent
// stores only accept catalogs whose entries all carry an id.
func LoadSeed(cfg config.Config) (*seed.Catalog, error) {
	if cfg.SeedFile == "" {
		return nil, nil
	}
	return LoadCatalog(cfg, cfg.SeedFile)
}

// LoadCatalog loads the catalog at path for the store selected by cfg.
func LoadCatalog(cfg config.Config, path string) (*seed.Catalog, error) {
	c, err := seed.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if Persistent(cfg) {
		if err := c.RequireIDs(); err != nil {
			return nil, fmt.Errorf("seed %s into %s store: %w", path, cfg.ItemStore, err)
		}
	}
	return &c, nil
}

// Persistent reports whether the configured item store outlives the process.
func Persistent(cfg config.Config) bool {
	return cfg.ItemStore != "" && cfg.ItemStore != config.StoreMemory
}

// OpenRepository opens the item store selected by cfg.ItemStore.
func OpenRepository(ctx context.Context, cfg config.Config) (item.Repository, func(context.Context) error, error) {
	switch cfg.ItemStore {
	case "", config.StoreMemory:
		return memory.New(), func(context.Context) error { return nil }, nil

	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, nil, errors.Join(fmt.Errorf("db ping: %w", err), db.Close())
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}
		return postgres.New(db), func(context.Context) error { return db.Close() }, nil

	case config.StoreMongo:
		client, err := mongodrv.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo.Connect: %w", err)
		}
		disconnect := func(ctx context.Context) error { return client.Disconnect(ctx) }
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, errors.Join(fmt.Errorf("mongo ping: %w", err), disconnect(ctx))
		}
		repo := mongo.New(client, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, nil, errors.Join(err, disconnect(ctx))
		}
		return repo, disconnect, nil

	default:
		return nil, nil, fmt.Errorf("unsupported item store %q", cfg.ItemStore)
	}
}

// NewServer builds the API over an opened stack.
func NewServer(cfg config.Config, s *Stack, log *logger.Logger, tracer trace.Tracer) (*api.Server, *prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg, "api")

	engine := checkout.NewEngine(s.Items,
		checkout.WithLogger(log),
		checkout.WithRecorder(m),
		checkout.WithNotifier(s.Notifier),
	)

	var idem idempotency.Store = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	if s.Redis != nil {
		idem = idempotency.NewRedisStore(s.Redis, idempotency.DefaultTTL)
	}

	srv, err := api.New(api.Deps{
		Items:       s.Items,
		Engine:      engine,
		Images:      s.Images,
		URLTTL:      cfg.SignedURLTTL,
		Idempotency: idem,
		Metrics:     m,
		Gatherer:    reg,
		Tracer:      tracer,
		Log:         log,
		RateLimit:   api.RateLimit{RPS: float64(cfg.RateLimitRPS), Burst: cfg.RateLimitBurst},
	})
	if err != nil {
		return nil, nil, err
	}
	return srv, reg, nil
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
// If ready is non-nil it receives the listening address.
func Run(ctx context.Context, cfg config.Config, log *logger.Logger, ready chan<- string) error {
	tp, shutdownTracing, err := otel.InitTracing(log, otel.Config{
		ServiceName: serviceName,
		Host:        cfg.OTELHost,
		Probability: cfg.OTELProbability,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error(context.Background(), "shutdown tracing", "error", err)
		}
	}()

	stack, err := Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(context.Background()); err != nil {
			log.Error(context.Background(), "close resources", "error", err)
		}
	}()

	srv, _, err := NewServer(cfg, stack, log, tp.Tracer(serviceName))
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			err = httpServer.ServeTLS(ln, cfg.TLSCert, cfg.TLSKey)
		} else {
			err = httpServer.Serve(ln)
		}
		errCh <- err
	}()

	log.Info(ctx, "listening", "addr", ln.Addr().String(), "tls", cfg.TLSCert != "")
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped unexpectedly: %w", err)
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
