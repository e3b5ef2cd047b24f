// Package api serves the catalog and checkout over HTTP.
package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"shopmart/pkg/blob"
	"shopmart/pkg/checkout"
	"shopmart/pkg/idempotency"
	"shopmart/pkg/item"
	"shopmart/pkg/logger"
	"shopmart/pkg/metrics"
)

//go:embed templates/item.gohtml
var templateFS embed.FS

// Catalog is the read side of the item repository.
type Catalog interface {
	List(ctx context.Context) ([]item.Item, error)
	Get(ctx context.Context, id string) (item.Item, error)
}

// Deps are the collaborators of a Server. Items, Engine and Images are
// required; the rest are optional.
type Deps struct {
	Items       Catalog
	Engine      *checkout.Engine
	Images      blob.Store
	URLTTL      time.Duration
	Idempotency idempotency.Store
	Metrics     *metrics.ServerMetrics
	Gatherer    prometheus.Gatherer
	Tracer      trace.Tracer
	Log         *logger.Logger
	RateLimit   RateLimit
}

// Server handles the REST surface.
type Server struct {
	items   Catalog
	engine  *checkout.Engine
	images  blob.Store
	urlTTL  time.Duration
	idem    idempotency.Store
	metrics *metrics.ServerMetrics
	gather  prometheus.Gatherer
	tracer  trace.Tracer
	log     *logger.Logger
	limiter *RateLimiter
	page    *template.Template
}

// New validates deps and parses the item page template.
func New(d Deps) (*Server, error) {
	if d.Items == nil || d.Engine == nil || d.Images == nil {
		return nil, errors.New("api: items, engine and images are required")
	}

	page, err := template.ParseFS(templateFS, "templates/item.gohtml")
	if err != nil {
		return nil, err
	}

	s := &Server{
		items:   d.Items,
		engine:  d.Engine,
		images:  d.Images,
		urlTTL:  d.URLTTL,
		idem:    d.Idempotency,
		metrics: d.Metrics,
		gather:  d.Gatherer,
		tracer:  d.Tracer,
		log:     d.Log,
		page:    page,
	}
	if s.urlTTL <= 0 {
		s.urlTTL = blob.DefaultURLTTL
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("shopmart")
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if d.RateLimit.RPS > 0 {
		s.limiter = NewRateLimiter(d.RateLimit)
	}
	return s, nil
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.traceMiddleware)
	if s.metrics != nil {
		r.Use(s.metricsMiddleware)
	}
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	items := r.PathPrefix("/items").Subrouter()
	items.HandleFunc("", s.listItemsHandler).Methods(http.MethodGet)
	items.HandleFunc("", s.checkoutHandler).Methods(http.MethodPut)
	items.HandleFunc("/{id}", s.getItemHandler).Methods(http.MethodGet)

	if s.gather != nil {
		r.Handle("/metrics", metrics.Handler(s.gather)).Methods(http.MethodGet)
	}
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	return corsMiddleware(r)
}
