// Package checkout settles carts against item stock: the whole cart is
// validated against one catalog snapshot and then applied in a single
// all-or-nothing decrement.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"shopmart/pkg/item"
	"shopmart/pkg/logger"
	"shopmart/pkg/otel"
)

// Settlement results reported to a Recorder.
const (
	ResultOK                = "ok"
	ResultInsufficientStock = "insufficient_stock"
	ResultMalformed         = "malformed"
	ResultDependencyError   = "dependency_error"
)

// Settlement is the outcome of a successful checkout.
type Settlement struct {
	Items   []item.Item
	Receipt Receipt
}

// Recorder counts settlement outcomes.
type Recorder interface {
	SettlementResult(result string)
}

// Notifier is told about every settlement that changed stock.
type Notifier interface {
	NotifySettled(ctx context.Context, r Receipt) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithNotifier sets the settlement notifier. Notification failures are
// logged and do not fail the checkout.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// Engine settles carts. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	store    item.StockStore
	log      *logger.Logger
	recorder Recorder
	notifier Notifier
}

// NewEngine returns an engine settling against store.
func NewEngine(store item.StockStore, opts ...Option) *Engine {
	e := &Engine{store: store, log: logger.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settle validates every line of cart against the current stock and, if all
// of them fit, decrements stock for the whole cart at once. Cart ids unknown
// to the store are ignored. On success the refreshed catalog is returned.
func (e *Engine) Settle(ctx context.Context, cart Cart) (Settlement, error) {
	ctx, span := otel.AddSpan(ctx, "checkout.Settle", attribute.Int("cart.lines", len(cart)))
	defer span.End()

	s, err := e.settle(ctx, cart)
	result := resultOf(err)
	e.record(result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		if IsValidation(err) {
			e.log.Info(ctx, "checkout rejected", "result", result, "error", err)
		} else {
			e.log.Error(ctx, "checkout failed", "result", result, "error", err)
		}
		return Settlement{}, err
	}

	span.SetAttributes(attribute.Int("receipt.lines", len(s.Receipt.Lines)))
	e.log.Info(ctx, "checkout settled", "lines", len(s.Receipt.Lines), "total", s.Receipt.Total.StringFixed(2))

	if e.notifier != nil && len(s.Receipt.Lines) > 0 {
		if err := e.notifier.NotifySettled(ctx, s.Receipt); err != nil {
			e.log.Warn(ctx, "settlement notification failed", "error", err)
		}
	}
	return s, nil
}

func (e *Engine) settle(ctx context.Context, cart Cart) (Settlement, error) {
	if err := cart.Validate(); err != nil {
		return Settlement{}, err
	}

	snapshot, err := e.store.List(ctx)
	if err != nil {
		return Settlement{}, &DependencyError{Op: OpRead, Err: err}
	}

	decrements, receipt, err := plan(snapshot, cart)
	if err != nil {
		return Settlement{}, err
	}
	for _, l := range receipt.Mismatches() {
		e.log.Warn(ctx, "client price differs from stored price",
			"item_id", l.ItemID, "client_price", *l.ClientPrice, "price", l.UnitPrice.String())
	}

	if len(decrements) == 0 {
		return Settlement{Items: snapshot, Receipt: receipt}, nil
	}

	if err := e.store.DecrementStock(ctx, decrements); err != nil {
		if errors.Is(err, item.ErrInsufficientStock) {
			return Settlement{}, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}
		return Settlement{}, &DependencyError{Op: OpWrite, Err: err}
	}

	refreshed, err := e.store.List(ctx)
	if err != nil {
		return Settlement{}, &DependencyError{Op: OpRefresh, Err: err}
	}
	return Settlement{Items: refreshed, Receipt: receipt}, nil
}

// plan checks every cart line against the snapshot before anything is
// written. Decrements and receipt lines follow snapshot order.
func plan(snapshot []item.Item, cart Cart) ([]item.Decrement, Receipt, error) {
	var (
		decrements []item.Decrement
		receipt    = Receipt{Total: decimal.Zero}
	)
	for _, it := range snapshot {
		line, ok := cart[it.ID]
		if !ok {
			continue
		}
		if line.Quantity > it.Stock {
			return nil, Receipt{}, fmt.Errorf("%w: %s wants %d, %d left", ErrInsufficientStock, it.ID, line.Quantity, it.Stock)
		}
		decrements = append(decrements, item.Decrement{ID: it.ID, Quantity: line.Quantity})

		rl := newReceiptLine(it, line)
		receipt.Lines = append(receipt.Lines, rl)
		receipt.Total = receipt.Total.Add(rl.Subtotal())
	}
	return decrements, receipt, nil
}

func (e *Engine) record(result string) {
	if e.recorder != nil {
		e.recorder.SettlementResult(result)
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrInsufficientStock):
		return ResultInsufficientStock
	case errors.Is(err, ErrMalformedCart):
		return ResultMalformed
	default:
		return ResultDependencyError
	}
}
