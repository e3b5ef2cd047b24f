// Package events publishes stock movements to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"shopmart/pkg/checkout"
)

// TypeStockSettled is the type of events emitted after a checkout.
const TypeStockSettled = "stock.settled"

// Line is one settled item in a StockSettled event.
type Line struct {
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// StockSettled is published once per checkout that moved stock.
type StockSettled struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Lines     []Line    `json:"lines"`
	Total     string    `json:"total"`
}

// NewStockSettled builds the event for r.
func NewStockSettled(r checkout.Receipt, at time.Time) StockSettled {
	ev := StockSettled{
		EventID:   uuid.NewString(),
		Type:      TypeStockSettled,
		CreatedAt: at.UTC(),
		Lines:     make([]Line, 0, len(r.Lines)),
		Total:     r.Total.StringFixed(2),
	}
	for _, l := range r.Lines {
		ev.Lines = append(ev.Lines, Line{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice.StringFixed(2)})
	}
	return ev
}

// Client holds the broker list.
type Client struct {
	Brokers []string
}

// NewClient parses a comma separated broker list.
func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

// Enabled reports whether any broker is configured.
func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

// Writer flush settings. Events are written one per checkout request, so
// the writer flushes every message instead of waiting for a batch.
const (
	writerBatchSize    = 1
	writerBatchTimeout = 5 * time.Millisecond
	writerWriteTimeout = 2 * time.Second
)

// NewWriter returns a writer for topic.
func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    writerBatchSize,
		BatchTimeout: writerBatchTimeout,
		WriteTimeout: writerWriteTimeout,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublishJSON writes payload as a single keyed message.
func PublishJSON(ctx context.Context, w messageWriter, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data, Time: time.Now().UTC()})
}

// Publisher sends StockSettled events. It implements checkout.Notifier.
type Publisher struct {
	w   messageWriter
	now func() time.Time
}

// NewPublisher returns a publisher writing to topic on the client's brokers.
func NewPublisher(c *Client, topic string) *Publisher {
	return &Publisher{w: c.NewWriter(topic), now: time.Now}
}

// NotifySettled publishes the receipt as a StockSettled event keyed by its id.
func (p *Publisher) NotifySettled(ctx context.Context, r checkout.Receipt) error {
	ev := NewStockSettled(r, p.now())
	if err := PublishJSON(ctx, p.w, ev.EventID, ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

// NotifySettled implements checkout.Notifier.
func (Noop) NotifySettled(context.Context, checkout.Receipt) error { return nil }

// Close implements io.Closer.
func (Noop) Close() error { return nil }

// Notifier is a checkout.Notifier that must be closed on shutdown.
type Notifier interface {
	checkout.Notifier
	Close() error
}

// New returns a Kafka publisher, or Noop when brokersCSV lists no brokers.
func New(brokersCSV, topic string) Notifier {
	c := NewClient(brokersCSV)
	if !c.Enabled() {
		return Noop{}
	}
	return NewPublisher(c, topic)
}
