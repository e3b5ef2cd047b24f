package item

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Item is a catalog entry.
type Item struct {
	ID          string  `json:"id" bson:"id"`
	ItemName    string  `json:"itemName" bson:"itemName"`
	Description string  `json:"description" bson:"description"`
	Stock       int     `json:"stock" bson:"stock"`
	Price       float64 `json:"price" bson:"price"`
	Category    string  `json:"category" bson:"category"`
}

// NewID returns a fresh item id.
func NewID() string {
	return uuid.NewString()
}

// New returns an item with a freshly assigned id.
func New(name, description, category string, stock int, price float64) Item {
	return Item{
		ID:          NewID(),
		ItemName:    name,
		Description: description,
		Stock:       stock,
		Price:       price,
		Category:    category,
	}
}

// Decrement asks a store to lower an item's stock by Quantity.
type Decrement struct {
	ID       string
	Quantity int
}

// StockStore is the part of a repository checkout settlement depends on.
type StockStore interface {
	List(ctx context.Context) ([]Item, error)
	// DecrementStock applies every decrement or none of them. Each one is
	// guarded by "stock >= quantity"; a failed guard yields ErrInsufficientStock.
	DecrementStock(ctx context.Context, decrements []Decrement) error
}

// Repository defines behavior for persisting items.
type Repository interface {
	StockStore
	Create(ctx context.Context, it Item) error
	Get(ctx context.Context, id string) (Item, error)
	Update(ctx context.Context, it Item) error
	Delete(ctx context.Context, id string) error
}

var (
	// ErrNotFound indicates the requested item does not exist.
	ErrNotFound = errors.New("item not found")
	// ErrAlreadyExists is returned when creating an item whose id is taken.
	ErrAlreadyExists = errors.New("item already exists")
	// ErrInvalid wraps schema violations.
	ErrInvalid = errors.New("invalid item")
	// ErrInsufficientStock is returned when a guarded decrement would drive
	// stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)
