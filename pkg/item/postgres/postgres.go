package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"shopmart/pkg/item"
)

// Schema creates the items table. Stock and price carry the same
// non-negative constraints the item schema enforces.
const Schema = `CREATE TABLE IF NOT EXISTS items (
	id          TEXT PRIMARY KEY,
	item_name   TEXT NOT NULL,
	description TEXT NOT NULL,
	stock       INTEGER NOT NULL CHECK (stock >= 0),
	price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
	category    TEXT NOT NULL
)`

const uniqueViolation = "23505"

// Repository persists items in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the items table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create items table: %w", err)
	}
	return nil
}

// Create inserts a new item.
func (r *Repository) Create(ctx context.Context, it item.Item) error {
	if err := item.Validate(it); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO items (id,item_name,description,stock,price,category) VALUES ($1,$2,$3,$4,$5,$6)",
		it.ID, it.ItemName, it.Description, it.Stock, it.Price, it.Category)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return item.ErrAlreadyExists
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// Get retrieves an item by ID.
func (r *Repository) Get(ctx context.Context, id string) (item.Item, error) {
	var it item.Item
	err := r.db.QueryRowContext(ctx,
		"SELECT id,item_name,description,stock,price,category FROM items WHERE id=$1", id).
		Scan(&it.ID, &it.ItemName, &it.Description, &it.Stock, &it.Price, &it.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Item{}, item.ErrNotFound
	}
	if err != nil {
		return item.Item{}, fmt.Errorf("select item: %w", err)
	}
	return it, nil
}

// List fetches all items ordered by ID.
func (r *Repository) List(ctx context.Context) ([]item.Item, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id,item_name,description,stock,price,category FROM items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	items := []item.Item{}
	for rows.Next() {
		var it item.Item
		if err := rows.Scan(&it.ID, &it.ItemName, &it.Description, &it.Stock, &it.Price, &it.Category); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Update updates an existing item.
func (r *Repository) Update(ctx context.Context, it item.Item) error {
	if err := item.Validate(it); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE items SET item_name=$2, description=$3, stock=$4, price=$5, category=$6 WHERE id=$1",
		it.ID, it.ItemName, it.Description, it.Stock, it.Price, it.Category)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return expectOneRow(res, item.ErrNotFound)
}

// Delete removes an item by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM items WHERE id=$1", id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectOneRow(res, item.ErrNotFound)
}

// DecrementStock applies all decrements in one transaction. Each UPDATE only
// matches while stock covers the quantity, so a concurrent checkout that got
// there first makes the guard miss and the whole batch rolls back.
func (r *Repository) DecrementStock(ctx context.Context, decrements []item.Decrement) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, d := range decrements {
			if d.Quantity < 1 {
				return fmt.Errorf("%w: quantity %d for %s", item.ErrInvalid, d.Quantity, d.ID)
			}
			res, err := tx.ExecContext(ctx,
				"UPDATE items SET stock=stock-$2 WHERE id=$1 AND stock>=$2", d.ID, d.Quantity)
			if err != nil {
				return fmt.Errorf("decrement %s: %w", d.ID, err)
			}
			if err := expectOneRow(res, item.ErrInsufficientStock); err != nil {
				return fmt.Errorf("decrement %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

func expectOneRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}
