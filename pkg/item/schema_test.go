package item

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := New("Kettle", "Boils water", "kitchen", 3, 24.5)

	tests := []struct {
		name      string
		mutate    func(*Item)
		wantError string
	}{
		{
			name:   "valid item: ok",
			mutate: func(*Item) {},
		},
		{
			name:   "zero stock and price: ok",
			mutate: func(it *Item) { it.Stock, it.Price = 0, 0 },
		},
		{
			name:      "empty name: error",
			mutate:    func(it *Item) { it.ItemName = "" },
			wantError: "itemName",
		},
		{
			name:      "empty description: error",
			mutate:    func(it *Item) { it.Description = "" },
			wantError: "description",
		},
		{
			name:      "empty category: error",
			mutate:    func(it *Item) { it.Category = "" },
			wantError: "category",
		},
		{
			name:      "negative stock: error",
			mutate:    func(it *Item) { it.Stock = -1 },
			wantError: "stock",
		},
		{
			name:      "negative price: error",
			mutate:    func(it *Item) { it.Price = -0.01 },
			wantError: "price",
		},
		{
			name:      "missing id: error",
			mutate:    func(it *Item) { it.ID = "" },
			wantError: "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := valid
			tt.mutate(&it)

			err := Validate(it)
			if tt.wantError != "" {
				require.ErrorIs(t, err, ErrInvalid)
				assert.ErrorContains(t, err, tt.wantError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewAssignsUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		it := New(gofakeit.ProductName(), gofakeit.ProductDescription(), gofakeit.ProductCategory(), 1, 1)
		require.NotEmpty(t, it.ID)
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
}
