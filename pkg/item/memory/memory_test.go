package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"shopmart/pkg/item"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := New()
	it := item.Item{ID: "1", ItemName: "Widget", Description: "A widget", Stock: 2, Price: 11, Category: "tools"}
	if err := repo.Create(ctx, it); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.Get(ctx, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ItemName != "Widget" {
		t.Fatalf("expected Widget, got %s", got.ItemName)
	}
	it.ItemName = "Gadget"
	if err := repo.Update(ctx, it); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}
	if err := repo.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "1"); err == nil {
		t.Fatal("expected error after delete")
	}
}

func TestRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	it := item.New("Lamp", "Bright", "home", 1, 9.99)
	repo := New(it)

	assert.ErrorIs(t, repo.Create(ctx, it), item.ErrAlreadyExists)
	assert.ErrorIs(t, repo.Create(ctx, item.Item{ID: "x"}), item.ErrInvalid)
	assert.ErrorIs(t, repo.Update(ctx, item.New("Ghost", "Absent", "none", 0, 0)), item.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), item.ErrNotFound)
}

func TestListIsSortedByID(t *testing.T) {
	repo := New(
		item.Item{ID: "c", ItemName: "c", Description: "c", Category: "c"},
		item.Item{ID: "a", ItemName: "a", Description: "a", Category: "a"},
		item.Item{ID: "b", ItemName: "b", Description: "b", Category: "b"},
	)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestDecrementStock(t *testing.T) {
	tests := []struct {
		name       string
		decrements []item.Decrement
		wantErr    error
		wantStock  map[string]int
	}{
		{
			name:       "all guards pass: applied",
			decrements: []item.Decrement{{ID: "a", Quantity: 3}, {ID: "b", Quantity: 2}},
			wantStock:  map[string]int{"a": 2, "b": 0},
		},
		{
			name:       "one guard fails: nothing applied",
			decrements: []item.Decrement{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 3}},
			wantErr:    item.ErrInsufficientStock,
			wantStock:  map[string]int{"a": 5, "b": 2},
		},
		{
			name:       "unknown item: nothing applied",
			decrements: []item.Decrement{{ID: "a", Quantity: 1}, {ID: "zzz", Quantity: 1}},
			wantErr:    item.ErrInsufficientStock,
			wantStock:  map[string]int{"a": 5, "b": 2},
		},
		{
			name:       "non-positive quantity: rejected",
			decrements: []item.Decrement{{ID: "a", Quantity: -4}},
			wantErr:    item.ErrInvalid,
			wantStock:  map[string]int{"a": 5, "b": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := New(
				item.Item{ID: "a", ItemName: "A", Description: "A", Stock: 5, Price: 11, Category: "x"},
				item.Item{ID: "b", ItemName: "B", Description: "B", Stock: 2, Price: 5, Category: "x"},
			)

			err := repo.DecrementStock(ctx, tt.decrements)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			for id, want := range tt.wantStock {
				got, err := repo.Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, want, got.Stock, id)
			}
		})
	}
}

func TestDecrementStockConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := New(item.Item{ID: "a", ItemName: "A", Description: "A", Stock: 10, Price: 1, Category: "x"})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled int
	)
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.DecrementStock(ctx, []item.Decrement{{ID: "a", Quantity: 1}}); err == nil {
				mu.Lock()
				settled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 10, settled)
	assert.Equal(t, 0, got.Stock)
}
