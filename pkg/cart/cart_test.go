package cart

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmart/pkg/item"
)

func catalog() []item.Item {
	return []item.Item{
		{ID: "A", ItemName: "Kettle", Stock: 2, Price: 11, Category: "kitchen"},
		{ID: "B", ItemName: "Mug", Stock: 1, Price: 4.5, Category: "kitchen"},
		{ID: "C", ItemName: "Desk Lamp", Stock: 0, Price: 30, Category: "office"},
		{ID: "D", ItemName: "Stapler", Stock: 7, Price: 9.99, Category: "office"},
	}
}

func TestAddRespectsStock(t *testing.T) {
	a := New(catalog())

	assert.True(t, a.Add("A"))
	assert.True(t, a.Add("A"))
	assert.False(t, a.Add("A"), "third kettle exceeds stock")
	assert.False(t, a.Add("C"), "out of stock")
	assert.False(t, a.Add("ghost"))
	assert.Equal(t, 2, a.Quantity("A"))
}

func TestRemoveDropsLineAtZero(t *testing.T) {
	a := New(catalog())
	require.True(t, a.Add("A"))
	require.True(t, a.Add("A"))

	assert.True(t, a.Remove("A"))
	assert.Equal(t, 1, a.Quantity("A"))
	assert.True(t, a.Remove("A"))
	assert.NotContains(t, a.Lines(), "A")
	assert.False(t, a.Remove("A"))
	assert.True(t, a.Empty())
}

func TestLinesAndTotal(t *testing.T) {
	a := New(catalog())
	a.Add("A")
	a.Add("A")
	a.Add("B")

	lines := a.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines["A"].Quantity)
	assert.Equal(t, "Kettle", lines["A"].DisplayName)
	require.NotNil(t, lines["B"].ClientPrice)
	assert.Equal(t, 4.5, *lines["B"].ClientPrice)
	assert.True(t, decimal.RequireFromString("26.5").Equal(a.Total()), a.Total().String())
	assert.Equal(t, []string{"A", "B"}, a.LineIDs())
}

func TestReplaceClearsCart(t *testing.T) {
	a := New(catalog())
	a.Add("A")

	fresh := catalog()
	fresh[0].Stock = 1
	a.Replace(fresh)

	assert.True(t, a.Empty())
	assert.True(t, a.Total().IsZero())
	assert.True(t, a.Add("A"))
	assert.False(t, a.Add("A"))
}

func TestVisible(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		category string
		want     []string
	}{
		{name: "everything in stock", want: []string{"A", "B", "D"}},
		{name: "case insensitive", query: "kET", want: []string{"A"}},
		{name: "regexp", query: "^(mug|stap)", want: []string{"B", "D"}},
		{name: "zero stock hidden", query: "lamp", want: nil},
		{name: "category", category: "office", want: []string{"D"}},
		{name: "all category", category: AllCategories, want: []string{"A", "B", "D"}},
		{name: "invalid regexp falls back to substring", query: "kettle(", want: nil},
		{name: "invalid regexp substring match", query: "(", want: nil},
	}

	a := New(catalog())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, it := range a.Visible(tt.query, tt.category) {
				got = append(got, it.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVisibleInvalidRegexpSubstring(t *testing.T) {
	a := New([]item.Item{{ID: "X", ItemName: "Box (large)", Stock: 1, Price: 2}})
	got := a.Visible("(LARGE", "")
	require.Len(t, got, 1)
	assert.Equal(t, "X", got[0].ID)
}

func TestCategories(t *testing.T) {
	a := New(catalog())
	assert.Equal(t, []string{AllCategories, "kitchen", "office"}, a.Categories())
}

func TestCartNeverExceedsStock(t *testing.T) {
	f := gofakeit.New(7)
	for i := 0; i < 50; i++ {
		stock := f.IntRange(0, 5)
		a := New([]item.Item{{ID: "A", ItemName: f.ProductName(), Stock: stock, Price: f.Price(1, 100)}})
		steps := f.IntRange(0, 10)
		for j := 0; j < steps; j++ {
			if f.Bool() {
				a.Add("A")
			} else {
				a.Remove("A")
			}
		}
		assert.LessOrEqual(t, a.Quantity("A"), stock)
		assert.GreaterOrEqual(t, a.Quantity("A"), 0)
	}
}
