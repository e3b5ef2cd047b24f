// Package cart accumulates a shopper's selections against the last catalog
// the storefront fetched.
package cart

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"shopmart/pkg/checkout"
	"shopmart/pkg/item"
)

// AllCategories matches every category in Visible.
const AllCategories = "All"

// Accumulator is a client-side cart. Quantities never exceed the stock of
// the last known catalog. It is safe for concurrent use.
type Accumulator struct {
	mu      sync.Mutex
	catalog []item.Item
	byID    map[string]item.Item
	lines   map[string]int
}

// New returns an empty cart over items.
func New(items []item.Item) *Accumulator {
	a := &Accumulator{}
	a.Replace(items)
	return a
}

// Replace swaps the catalog, typically with the one returned by checkout,
// and empties the cart.
func (a *Accumulator) Replace(items []item.Item) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.catalog = append([]item.Item(nil), items...)
	a.byID = make(map[string]item.Item, len(items))
	for _, it := range items {
		a.byID[it.ID] = it
	}
	a.lines = make(map[string]int)
}

// Add puts one more of id in the cart. It reports false when the item is
// unknown or the cart already holds all of its stock.
func (a *Accumulator) Add(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	it, ok := a.byID[id]
	if !ok || a.lines[id] >= it.Stock {
		return false
	}
	a.lines[id]++
	return true
}

// Remove takes one of id out of the cart, dropping the line at zero.
func (a *Accumulator) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.lines[id]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(a.lines, id)
	} else {
		a.lines[id] = n - 1
	}
	return true
}

// Quantity returns how many of id are in the cart.
func (a *Accumulator) Quantity(id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lines[id]
}

// Empty reports whether the cart has no lines.
func (a *Accumulator) Empty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.lines) == 0
}

// Lines returns the cart in checkout form, carrying the catalog price and
// name of each line.
func (a *Accumulator) Lines() checkout.Cart {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(checkout.Cart, len(a.lines))
	for id, n := range a.lines {
		it := a.byID[id]
		price := it.Price
		out[id] = checkout.CartLine{Quantity: n, ClientPrice: &price, DisplayName: it.ItemName}
	}
	return out
}

// Total is the display total of the cart at catalog prices.
func (a *Accumulator) Total() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := decimal.Zero
	for id, n := range a.lines {
		total = total.Add(decimal.NewFromFloat(a.byID[id].Price).Mul(decimal.NewFromInt(int64(n))))
	}
	return total
}

// Items returns the catalog in its original order.
func (a *Accumulator) Items() []item.Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]item.Item(nil), a.catalog...)
}

// Categories returns AllCategories followed by every category in the
// catalog in first-seen order.
func (a *Accumulator) Categories() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []string{AllCategories}
	seen := map[string]bool{AllCategories: true}
	for _, it := range a.catalog {
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	return out
}

// Visible returns in-stock items whose name matches query, a
// case-insensitive regular expression, and whose category is category.
// An empty category or AllCategories matches any. A query that does not
// compile is matched as a plain substring.
func (a *Accumulator) Visible(query, category string) []item.Item {
	match := matcher(query)

	a.mu.Lock()
	defer a.mu.Unlock()

	var out []item.Item
	for _, it := range a.catalog {
		if it.Stock <= 0 || !match(it.ItemName) {
			continue
		}
		if category != "" && category != AllCategories && it.Category != category {
			continue
		}
		out = append(out, it)
	}
	return out
}

// LineIDs returns the ids in the cart, sorted.
func (a *Accumulator) LineIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]string, 0, len(a.lines))
	for id := range a.lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func matcher(query string) func(string) bool {
	if re, err := regexp.Compile("(?i)" + query); err == nil {
		return re.MatchString
	}
	q := strings.ToLower(query)
	return func(name string) bool { return strings.Contains(strings.ToLower(name), q) }
}
