package checkout

import (
	"github.com/shopspring/decimal"

	"shopmart/pkg/item"
)

// ReceiptLine records one settled line priced from the stored item.
type ReceiptLine struct {
	ItemID        string
	ItemName      string
	Quantity      int
	UnitPrice     decimal.Decimal
	ClientPrice   *float64
	PriceMismatch bool
}

// Subtotal is UnitPrice x Quantity.
func (l ReceiptLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Receipt summarises a settlement.
type Receipt struct {
	Lines []ReceiptLine
	Total decimal.Decimal
}

// Mismatches returns the lines whose client price disagreed with the store.
func (r Receipt) Mismatches() []ReceiptLine {
	var out []ReceiptLine
	for _, l := range r.Lines {
		if l.PriceMismatch {
			out = append(out, l)
		}
	}
	return out
}

func newReceiptLine(it item.Item, line CartLine) ReceiptLine {
	unit := decimal.NewFromFloat(it.Price)
	rl := ReceiptLine{
		ItemID:      it.ID,
		ItemName:    it.ItemName,
		Quantity:    line.Quantity,
		UnitPrice:   unit,
		ClientPrice: line.ClientPrice,
	}
	if line.ClientPrice != nil && !decimal.NewFromFloat(*line.ClientPrice).Equal(unit) {
		rl.PriceMismatch = true
	}
	return rl
}
