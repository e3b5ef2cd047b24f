package checkout

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// CartLine is one requested item. ClientPrice and DisplayName are advisory:
// they come from the browser and are never used for totals.
type CartLine struct {
	Quantity    int
	ClientPrice *float64
	DisplayName string
}

// Cart maps item id to the line requesting it.
type Cart map[string]CartLine

// Validate rejects lines that cannot be settled regardless of stock.
func (c Cart) Validate() error {
	for id, line := range c {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty item id", ErrMalformedCart)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: quantity %d for %s", ErrMalformedCart, line.Quantity, id)
		}
	}
	return nil
}

// DecodeCart reads the checkout body: a JSON object of item id to
// [quantity, unitPrice, displayName]. Only the quantity is required;
// trailing elements beyond the third are ignored. Anything after the object
// makes the whole body malformed.
func DecodeCart(r io.Reader) (Cart, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string][]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCart, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: cart must be an object", ErrMalformedCart)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("%w: more than one JSON value", ErrMalformedCart)
		}
		return nil, fmt.Errorf("%w: trailing data: %w", ErrMalformedCart, err)
	}

	cart := make(Cart, len(raw))
	for id, fields := range raw {
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: no quantity for %s", ErrMalformedCart, id)
		}

		num, ok := fields[0].(json.Number)
		if !ok {
			return nil, fmt.Errorf("%w: quantity for %s is not a number", ErrMalformedCart, id)
		}
		qty, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: quantity for %s is not an integer", ErrMalformedCart, id)
		}

		line := CartLine{Quantity: int(qty)}
		if len(fields) > 1 {
			if n, ok := fields[1].(json.Number); ok {
				if f, err := n.Float64(); err == nil {
					line.ClientPrice = &f
				}
			}
		}
		if len(fields) > 2 {
			if s, ok := fields[2].(string); ok {
				line.DisplayName = s
			}
		}
		cart[id] = line
	}

	if err := cart.Validate(); err != nil {
		return nil, err
	}
	return cart, nil
}

// MarshalJSON encodes the cart in the same array form DecodeCart reads.
func (c Cart) MarshalJSON() ([]byte, error) {
	wire := make(map[string][]any, len(c))
	for id, line := range c {
		fields := []any{line.Quantity}
		if line.ClientPrice != nil || line.DisplayName != "" {
			var price any
			if line.ClientPrice != nil {
				price = *line.ClientPrice
			}
			fields = append(fields, price, line.DisplayName)
		}
		wire[id] = fields
	}
	return json.Marshal(wire)
}
