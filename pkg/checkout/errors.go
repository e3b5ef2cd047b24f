package checkout

import "errors"

var (
	// ErrInsufficientStock is returned when a cart line asks for more than
	// the item has in stock. Nothing is written.
	ErrInsufficientStock = errors.New("not enough stock")
	// ErrMalformedCart is returned for carts that cannot be interpreted.
	ErrMalformedCart = errors.New("malformed cart")
)

// Store operations reported by DependencyError.
const (
	OpRead    = "read"
	OpWrite   = "write"
	OpRefresh = "refresh"
)

// DependencyError reports a failing item store. With Op == OpRefresh the
// decrements were committed but the catalog could not be re-read.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	switch e.Op {
	case OpRefresh:
		return "stock updated but item store re-read failed: " + e.Err.Error()
	default:
		return "item store " + e.Op + " failed: " + e.Err.Error()
	}
}

func (e *DependencyError) Unwrap() error { return e.Err }

// IsValidation reports whether err is the caller's fault.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrMalformedCart)
}

// IsDependency reports whether err came from the item store.
func IsDependency(err error) bool {
	var dep *DependencyError
	return errors.As(err, &dep)
}
