package pricing

import (
	"errors"
	"fmt"
)

// ErrEmptyCart is returned when a calculation is requested for zero items.
var ErrEmptyCart = errors.New("cart is empty")

// InvalidQuantityError indicates a line item carries a quantity below one.
type InvalidQuantityError struct {
	VariantID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for variant %s", e.VariantID)
}

// VariantUnavailableError indicates a requested variant is missing, inactive,
// or out of stock. The whole calculation fails; a partially priced cart could
// charge the buyer for an item that will not ship.
type VariantUnavailableError struct {
	VariantID string
}

func (e *VariantUnavailableError) Error() string {
	return fmt.Sprintf("variant %s is unavailable", e.VariantID)
}
