package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is the sentinel returned by lookups when no coupon record
// matches the requested code.
var ErrNotFound = errors.New("coupon not found")

// Kind enumerates the supported discount types.
type Kind string

const (
	// KindPercentage deducts a percentage of the order subtotal.
	KindPercentage Kind = "percentage"
	// KindFlat deducts a fixed amount.
	KindFlat Kind = "flat"
)

// Coupon captures the runtime constraints of a discount code.
type Coupon struct {
	ID             string
	Code           string
	Kind           Kind
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxDiscount    *decimal.Decimal
	ExpiryDate     time.Time
	UsageLimit     *int32
	PerUserLimit   *int32
	Active         bool
	UsedCount      int32
	Description    string
}

// NormalizeCode canonicalises a user-supplied coupon code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InvalidError indicates the code does not resolve to an applicable coupon.
type InvalidError struct {
	Code string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("coupon %s is not valid", e.Code)
}

// ExpiredError indicates the coupon's expiry date has passed.
type ExpiredError struct {
	Code string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("coupon %s has expired", e.Code)
}

// MinimumOrderError indicates the cart subtotal is below the coupon's minimum.
// Shortfall is the amount the buyer needs to add to qualify.
type MinimumOrderError struct {
	Code      string
	Shortfall decimal.Decimal
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("add items worth %s more to use coupon %s", e.Shortfall.Round(2), e.Code)
}

// UsageLimitError indicates the coupon exhausted its global redemption quota.
type UsageLimitError struct {
	Code string
}

func (e *UsageLimitError) Error() string {
	return fmt.Sprintf("coupon %s has reached its usage limit", e.Code)
}

// PerUserLimitError indicates the caller already redeemed the coupon the
// maximum allowed number of times.
type PerUserLimitError struct {
	Code string
}

func (e *PerUserLimitError) Error() string {
	return fmt.Sprintf("coupon %s was already used by this account", e.Code)
}

// Validate checks the coupon against the provided instant, undiscounted
// subtotal, and the caller's prior redemption count. Checks run in a fixed
// order so the first failing condition is the one reported.
func (c Coupon) Validate(now time.Time, subtotal decimal.Decimal, perUserUsed int) error {
	if !c.Active {
		return &InvalidError{Code: c.Code}
	}
	if !c.ExpiryDate.After(now) {
		return &ExpiredError{Code: c.Code}
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return &MinimumOrderError{Code: c.Code, Shortfall: c.MinOrderAmount.Sub(subtotal)}
	}
	if c.UsageLimit != nil && *c.UsageLimit > 0 && c.UsedCount >= *c.UsageLimit {
		return &UsageLimitError{Code: c.Code}
	}
	if c.PerUserLimit != nil && *c.PerUserLimit > 0 && perUserUsed >= int(*c.PerUserLimit) {
		return &PerUserLimitError{Code: c.Code}
	}
	return nil
}

// Exhausted reports whether the global usage quota is spent. An exhausted
// coupon is inert even while its active flag is still set.
func (c Coupon) Exhausted() bool {
	return c.UsageLimit != nil && *c.UsageLimit > 0 && c.UsedCount >= *c.UsageLimit
}

// Discount computes the amount deducted for the given undiscounted subtotal.
// The result is capped at MaxDiscount when set, never exceeds the subtotal,
// and is rounded to two decimal places.
func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.Kind {
	case KindPercentage:
		discount = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
	default:
		discount = c.Value
	}
	if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
		discount = *c.MaxDiscount
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount.Round(2)
}
