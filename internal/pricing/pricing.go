package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vedamart/backend/internal/coupon"
)

// PaymentMethod selects the payment-dependent pricing branch.
type PaymentMethod string

const (
	// PaymentPrepaid grants the prepaid tier discounts.
	PaymentPrepaid PaymentMethod = "PREPAID"
	// PaymentCOD adds the cash-on-delivery surcharge.
	PaymentCOD PaymentMethod = "COD"
)

// LineItem is a single cart entry to be priced.
type LineItem struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required"`
}

// Variant is the read-only catalog view the engine prices against.
type Variant struct {
	ID           string
	ProductName  string
	Image        string
	Size         string
	Unit         string
	MRP          decimal.Decimal
	SellingPrice decimal.Decimal
	IsActive     bool
	InStock      bool
}

// Settings is the pricing configuration snapshot used for one calculation.
type Settings struct {
	ShippingThreshold     decimal.Decimal
	ShippingFee           decimal.Decimal
	CODFee                decimal.Decimal
	PrepaidTier1Percent   decimal.Decimal
	PrepaidTier2Percent   decimal.Decimal
	PrepaidTier2Threshold decimal.Decimal
}

// DefaultSettings returns the fallback configuration applied when no stored
// settings row exists.
func DefaultSettings() Settings {
	return Settings{
		ShippingThreshold:     decimal.NewFromInt(599),
		ShippingFee:           decimal.NewFromInt(129),
		CODFee:                decimal.NewFromInt(149),
		PrepaidTier1Percent:   decimal.NewFromInt(5),
		PrepaidTier2Percent:   decimal.NewFromInt(5),
		PrepaidTier2Threshold: decimal.NewFromInt(1199),
	}
}

// VariantSource resolves variants by id in a single batch. Absent ids are
// simply missing from the returned map.
type VariantSource interface {
	Variants(ctx context.Context, ids []string) (map[string]Variant, error)
}

// CouponSource resolves coupon records and per-user redemption counts.
// Coupon returns coupon.ErrNotFound when no record matches the code.
type CouponSource interface {
	Coupon(ctx context.Context, code string) (coupon.Coupon, error)
	UserUsage(ctx context.Context, couponID, userID string) (int, error)
}

// SettingsSource supplies the pricing settings snapshot.
type SettingsSource interface {
	Settings(ctx context.Context) (Settings, error)
}

// Input carries everything one calculation needs besides provider data.
type Input struct {
	Items         []LineItem
	PaymentMethod PaymentMethod
	CouponCode    string
	UserID        string
}

// ResolvedItem is a priced line item echoed back in the result.
type ResolvedItem struct {
	VariantID    string          `json:"variant_id"`
	ProductName  string          `json:"product_name,omitempty"`
	Image        string          `json:"image,omitempty"`
	Size         string          `json:"variant_size,omitempty"`
	Unit         string          `json:"variant_unit,omitempty"`
	MRP          decimal.Decimal `json:"mrp"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Quantity     int             `json:"quantity"`
}

// Discounts itemises every discount source that contributed to the total.
type Discounts struct {
	CouponDiscount    decimal.Decimal `json:"coupon_discount"`
	PrepaidDiscount   decimal.Decimal `json:"prepaid_discount"`
	HighValueDiscount decimal.Decimal `json:"high_value_discount"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
}

// Charges itemises every surcharge added on top of the subtotal.
type Charges struct {
	Shipping decimal.Decimal `json:"shipping"`
	CODFee   decimal.Decimal `json:"cod_fee"`
}

// Progress carries informational hints for the cart page.
type Progress struct {
	RemainingForFreeShipping decimal.Decimal `json:"remaining_for_free_shipping"`
	RemainingForNextTier     decimal.Decimal `json:"remaining_for_next_discount_tier"`
}

// AppliedCoupon summarises the coupon that contributed to the breakdown.
type AppliedCoupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// Result is the full itemised price breakdown. It is a pure projection of the
// inputs, constructed fresh on every call.
type Result struct {
	Items      []ResolvedItem  `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	MRPTotal   decimal.Decimal `json:"mrp_total"`
	Discounts  Discounts       `json:"discounts"`
	Charges    Charges         `json:"charges"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Progress   Progress        `json:"progress"`
	Coupon     *AppliedCoupon  `json:"coupon,omitempty"`
	TaxNote    string          `json:"tax_note"`
}
