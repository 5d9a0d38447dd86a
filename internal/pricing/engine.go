package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vedamart/backend/internal/coupon"
)

var hundred = decimal.NewFromInt(100)

// Engine derives an itemised price breakdown from a cart and the read-only
// provider state. It holds no mutable state of its own and may be shared
// freely across goroutines; every calculation operates on its own snapshot.
type Engine struct {
	Variants VariantSource
	Coupons  CouponSource
	Config   SettingsSource
	Now      func() time.Time
	TaxNote  string
}

func (e *Engine) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// Calculate prices the given items, applying shipping rules, payment-method
// discounts, and an optional coupon, in that fixed order. Identical inputs
// against identical provider state always yield an identical Result; this is
// what lets checkout preview and order creation share one implementation.
// Any failure aborts the whole calculation with no partial result.
func (e *Engine) Calculate(ctx context.Context, in Input) (Result, error) {
	if e == nil || e.Variants == nil {
		return Result{}, errors.New("pricing engine not configured")
	}
	if len(in.Items) == 0 {
		return Result{}, ErrEmptyCart
	}
	ids := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return Result{}, &InvalidQuantityError{VariantID: item.VariantID}
		}
		ids = append(ids, item.VariantID)
	}

	settings, err := e.settings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load pricing settings: %w", err)
	}

	variants, err := e.Variants.Variants(ctx, ids)
	if err != nil {
		return Result{}, fmt.Errorf("resolve variants: %w", err)
	}

	// Subtotals accumulate at full precision; rounding happens exactly once
	// per derived figure when the result is assembled.
	subtotal := decimal.Zero
	mrpTotal := decimal.Zero
	resolved := make([]ResolvedItem, 0, len(in.Items))
	for _, item := range in.Items {
		v, ok := variants[item.VariantID]
		if !ok || !v.IsActive || !v.InStock {
			return Result{}, &VariantUnavailableError{VariantID: item.VariantID}
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(v.SellingPrice.Mul(qty))
		mrpTotal = mrpTotal.Add(v.MRP.Mul(qty))
		resolved = append(resolved, ResolvedItem{
			VariantID:    v.ID,
			ProductName:  v.ProductName,
			Image:        v.Image,
			Size:         v.Size,
			Unit:         v.Unit,
			MRP:          v.MRP,
			SellingPrice: v.SellingPrice,
			Quantity:     item.Quantity,
		})
	}

	// Shipping is gated on the pre-discount subtotal so a coupon cannot be
	// used to dodge the free-shipping threshold.
	shipping := decimal.Zero
	if subtotal.LessThan(settings.ShippingThreshold) {
		shipping = settings.ShippingFee
	}

	// The two prepaid tiers are additive, both computed off the original
	// subtotal, never off each other's result.
	prepaidDiscount := decimal.Zero
	highValueDiscount := decimal.Zero
	codCharge := decimal.Zero
	switch in.PaymentMethod {
	case PaymentPrepaid:
		prepaidDiscount = subtotal.Mul(settings.PrepaidTier1Percent).Div(hundred)
		if subtotal.GreaterThanOrEqual(settings.PrepaidTier2Threshold) {
			highValueDiscount = subtotal.Mul(settings.PrepaidTier2Percent).Div(hundred)
		}
	case PaymentCOD:
		codCharge = settings.CODFee
	}

	couponDiscount := decimal.Zero
	var applied *AppliedCoupon
	if code := coupon.NormalizeCode(in.CouponCode); code != "" {
		couponDiscount, applied, err = e.applyCoupon(ctx, code, in.UserID, subtotal)
		if err != nil {
			return Result{}, err
		}
	}

	totalDiscount := couponDiscount.Add(prepaidDiscount).Add(highValueDiscount)
	grandTotal := subtotal.Sub(totalDiscount).Add(shipping).Add(codCharge)
	if grandTotal.IsNegative() {
		grandTotal = decimal.Zero
	}

	remainingShipping := settings.ShippingThreshold.Sub(subtotal)
	if remainingShipping.IsNegative() {
		remainingShipping = decimal.Zero
	}
	remainingTier := settings.PrepaidTier2Threshold.Sub(subtotal)
	if remainingTier.IsNegative() {
		remainingTier = decimal.Zero
	}

	taxNote := e.TaxNote
	if taxNote == "" {
		taxNote = "Inclusive of all taxes"
	}

	return Result{
		Items:    resolved,
		Subtotal: subtotal.Round(2),
		MRPTotal: mrpTotal.Round(2),
		Discounts: Discounts{
			CouponDiscount:    couponDiscount.Round(2),
			PrepaidDiscount:   prepaidDiscount.Round(2),
			HighValueDiscount: highValueDiscount.Round(2),
			TotalDiscount:     totalDiscount.Round(2),
		},
		Charges: Charges{
			Shipping: shipping.Round(2),
			CODFee:   codCharge.Round(2),
		},
		GrandTotal: grandTotal.Round(2),
		Progress: Progress{
			RemainingForFreeShipping: remainingShipping.Round(2),
			RemainingForNextTier:     remainingTier.Round(2),
		},
		Coupon:  applied,
		TaxNote: taxNote,
	}, nil
}

func (e *Engine) settings(ctx context.Context) (Settings, error) {
	if e.Config == nil {
		return DefaultSettings(), nil
	}
	return e.Config.Settings(ctx)
}

func (e *Engine) applyCoupon(ctx context.Context, code, userID string, subtotal decimal.Decimal) (decimal.Decimal, *AppliedCoupon, error) {
	if e.Coupons == nil {
		return decimal.Zero, nil, errors.New("coupon source not configured")
	}
	c, err := e.Coupons.Coupon(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return decimal.Zero, nil, &coupon.InvalidError{Code: code}
		}
		return decimal.Zero, nil, fmt.Errorf("lookup coupon: %w", err)
	}

	perUserUsed := 0
	if c.PerUserLimit != nil && *c.PerUserLimit > 0 && userID != "" {
		perUserUsed, err = e.Coupons.UserUsage(ctx, c.ID, userID)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("count coupon usage: %w", err)
		}
	}
	if err := c.Validate(e.now(), subtotal, perUserUsed); err != nil {
		return decimal.Zero, nil, err
	}

	discount := c.Discount(subtotal)
	return discount, &AppliedCoupon{Code: c.Code, Discount: discount}, nil
}
