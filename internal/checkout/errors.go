package checkout

import (
	"errors"
	"net/http"

	"github.com/vedamart/backend/internal/common"
	"github.com/vedamart/backend/internal/coupon"
	"github.com/vedamart/backend/internal/pricing"
)

// MapPricingError translates the typed pricing and coupon failures into API
// error responses. Anything outside the known taxonomy is reported as an
// internal fault so infrastructure errors never masquerade as cart problems.
func MapPricingError(err error) *common.AppError {
	if err == nil {
		return nil
	}

	if errors.Is(err, pricing.ErrEmptyCart) {
		return common.BadRequest("EMPTY_CART", "cart must contain at least one item")
	}

	var qtyErr *pricing.InvalidQuantityError
	if errors.As(err, &qtyErr) {
		return common.BadRequest("INVALID_QUANTITY", qtyErr.Error()).WithDetails(map[string]string{"variant_id": qtyErr.VariantID})
	}
	var unavailErr *pricing.VariantUnavailableError
	if errors.As(err, &unavailErr) {
		return common.BadRequest("VARIANT_UNAVAILABLE", unavailErr.Error()).WithDetails(map[string]string{"variant_id": unavailErr.VariantID})
	}

	var invalidErr *coupon.InvalidError
	if errors.As(err, &invalidErr) {
		return common.BadRequest("COUPON_INVALID", invalidErr.Error())
	}
	var expiredErr *coupon.ExpiredError
	if errors.As(err, &expiredErr) {
		return common.BadRequest("COUPON_EXPIRED", expiredErr.Error())
	}
	var minErr *coupon.MinimumOrderError
	if errors.As(err, &minErr) {
		return common.BadRequest("COUPON_MIN_ORDER", minErr.Error()).WithDetails(map[string]string{"shortfall": minErr.Shortfall.Round(2).String()})
	}
	var usageErr *coupon.UsageLimitError
	if errors.As(err, &usageErr) {
		return common.BadRequest("COUPON_USAGE_LIMIT", usageErr.Error())
	}
	var perUserErr *coupon.PerUserLimitError
	if errors.As(err, &perUserErr) {
		return common.BadRequest("COUPON_PER_USER_LIMIT", perUserErr.Error())
	}

	return common.NewAppError("INTERNAL_ERROR", "failed to price the cart", http.StatusInternalServerError, err)
}
