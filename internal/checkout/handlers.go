package checkout

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vedamart/backend/internal/common"
	"github.com/vedamart/backend/internal/obs"
	"github.com/vedamart/backend/internal/pricing"
)

// Handlers serves the pricing endpoints backed by the engine.
type Handlers struct {
	Engine *pricing.Engine
	Logger zerolog.Logger
}

type previewRequest struct {
	Items         []pricing.LineItem `json:"items"`
	PaymentMethod string             `json:"payment_method"`
	CouponCode    string             `json:"coupon_code"`
}

// Preview handles POST /checkout/preview. The response is a pure projection;
// nothing is reserved or redeemed here.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}

	// An absent method previews the cart without a payment branch: no prepaid
	// discount, no COD fee. Only an unknown non-empty value is a client error.
	method := pricing.PaymentMethod(req.PaymentMethod)
	if method != "" && method != pricing.PaymentPrepaid && method != pricing.PaymentCOD {
		common.JSONError(w, http.StatusBadRequest, "INVALID_PAYMENT_METHOD", "payment_method must be PREPAID or COD", nil)
		return
	}

	userID, _ := common.UserID(r.Context())
	start := time.Now()
	result, err := h.Engine.Calculate(r.Context(), pricing.Input{
		Items:         req.Items,
		PaymentMethod: method,
		CouponCode:    req.CouponCode,
		UserID:        userID,
	})
	if obs.PricingDuration != nil {
		obs.PricingDuration.Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		appErr := MapPricingError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			h.Logger.Error().Err(err).Msg("checkout preview failed")
		}
		countPreview(appErr.Code)
		common.WriteAppError(w, appErr)
		return
	}

	countPreview("ok")
	common.JSONData(w, http.StatusOK, result)
}

type validateCouponRequest struct {
	Code  string             `json:"code"`
	Items []pricing.LineItem `json:"items"`
}

type validateCouponResponse struct {
	Valid    bool             `json:"valid"`
	Code     string           `json:"code,omitempty"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Message  string           `json:"message"`
}

// ValidateCoupon handles POST /coupons/validate. Rule failures are a valid
// outcome for the caller, so they come back as 200 with valid=false; only
// malformed input and unavailable carts are request errors.
func (h *Handlers) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if req.Code == "" {
		common.JSONError(w, http.StatusBadRequest, "MISSING_COUPON_CODE", "code is required", nil)
		return
	}

	userID, _ := common.UserID(r.Context())
	result, err := h.Engine.Calculate(r.Context(), pricing.Input{
		Items:         req.Items,
		PaymentMethod: pricing.PaymentPrepaid,
		CouponCode:    req.Code,
		UserID:        userID,
	})
	if err != nil {
		appErr := MapPricingError(err)
		switch appErr.Code {
		case "COUPON_INVALID", "COUPON_EXPIRED", "COUPON_MIN_ORDER",
			"COUPON_USAGE_LIMIT", "COUPON_PER_USER_LIMIT":
			countValidation(appErr.Code)
			common.JSONData(w, http.StatusOK, validateCouponResponse{
				Valid:   false,
				Reason:  appErr.Code,
				Message: appErr.Message,
			})
		default:
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				h.Logger.Error().Err(err).Msg("coupon validation failed")
			}
			countValidation(appErr.Code)
			common.WriteAppError(w, appErr)
		}
		return
	}

	countValidation("ok")
	resp := validateCouponResponse{Valid: true, Message: "coupon applied"}
	if result.Coupon != nil {
		resp.Code = result.Coupon.Code
		resp.Discount = &result.Coupon.Discount
	}
	common.JSONData(w, http.StatusOK, resp)
}

func countPreview(result string) {
	if obs.CheckoutPreviewTotal != nil {
		obs.CheckoutPreviewTotal.WithLabelValues(result).Inc()
	}
}

func countValidation(result string) {
	if obs.CouponValidationTotal != nil {
		obs.CouponValidationTotal.WithLabelValues(result).Inc()
	}
}
