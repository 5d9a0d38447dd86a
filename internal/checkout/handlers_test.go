package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vedamart/backend/internal/coupon"
	"github.com/vedamart/backend/internal/pricing"
)

type stubVariants map[string]pricing.Variant

func (s stubVariants) Variants(_ context.Context, ids []string) (map[string]pricing.Variant, error) {
	out := make(map[string]pricing.Variant)
	for _, id := range ids {
		if v, ok := s[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

type stubCoupons map[string]coupon.Coupon

func (s stubCoupons) Coupon(_ context.Context, code string) (coupon.Coupon, error) {
	c, ok := s[coupon.NormalizeCode(code)]
	if !ok {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	return c, nil
}

func (s stubCoupons) UserUsage(context.Context, string, string) (int, error) {
	return 0, nil
}

func newHandlers(coupons stubCoupons) *Handlers {
	variants := stubVariants{
		"v1": {
			ID:           "v1",
			ProductName:  "Wood Pressed Sesame Oil",
			MRP:          decimal.NewFromInt(600),
			SellingPrice: decimal.NewFromInt(500),
			IsActive:     true,
			InStock:      true,
		},
	}
	return &Handlers{
		Engine: &pricing.Engine{
			Variants: variants,
			Coupons:  coupons,
			Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		},
		Logger: zerolog.Nop(),
	}
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestPreviewReturnsBreakdown(t *testing.T) {
	h := newHandlers(stubCoupons{})

	req := httptest.NewRequest(http.MethodPost, "/checkout/preview",
		strings.NewReader(`{"items":[{"variant_id":"v1","quantity":1}],"payment_method":"COD"}`))
	rec := httptest.NewRecorder()
	h.Preview(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, "500", data["subtotal"])
	require.Equal(t, "778", data["grand_total"])
	charges := data["charges"].(map[string]any)
	require.Equal(t, "129", charges["shipping"])
	require.Equal(t, "149", charges["cod_fee"])
}

func TestPreviewWithoutPaymentMethodIsNeutral(t *testing.T) {
	h := newHandlers(stubCoupons{})

	req := httptest.NewRequest(http.MethodPost, "/checkout/preview",
		strings.NewReader(`{"items":[{"variant_id":"v1","quantity":1}]}`))
	rec := httptest.NewRecorder()
	h.Preview(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	discounts := data["discounts"].(map[string]any)
	require.Equal(t, "0", discounts["prepaid_discount"])
	charges := data["charges"].(map[string]any)
	require.Equal(t, "0", charges["cod_fee"])
	require.Equal(t, "629", data["grand_total"])
}

func TestPreviewPrepaidAppliesTierDiscount(t *testing.T) {
	h := newHandlers(stubCoupons{})

	req := httptest.NewRequest(http.MethodPost, "/checkout/preview",
		strings.NewReader(`{"items":[{"variant_id":"v1","quantity":1}],"payment_method":"PREPAID"}`))
	rec := httptest.NewRecorder()
	h.Preview(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	discounts := data["discounts"].(map[string]any)
	require.Equal(t, "25", discounts["prepaid_discount"])
}

func TestPreviewRejectsUnknownPaymentMethod(t *testing.T) {
	h := newHandlers(stubCoupons{})

	req := httptest.NewRequest(http.MethodPost, "/checkout/preview",
		strings.NewReader(`{"items":[{"variant_id":"v1","quantity":1}],"payment_method":"UPI_LATER"}`))
	rec := httptest.NewRecorder()
	h.Preview(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_PAYMENT_METHOD", decodeErrorCode(t, rec))
}

func TestPreviewEmptyCart(t *testing.T) {
	h := newHandlers(stubCoupons{})

	req := httptest.NewRequest(http.MethodPost, "/checkout/preview", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	h.Preview(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "EMPTY_CART", decodeErrorCode(t, rec))
}

func TestPreviewExpiredCoupon(t *testing.T) {
	h := newHandlers(stubCoupons{
		"OLD10": {
			ID: "c1", Code: "OLD10", Kind: coupon.KindPercentage,
			Value:      decimal.NewFromInt(10),
			ExpiryDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Active:     true,
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/checkout/preview",
		strings.NewReader(`{"items":[{"variant_id":"v1","quantity":1}],"coupon_code":"OLD10"}`))
	rec := httptest.NewRecorder()
	h.Preview(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "COUPON_EXPIRED", decodeErrorCode(t, rec))
}

func TestValidateCouponSuccess(t *testing.T) {
	h := newHandlers(stubCoupons{
		"SAVE10": {
			ID: "c1", Code: "SAVE10", Kind: coupon.KindPercentage,
			Value:      decimal.NewFromInt(10),
			ExpiryDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Active:     true,
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/coupons/validate",
		strings.NewReader(`{"code":"save10","items":[{"variant_id":"v1","quantity":1}]}`))
	rec := httptest.NewRecorder()
	h.ValidateCoupon(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, true, data["valid"])
	require.Equal(t, "SAVE10", data["code"])
	require.Equal(t, "50", data["discount"])
}

func TestValidateCouponRuleFailureIsNotARequestError(t *testing.T) {
	h := newHandlers(stubCoupons{})

	req := httptest.NewRequest(http.MethodPost, "/coupons/validate",
		strings.NewReader(`{"code":"GHOST","items":[{"variant_id":"v1","quantity":1}]}`))
	rec := httptest.NewRecorder()
	h.ValidateCoupon(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, false, data["valid"])
	require.Equal(t, "COUPON_INVALID", data["reason"])
}

func TestValidateCouponRequiresCode(t *testing.T) {
	h := newHandlers(stubCoupons{})

	req := httptest.NewRequest(http.MethodPost, "/coupons/validate",
		strings.NewReader(`{"items":[{"variant_id":"v1","quantity":1}]}`))
	rec := httptest.NewRecorder()
	h.ValidateCoupon(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "MISSING_COUPON_CODE", decodeErrorCode(t, rec))
}
