package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vedamart/backend/internal/common"
	"github.com/vedamart/backend/internal/coupon"
	"github.com/vedamart/backend/internal/pricing"
)

type stubService struct {
	created    Order
	createErr  error
	confirmed  Order
	confirmErr error
	gotInput   CreateInput
	gotUserID  string
}

func (s *stubService) Create(_ context.Context, userID string, in CreateInput) (Order, error) {
	s.gotUserID = userID
	s.gotInput = in
	return s.created, s.createErr
}

func (s *stubService) ConfirmPayment(_ context.Context, orderID, userID string) (Order, error) {
	s.gotUserID = userID
	return s.confirmed, s.confirmErr
}

func (s *stubService) Get(_ context.Context, orderID, userID string) (Order, error) {
	if s.confirmErr != nil {
		return Order{}, s.confirmErr
	}
	return s.confirmed, nil
}

func (s *stubService) List(_ context.Context, userID string) ([]Order, error) {
	return nil, nil
}

func authed(req *http.Request, userID string) *http.Request {
	return req.WithContext(common.WithUserID(req.Context(), userID))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestCreateRequiresAuth(t *testing.T) {
	h := &Handlers{Service: &stubService{}, Logger: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateReturnsOrder(t *testing.T) {
	svc := &stubService{created: Order{
		ID:          "o-1",
		OrderNumber: "VM-20250601-AABBCCDD",
		Status:      StatusPendingPayment,
		GrandTotal:  decimal.NewFromInt(629),
	}}
	h := &Handlers{Service: svc, Logger: zerolog.Nop()}

	req := authed(httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"items":[{"variant_id":"v1","quantity":2}],"payment_method":"COD"}`)), "u-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "u-1", svc.gotUserID)
	require.Equal(t, "COD", svc.gotInput.PaymentMethod)
	require.Len(t, svc.gotInput.Items, 1)
	require.Contains(t, rec.Body.String(), "VM-20250601-AABBCCDD")
}

func TestCreateMapsPricingErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"empty cart", pricing.ErrEmptyCart, "EMPTY_CART"},
		{"unavailable", &pricing.VariantUnavailableError{VariantID: "v9"}, "VARIANT_UNAVAILABLE"},
		{"coupon expired", &coupon.ExpiredError{Code: "OLD"}, "COUPON_EXPIRED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &Handlers{Service: &stubService{createErr: tc.err}, Logger: zerolog.Nop()}
			req := authed(httptest.NewRequest(http.MethodPost, "/orders",
				strings.NewReader(`{"items":[{"variant_id":"v1","quantity":1}]}`)), "u-1")
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.wantCode, errorCode(t, rec))
		})
	}
}

func TestCreateRejectsUnsupportedPaymentMethod(t *testing.T) {
	h := &Handlers{Service: &stubService{createErr: &InvalidPaymentMethodError{Method: "UPI_LATER"}}, Logger: zerolog.Nop()}

	req := authed(httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"items":[{"variant_id":"v1","quantity":1}],"payment_method":"UPI_LATER"}`)), "u-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_PAYMENT_METHOD", errorCode(t, rec))
}

func confirmVia(t *testing.T, h *Handlers, orderID string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/orders/{id}/confirm-payment", h.ConfirmPayment)
	req := authed(httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/confirm-payment", nil), "u-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestConfirmPaymentConflicts(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown order", ErrNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"cancelled order", &NotPayableError{OrderID: "o-1", Status: StatusCancelled}, http.StatusConflict, "ORDER_NOT_PAYABLE"},
		{"stock race lost", &OutOfStockError{VariantID: "v1"}, http.StatusConflict, "OUT_OF_STOCK"},
		{"coupon race lost", coupon.ErrRedeemConflict, http.StatusConflict, "COUPON_USAGE_LIMIT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &Handlers{Service: &stubService{confirmErr: tc.err}, Logger: zerolog.Nop()}
			rec := confirmVia(t, h, "o-1")
			require.Equal(t, tc.wantStatus, rec.Code)
			require.Equal(t, tc.wantCode, errorCode(t, rec))
		})
	}
}

func TestConfirmPaymentReturnsPaidOrder(t *testing.T) {
	h := &Handlers{Service: &stubService{confirmed: Order{ID: "o-1", Status: StatusPaid}}, Logger: zerolog.Nop()}
	rec := confirmVia(t, h, "o-1")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"PAID"`)
}

func TestCreateRequiresConcretePaymentMethod(t *testing.T) {
	svc := &Service{}
	for _, method := range []string{"", "UPI_LATER", "prepaid"} {
		_, err := svc.Create(context.Background(), "u-1", CreateInput{
			Items:         []pricing.LineItem{{VariantID: "v1", Quantity: 1}},
			PaymentMethod: method,
		})
		var methodErr *InvalidPaymentMethodError
		require.ErrorAs(t, err, &methodErr, "method %q must be rejected before pricing", method)
		require.Equal(t, method, methodErr.Method)
	}
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, ids ...string) {
	r.ids = append(r.ids, ids...)
}

func TestInvalidateStockEvictsSoldVariants(t *testing.T) {
	cache := &recordingInvalidator{}
	svc := &Service{Catalog: cache}

	svc.invalidateStock(context.Background(), []Item{
		{VariantID: "v1", Quantity: 2},
		{VariantID: "v2", Quantity: 1},
	})
	require.Equal(t, []string{"v1", "v2"}, cache.ids)
}

func TestInvalidateStockWithoutCatalogIsANoop(t *testing.T) {
	svc := &Service{}
	svc.invalidateStock(context.Background(), []Item{{VariantID: "v1", Quantity: 1}})
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	svc := &Service{Now: func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }}

	pattern := regexp.MustCompile(`^VM-20250601-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := svc.generateOrderNumber()
		require.Regexp(t, pattern, n)
		require.False(t, seen[n], "order numbers must not repeat")
		seen[n] = true
	}
}
