package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vedamart/backend/internal/checkout"
	"github.com/vedamart/backend/internal/common"
	"github.com/vedamart/backend/internal/coupon"
)

type orderService interface {
	Create(ctx context.Context, userID string, in CreateInput) (Order, error)
	ConfirmPayment(ctx context.Context, orderID, userID string) (Order, error)
	Get(ctx context.Context, orderID, userID string) (Order, error)
	List(ctx context.Context, userID string) ([]Order, error)
}

// Handlers exposes the order endpoints.
type Handlers struct {
	Service orderService
	Logger  zerolog.Logger
}

// Create handles POST /orders.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	if userID == "" {
		common.WriteAppError(w, common.Unauthorized("authentication required"))
		return
	}

	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}

	created, err := h.Service.Create(r.Context(), userID, in)
	if err != nil {
		var methodErr *InvalidPaymentMethodError
		if errors.As(err, &methodErr) {
			common.JSONError(w, http.StatusBadRequest, "INVALID_PAYMENT_METHOD", "payment_method must be PREPAID or COD", nil)
			return
		}
		appErr := checkout.MapPricingError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			h.Logger.Error().Err(err).Msg("order creation failed")
		}
		common.WriteAppError(w, appErr)
		return
	}
	common.JSONData(w, http.StatusCreated, created)
}

// ConfirmPayment handles POST /orders/{id}/confirm-payment.
func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	if userID == "" {
		common.WriteAppError(w, common.Unauthorized("authentication required"))
		return
	}

	paid, err := h.Service.ConfirmPayment(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.writeConfirmError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, paid)
}

func (h *Handlers) writeConfirmError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order does not exist", nil)
		return
	}
	var notPayable *NotPayableError
	if errors.As(err, &notPayable) {
		common.JSONError(w, http.StatusConflict, "ORDER_NOT_PAYABLE", notPayable.Error(), nil)
		return
	}
	var oos *OutOfStockError
	if errors.As(err, &oos) {
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", oos.Error(),
			map[string]string{"variant_id": oos.VariantID})
		return
	}
	if errors.Is(err, coupon.ErrRedeemConflict) {
		common.JSONError(w, http.StatusConflict, "COUPON_USAGE_LIMIT", "coupon usage limit was reached before payment", nil)
		return
	}
	h.Logger.Error().Err(err).Msg("payment confirmation failed")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to confirm payment", nil)
}

// Get handles GET /orders/{id}.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	if userID == "" {
		common.WriteAppError(w, common.Unauthorized("authentication required"))
		return
	}

	o, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order does not exist", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("order lookup failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load order", nil)
		return
	}
	common.JSONData(w, http.StatusOK, o)
}

// List handles GET /orders.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	if userID == "" {
		common.WriteAppError(w, common.Unauthorized("authentication required"))
		return
	}

	orders, err := h.Service.List(r.Context(), userID)
	if err != nil {
		h.Logger.Error().Err(err).Msg("order list failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list orders", nil)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	common.JSONData(w, http.StatusOK, orders)
}
