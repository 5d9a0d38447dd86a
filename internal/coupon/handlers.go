package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vedamart/backend/internal/common"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

type adminStore interface {
	Create(ctx context.Context, c Coupon) (Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	GetByID(ctx context.Context, id string) (Coupon, error)
	Update(ctx context.Context, c Coupon) (Coupon, error)
	Delete(ctx context.Context, id string) error
}

// AdminHandlers exposes the coupon management endpoints.
type AdminHandlers struct {
	Store    adminStore
	Validate *validator.Validate
	Now      func() time.Time
}

type couponPayload struct {
	Code           string           `json:"code" validate:"required,min=3,max=32"`
	Kind           Kind             `json:"kind" validate:"required,oneof=percentage flat"`
	Value          decimal.Decimal  `json:"value"`
	MinOrderAmount decimal.Decimal  `json:"min_order_amount"`
	MaxDiscount    *decimal.Decimal `json:"max_discount,omitempty"`
	ExpiryDate     time.Time        `json:"expiry_date" validate:"required"`
	UsageLimit     *int32           `json:"usage_limit,omitempty"`
	PerUserLimit   *int32           `json:"per_user_limit,omitempty"`
	Active         bool             `json:"active"`
	Description    string           `json:"description"`
}

type couponResponse struct {
	ID             string           `json:"id"`
	Code           string           `json:"code"`
	Kind           Kind             `json:"kind"`
	Value          decimal.Decimal  `json:"value"`
	MinOrderAmount decimal.Decimal  `json:"min_order_amount"`
	MaxDiscount    *decimal.Decimal `json:"max_discount,omitempty"`
	ExpiryDate     time.Time        `json:"expiry_date"`
	UsageLimit     *int32           `json:"usage_limit,omitempty"`
	PerUserLimit   *int32           `json:"per_user_limit,omitempty"`
	Active         bool             `json:"active"`
	UsedCount      int32            `json:"used_count"`
	Description    string           `json:"description,omitempty"`
}

func toResponse(c Coupon) couponResponse {
	return couponResponse{
		ID:             c.ID,
		Code:           c.Code,
		Kind:           c.Kind,
		Value:          c.Value,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscount:    c.MaxDiscount,
		ExpiryDate:     c.ExpiryDate,
		UsageLimit:     c.UsageLimit,
		PerUserLimit:   c.PerUserLimit,
		Active:         c.Active,
		UsedCount:      c.UsedCount,
		Description:    c.Description,
	}
}

func (h *AdminHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// checkPayload validates the parts validator tags cannot express.
func (h *AdminHandlers) checkPayload(p couponPayload) *common.AppError {
	if err := h.Validate.Struct(p); err != nil {
		return common.BadRequest("INVALID_COUPON", "coupon payload failed validation").WithDetails(err.Error())
	}
	if !codePattern.MatchString(NormalizeCode(p.Code)) {
		return common.BadRequest("INVALID_COUPON_CODE", "code may only contain letters, digits and underscores")
	}
	if !p.Value.IsPositive() {
		return common.BadRequest("INVALID_COUPON_VALUE", "value must be greater than zero")
	}
	if p.Kind == KindPercentage && p.Value.GreaterThan(decimal.NewFromInt(100)) {
		return common.BadRequest("INVALID_COUPON_VALUE", "percentage value cannot exceed 100")
	}
	if p.MinOrderAmount.IsNegative() {
		return common.BadRequest("INVALID_COUPON", "min_order_amount cannot be negative")
	}
	if p.MaxDiscount != nil && !p.MaxDiscount.IsPositive() {
		return common.BadRequest("INVALID_COUPON", "max_discount must be greater than zero when set")
	}
	if !p.ExpiryDate.After(h.now()) {
		return common.BadRequest("INVALID_COUPON_EXPIRY", "expiry_date must be in the future")
	}
	return nil
}

func (p couponPayload) toCoupon() Coupon {
	return Coupon{
		Code:           NormalizeCode(p.Code),
		Kind:           p.Kind,
		Value:          p.Value,
		MinOrderAmount: p.MinOrderAmount,
		MaxDiscount:    p.MaxDiscount,
		ExpiryDate:     p.ExpiryDate,
		UsageLimit:     p.UsageLimit,
		PerUserLimit:   p.PerUserLimit,
		Active:         p.Active,
		Description:    p.Description,
	}
}

// Create handles POST /admin/coupons.
func (h *AdminHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if appErr := h.checkPayload(payload); appErr != nil {
		common.WriteAppError(w, appErr)
		return
	}
	created, err := h.Store.Create(r.Context(), payload.toCoupon())
	if err != nil {
		if IsDuplicateCode(err) {
			common.JSONError(w, http.StatusConflict, "DUPLICATE_COUPON_CODE", "a coupon with this code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create coupon", nil)
		return
	}
	common.JSONData(w, http.StatusCreated, toResponse(created))
}

// List handles GET /admin/coupons.
func (h *AdminHandlers) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.Store.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list coupons", nil)
		return
	}
	out := make([]couponResponse, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, toResponse(c))
	}
	common.JSONData(w, http.StatusOK, out)
}

// Get handles GET /admin/coupons/{id}.
func (h *AdminHandlers) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toResponse(c))
}

// Update handles PUT /admin/coupons/{id}.
func (h *AdminHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if appErr := h.checkPayload(payload); appErr != nil {
		common.WriteAppError(w, appErr)
		return
	}
	c := payload.toCoupon()
	c.ID = chi.URLParam(r, "id")
	updated, err := h.Store.Update(r.Context(), c)
	if err != nil {
		if IsDuplicateCode(err) {
			common.JSONError(w, http.StatusConflict, "DUPLICATE_COUPON_CODE", "a coupon with this code already exists", nil)
			return
		}
		writeStoreError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toResponse(updated))
}

// Delete handles DELETE /admin/coupons/{id}.
func (h *AdminHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "coupon does not exist", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "coupon operation failed", nil)
}
