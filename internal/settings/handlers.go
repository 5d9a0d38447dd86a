package settings

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vedamart/backend/internal/common"
	"github.com/vedamart/backend/internal/pricing"
)

// Handlers exposes the admin pricing-settings endpoints.
type Handlers struct {
	Store    Store
	Provider Provider
}

type settingsPayload struct {
	ShippingThreshold     decimal.Decimal `json:"shipping_threshold"`
	ShippingFee           decimal.Decimal `json:"shipping_fee"`
	CODFee                decimal.Decimal `json:"cod_fee"`
	PrepaidTier1Percent   decimal.Decimal `json:"prepaid_tier1_percent"`
	PrepaidTier2Percent   decimal.Decimal `json:"prepaid_tier2_percent"`
	PrepaidTier2Threshold decimal.Decimal `json:"prepaid_tier2_threshold"`
}

func payloadFromSettings(s pricing.Settings) settingsPayload {
	return settingsPayload{
		ShippingThreshold:     s.ShippingThreshold,
		ShippingFee:           s.ShippingFee,
		CODFee:                s.CODFee,
		PrepaidTier1Percent:   s.PrepaidTier1Percent,
		PrepaidTier2Percent:   s.PrepaidTier2Percent,
		PrepaidTier2Threshold: s.PrepaidTier2Threshold,
	}
}

func (p settingsPayload) toSettings() pricing.Settings {
	return pricing.Settings{
		ShippingThreshold:     p.ShippingThreshold,
		ShippingFee:           p.ShippingFee,
		CODFee:                p.CODFee,
		PrepaidTier1Percent:   p.PrepaidTier1Percent,
		PrepaidTier2Percent:   p.PrepaidTier2Percent,
		PrepaidTier2Threshold: p.PrepaidTier2Threshold,
	}
}

func (p settingsPayload) invalid() bool {
	hundred := decimal.NewFromInt(100)
	for _, v := range []decimal.Decimal{
		p.ShippingThreshold, p.ShippingFee, p.CODFee,
		p.PrepaidTier1Percent, p.PrepaidTier2Percent, p.PrepaidTier2Threshold,
	} {
		if v.IsNegative() {
			return true
		}
	}
	return p.PrepaidTier1Percent.GreaterThan(hundred) || p.PrepaidTier2Percent.GreaterThan(hundred)
}

// Get returns the effective settings, defaults included when no row exists.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	current, err := h.Provider.Settings(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load settings", nil)
		return
	}
	common.JSONData(w, http.StatusOK, payloadFromSettings(current))
}

// Put replaces the stored settings row.
func (h *Handlers) Put(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if payload.invalid() {
		common.JSONError(w, http.StatusBadRequest, "INVALID_SETTINGS", "amounts must be non-negative and percentages at most 100", nil)
		return
	}
	if err := h.Store.Upsert(r.Context(), payload.toSettings()); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to store settings", nil)
		return
	}
	common.JSONData(w, http.StatusOK, payload)
}
