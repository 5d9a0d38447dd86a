package settings

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedamart/backend/internal/pricing"
)

// settingsID is the key of the singleton pricing configuration row.
const settingsID = "GLOBAL"

// Store persists the pricing settings singleton.
type Store struct {
	Pool *pgxpool.Pool
}

// Get loads the stored settings row. The second return reports whether a row
// exists.
func (s Store) Get(ctx context.Context) (pricing.Settings, bool, error) {
	var out pricing.Settings
	err := s.Pool.QueryRow(ctx, `
		SELECT shipping_threshold, shipping_fee, cod_fee,
		       prepaid_tier1_percent, prepaid_tier2_percent, prepaid_tier2_threshold
		FROM pricing_settings
		WHERE id = $1`, settingsID).
		Scan(&out.ShippingThreshold, &out.ShippingFee, &out.CODFee,
			&out.PrepaidTier1Percent, &out.PrepaidTier2Percent, &out.PrepaidTier2Threshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Settings{}, false, nil
		}
		return pricing.Settings{}, false, err
	}
	return out, true, nil
}

// Upsert stores the settings row, creating it when absent.
func (s Store) Upsert(ctx context.Context, in pricing.Settings) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO pricing_settings (
			id, shipping_threshold, shipping_fee, cod_fee,
			prepaid_tier1_percent, prepaid_tier2_percent, prepaid_tier2_threshold, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			shipping_threshold = EXCLUDED.shipping_threshold,
			shipping_fee = EXCLUDED.shipping_fee,
			cod_fee = EXCLUDED.cod_fee,
			prepaid_tier1_percent = EXCLUDED.prepaid_tier1_percent,
			prepaid_tier2_percent = EXCLUDED.prepaid_tier2_percent,
			prepaid_tier2_threshold = EXCLUDED.prepaid_tier2_threshold,
			updated_at = EXCLUDED.updated_at`,
		settingsID, in.ShippingThreshold, in.ShippingFee, in.CODFee,
		in.PrepaidTier1Percent, in.PrepaidTier2Percent, in.PrepaidTier2Threshold, time.Now().UTC())
	return err
}

// Reader abstracts the store for the provider so tests can supply fixtures.
type Reader interface {
	Get(ctx context.Context) (pricing.Settings, bool, error)
}

// Provider hands the pricing engine an explicit settings snapshot. A missing
// row falls back to the hard-coded defaults; store failures propagate so the
// caller can distinguish infrastructure faults from pricing outcomes.
type Provider struct {
	Store Reader
}

// Settings implements pricing.SettingsSource.
func (p Provider) Settings(ctx context.Context) (pricing.Settings, error) {
	if p.Store == nil {
		return pricing.DefaultSettings(), nil
	}
	stored, ok, err := p.Store.Get(ctx)
	if err != nil {
		return pricing.Settings{}, err
	}
	if !ok {
		return pricing.DefaultSettings(), nil
	}
	return stored, nil
}
