package coupon

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vedamart/backend/internal/common"
)

// ErrRedeemConflict is returned when a redemption loses the race for the last
// remaining global use of a coupon.
var ErrRedeemConflict = errors.New("coupon usage limit reached concurrently")

// Store persists coupons and their redemption records. Redemption can run
// inside the order transaction by constructing a Store over the pgx.Tx.
type Store struct {
	DB common.DBTX
}

const couponColumns = `id, code, kind, value, min_order_amount, max_discount,
	expiry_date, usage_limit, per_user_limit, active, used_count, description`

func scanCoupon(row pgx.Row) (Coupon, error) {
	var c Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Kind, &c.Value, &c.MinOrderAmount,
		&c.MaxDiscount, &c.ExpiryDate, &c.UsageLimit, &c.PerUserLimit,
		&c.Active, &c.UsedCount, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, err
	}
	return c, nil
}

// GetByCode fetches a coupon by its canonical code.
func (s Store) GetByCode(ctx context.Context, code string) (Coupon, error) {
	return scanCoupon(s.DB.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1`, NormalizeCode(code)))
}

// GetByID fetches a coupon by primary key.
func (s Store) GetByID(ctx context.Context, id string) (Coupon, error) {
	return scanCoupon(s.DB.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id))
}

// List returns all coupons, newest first.
func (s Store) List(ctx context.Context) ([]Coupon, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Coupon
	for rows.Next() {
		var c Coupon
		if err := rows.Scan(&c.ID, &c.Code, &c.Kind, &c.Value, &c.MinOrderAmount,
			&c.MaxDiscount, &c.ExpiryDate, &c.UsageLimit, &c.PerUserLimit,
			&c.Active, &c.UsedCount, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountUsageByUser counts prior redemptions of a coupon by one user.
func (s Store) CountUsageByUser(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_usage WHERE coupon_id = $1 AND user_id = $2`,
		couponID, userID).Scan(&n)
	return n, err
}

// Redeem increments used_count only while the global quota still has room.
// The guard in the WHERE clause makes concurrent last-use redemptions lose
// cleanly instead of overshooting the limit.
func (s Store) Redeem(ctx context.Context, couponID string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND active
		  AND (usage_limit IS NULL OR usage_limit <= 0 OR used_count < usage_limit)`,
		couponID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRedeemConflict
	}
	return nil
}

// Usage is one recorded redemption of a coupon against an order.
type Usage struct {
	CouponID       string
	CouponCode     string
	UserID         string
	OrderID        string
	OrderAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
}

// InsertUsage records one redemption. The unique (coupon_id, order_id) index
// makes repeated settlement of the same order a no-op.
func (s Store) InsertUsage(ctx context.Context, u Usage) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO coupon_usage (coupon_id, coupon_code, user_id, order_id, order_amount, discount_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (coupon_id, order_id) DO NOTHING`,
		u.CouponID, u.CouponCode, u.UserID, u.OrderID, u.OrderAmount, u.DiscountAmount)
	return err
}

// Create inserts a new coupon and returns the stored row.
func (s Store) Create(ctx context.Context, c Coupon) (Coupon, error) {
	return scanCoupon(s.DB.QueryRow(ctx, `
		INSERT INTO coupons (code, kind, value, min_order_amount, max_discount,
			expiry_date, usage_limit, per_user_limit, active, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+couponColumns,
		NormalizeCode(c.Code), c.Kind, c.Value, c.MinOrderAmount, c.MaxDiscount,
		c.ExpiryDate, c.UsageLimit, c.PerUserLimit, c.Active, c.Description))
}

// Update rewrites a coupon's mutable fields, preserving used_count.
func (s Store) Update(ctx context.Context, c Coupon) (Coupon, error) {
	return scanCoupon(s.DB.QueryRow(ctx, `
		UPDATE coupons
		SET code = $2, kind = $3, value = $4, min_order_amount = $5,
		    max_discount = $6, expiry_date = $7, usage_limit = $8,
		    per_user_limit = $9, active = $10, description = $11,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+couponColumns,
		c.ID, NormalizeCode(c.Code), c.Kind, c.Value, c.MinOrderAmount,
		c.MaxDiscount, c.ExpiryDate, c.UsageLimit, c.PerUserLimit,
		c.Active, c.Description))
}

// Delete removes a coupon. Historical usage rows are kept for order audit.
func (s Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsDuplicateCode reports whether err is the unique-code violation.
func IsDuplicateCode(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
