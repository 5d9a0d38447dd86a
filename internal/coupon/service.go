package coupon

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vedamart/backend/internal/common"
)

// Service adapts the store to the lookup shape the pricing engine consumes
// and owns redemption at settlement time.
type Service struct {
	Store Store
}

// Coupon resolves a code to its stored record. The code is normalised before
// lookup so "save10 " and "SAVE10" hit the same row.
func (s *Service) Coupon(ctx context.Context, code string) (Coupon, error) {
	return s.Store.GetByCode(ctx, code)
}

// UserUsage counts how many times the user already redeemed the coupon.
func (s *Service) UserUsage(ctx context.Context, couponID, userID string) (int, error) {
	return s.Store.CountUsageByUser(ctx, couponID, userID)
}

// Settle records a redemption atomically against the given executor, which is
// expected to be the order payment transaction. It bumps the global counter
// under the quota guard and writes the usage row keyed by order so replays
// are no-ops.
func (s *Service) Settle(ctx context.Context, db common.DBTX, code, orderID, userID string, orderAmount, discount decimal.Decimal) error {
	store := Store{DB: db}
	c, err := store.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("settle coupon %s: %w", NormalizeCode(code), err)
	}
	if err := store.Redeem(ctx, c.ID); err != nil {
		return fmt.Errorf("settle coupon %s: %w", c.Code, err)
	}
	return store.InsertUsage(ctx, Usage{
		CouponID:       c.ID,
		CouponCode:     c.Code,
		UserID:         userID,
		OrderID:        orderID,
		OrderAmount:    orderAmount,
		DiscountAmount: discount,
	})
}
