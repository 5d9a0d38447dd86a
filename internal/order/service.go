package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vedamart/backend/internal/coupon"
	"github.com/vedamart/backend/internal/obs"
	"github.com/vedamart/backend/internal/pricing"
)

// CreateInput is the cart snapshot an order is created from.
type CreateInput struct {
	Items         []pricing.LineItem `json:"items"`
	PaymentMethod string             `json:"payment_method"`
	CouponCode    string             `json:"coupon_code"`
}

// stockInvalidator drops cached variant entries after their stock changed.
type stockInvalidator interface {
	Invalidate(ctx context.Context, ids ...string)
}

// Service owns the order lifecycle. Creation re-prices the cart through the
// engine so a tampered client total can never be persisted; payment
// confirmation commits stock and coupon usage in one transaction.
type Service struct {
	Pool     *pgxpool.Pool
	Store    Store
	Engine   *pricing.Engine
	Coupons  *coupon.Service
	Catalog  stockInvalidator
	Currency string
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) currency() string {
	if s.Currency != "" {
		return s.Currency
	}
	return "INR"
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// generateOrderNumber builds a human-readable unique reference like
// VM-20250601-1A2B3C4D.
func (s *Service) generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("VM-%s-%s", s.now().Format("20060102"), suffix)
}

// Create prices the cart and persists a PENDING_PAYMENT order. Nothing is
// reserved yet; stock and coupon quota commit at payment time.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Order, error) {
	method := pricing.PaymentMethod(in.PaymentMethod)
	if method != pricing.PaymentPrepaid && method != pricing.PaymentCOD {
		return Order{}, &InvalidPaymentMethodError{Method: in.PaymentMethod}
	}
	result, err := s.Engine.Calculate(ctx, pricing.Input{
		Items:         in.Items,
		PaymentMethod: method,
		CouponCode:    in.CouponCode,
		UserID:        userID,
	})
	if err != nil {
		return Order{}, err
	}

	o := Order{
		OrderNumber:       s.generateOrderNumber(),
		UserID:            userID,
		Status:            StatusPendingPayment,
		PaymentMethod:     string(method),
		Currency:          s.currency(),
		Subtotal:          result.Subtotal,
		MRPTotal:          result.MRPTotal,
		CouponDiscount:    result.Discounts.CouponDiscount,
		PrepaidDiscount:   result.Discounts.PrepaidDiscount,
		HighValueDiscount: result.Discounts.HighValueDiscount,
		TotalDiscount:     result.Discounts.TotalDiscount,
		ShippingFee:       result.Charges.Shipping,
		CODFee:            result.Charges.CODFee,
		GrandTotal:        result.GrandTotal,
		Breakdown:         result,
	}
	if result.Coupon != nil {
		o.CouponCode = result.Coupon.Code
	}

	items := make([]Item, 0, len(result.Items))
	for _, line := range result.Items {
		qty := decimal.NewFromInt(int64(line.Quantity))
		items = append(items, Item{
			VariantID:    line.VariantID,
			ProductName:  line.ProductName,
			MRP:          line.MRP,
			SellingPrice: line.SellingPrice,
			Quantity:     line.Quantity,
			LineTotal:    line.SellingPrice.Mul(qty).Round(2),
		})
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stored, err := s.Store.Insert(ctx, tx, o)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	if err := s.Store.InsertItems(ctx, tx, stored.ID, items); err != nil {
		return Order{}, fmt.Errorf("insert order items: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit order: %w", err)
	}
	stored.Items = items
	return stored, nil
}

// ConfirmPayment moves a pending order to PAID, decrementing stock and
// settling the coupon under one transaction. Confirming an already paid order
// returns it unchanged so payment webhooks can retry safely.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, userID string) (Order, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin payment tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.Store.GetForUpdate(ctx, tx, orderID, userID)
	if err != nil {
		return Order{}, err
	}
	if o.Status == StatusPaid {
		o.Items, err = s.Store.items(ctx, tx, o.ID)
		if err != nil {
			return Order{}, err
		}
		return o, nil
	}
	if o.Status != StatusPendingPayment {
		countCommit("not_payable")
		return Order{}, &NotPayableError{OrderID: o.ID, Status: o.Status}
	}

	items, err := s.Store.items(ctx, tx, o.ID)
	if err != nil {
		return Order{}, err
	}
	for _, item := range items {
		if err := s.commitStock(ctx, tx, item); err != nil {
			return Order{}, err
		}
	}

	if o.CouponCode != "" {
		err := s.Coupons.Settle(ctx, tx, o.CouponCode, o.ID, o.UserID, o.Subtotal, o.CouponDiscount)
		if err != nil {
			if errors.Is(err, coupon.ErrRedeemConflict) {
				countCommit("coupon_conflict")
			}
			return Order{}, err
		}
	}

	paid, err := s.Store.SetStatus(ctx, tx, o.ID, StatusPaid)
	if err != nil {
		return Order{}, fmt.Errorf("mark order paid: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit payment: %w", err)
	}

	countCommit("ok")
	s.invalidateStock(ctx, items)
	s.Logger.Info().Str("order_id", paid.ID).Str("order_number", paid.OrderNumber).
		Msg("order paid")
	paid.Items = items
	return paid, nil
}

// invalidateStock evicts the sold variants from the catalog cache so the next
// preview sees the decremented stock instead of a stale in-stock entry.
func (s *Service) invalidateStock(ctx context.Context, items []Item) {
	if s.Catalog == nil || len(items) == 0 {
		return
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariantID)
	}
	s.Catalog.Invalidate(ctx, ids...)
}

func (s *Service) commitStock(ctx context.Context, tx pgx.Tx, item Item) error {
	err := s.Store.DecrementStock(ctx, tx, item.VariantID, item.Quantity)
	if err != nil {
		var oos *OutOfStockError
		if errors.As(err, &oos) {
			countCommit("out_of_stock")
		}
		return err
	}
	return nil
}

// Get returns one of the user's orders with its items.
func (s *Service) Get(ctx context.Context, orderID, userID string) (Order, error) {
	return s.Store.Get(ctx, s.Pool, orderID, userID)
}

// List returns the user's order history.
func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	return s.Store.ListByUser(ctx, s.Pool, userID)
}

func countCommit(result string) {
	if obs.OrderCommitTotal != nil {
		obs.OrderCommitTotal.WithLabelValues(result).Inc()
	}
}
