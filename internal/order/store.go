package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vedamart/backend/internal/common"
)

// ErrNotFound is returned when no order matches the id for the given user.
var ErrNotFound = errors.New("order not found")

// Store persists orders and their items. Methods take the executor explicitly
// so creation and settlement can run inside one transaction.
type Store struct{}

const orderColumns = `id, order_number, user_id, status, payment_method, currency,
	coupon_code, subtotal, mrp_total, coupon_discount, prepaid_discount,
	high_value_discount, total_discount, shipping_fee, cod_fee, grand_total,
	breakdown, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentMethod,
		&o.Currency, &o.CouponCode, &o.Subtotal, &o.MRPTotal, &o.CouponDiscount,
		&o.PrepaidDiscount, &o.HighValueDiscount, &o.TotalDiscount, &o.ShippingFee,
		&o.CODFee, &o.GrandTotal, &o.Breakdown, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

// Insert writes the order header and returns the stored row.
func (Store) Insert(ctx context.Context, db common.DBTX, o Order) (Order, error) {
	return scanOrder(db.QueryRow(ctx, `
		INSERT INTO orders (order_number, user_id, status, payment_method, currency,
			coupon_code, subtotal, mrp_total, coupon_discount, prepaid_discount,
			high_value_discount, total_discount, shipping_fee, cod_fee, grand_total, breakdown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+orderColumns,
		o.OrderNumber, o.UserID, o.Status, o.PaymentMethod, o.Currency,
		o.CouponCode, o.Subtotal, o.MRPTotal, o.CouponDiscount, o.PrepaidDiscount,
		o.HighValueDiscount, o.TotalDiscount, o.ShippingFee, o.CODFee, o.GrandTotal,
		o.Breakdown))
}

// InsertItems writes the order lines.
func (Store) InsertItems(ctx context.Context, db common.DBTX, orderID string, items []Item) error {
	for _, item := range items {
		_, err := db.Exec(ctx, `
			INSERT INTO order_items (order_id, variant_id, product_name, mrp, selling_price, quantity, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			orderID, item.VariantID, item.ProductName, item.MRP, item.SellingPrice,
			item.Quantity, item.LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetForUpdate locks the order row for the settlement transaction.
func (Store) GetForUpdate(ctx context.Context, db common.DBTX, orderID, userID string) (Order, error) {
	return scanOrder(db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`, orderID, userID))
}

// Get fetches one order with its items.
func (s Store) Get(ctx context.Context, db common.DBTX, orderID, userID string) (Order, error) {
	o, err := scanOrder(db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id = $1 AND user_id = $2`, orderID, userID))
	if err != nil {
		return Order{}, err
	}
	o.Items, err = s.items(ctx, db, o.ID)
	return o, err
}

// ListByUser returns the user's orders newest first, without items.
func (Store) ListByUser(ctx context.Context, db common.DBTX, userID string) ([]Order, error) {
	rows, err := db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentMethod,
			&o.Currency, &o.CouponCode, &o.Subtotal, &o.MRPTotal, &o.CouponDiscount,
			&o.PrepaidDiscount, &o.HighValueDiscount, &o.TotalDiscount, &o.ShippingFee,
			&o.CODFee, &o.GrandTotal, &o.Breakdown, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (Store) items(ctx context.Context, db common.DBTX, orderID string) ([]Item, error) {
	rows, err := db.Query(ctx, `
		SELECT variant_id, product_name, mrp, selling_price, quantity, line_total
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.VariantID, &item.ProductName, &item.MRP,
			&item.SellingPrice, &item.Quantity, &item.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// SetStatus transitions the order and returns the updated row.
func (Store) SetStatus(ctx context.Context, db common.DBTX, orderID string, status Status) (Order, error) {
	return scanOrder(db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, orderID, status))
}

// DecrementStock reserves stock for one line. The WHERE guard makes the last
// unit go to exactly one concurrent buyer.
func (Store) DecrementStock(ctx context.Context, db common.DBTX, variantID string, qty int) error {
	tag, err := db.Exec(ctx, `
		UPDATE variants
		SET stock = stock - $2, in_stock = (stock - $2) > 0, updated_at = now()
		WHERE id = $1 AND is_active AND in_stock AND stock >= $2`,
		variantID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &OutOfStockError{VariantID: variantID}
	}
	return nil
}
