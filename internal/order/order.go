package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vedamart/backend/internal/pricing"
)

// Status is the order lifecycle state.
type Status string

const (
	// StatusPendingPayment is the state between creation and payment.
	StatusPendingPayment Status = "PENDING_PAYMENT"
	// StatusPaid marks a settled order with stock and coupon usage committed.
	StatusPaid Status = "PAID"
	// StatusCancelled marks an abandoned order; nothing was committed.
	StatusCancelled Status = "CANCELLED"
)

// Item is a priced order line frozen at creation time.
type Item struct {
	VariantID    string          `json:"variant_id"`
	ProductName  string          `json:"product_name"`
	MRP          decimal.Decimal `json:"mrp"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// Order is the persisted record of one checkout. The breakdown column keeps
// the full engine result as priced at creation, so later settings or coupon
// edits never change what the buyer was quoted.
type Order struct {
	ID                string          `json:"id"`
	OrderNumber       string          `json:"order_number"`
	UserID            string          `json:"-"`
	Status            Status          `json:"status"`
	PaymentMethod     string          `json:"payment_method"`
	Currency          string          `json:"currency"`
	CouponCode        string          `json:"coupon_code,omitempty"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	MRPTotal          decimal.Decimal `json:"mrp_total"`
	CouponDiscount    decimal.Decimal `json:"coupon_discount"`
	PrepaidDiscount   decimal.Decimal `json:"prepaid_discount"`
	HighValueDiscount decimal.Decimal `json:"high_value_discount"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
	ShippingFee       decimal.Decimal `json:"shipping_fee"`
	CODFee            decimal.Decimal `json:"cod_fee"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
	Breakdown         pricing.Result  `json:"breakdown"`
	Items             []Item          `json:"items,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InvalidPaymentMethodError indicates an order was submitted with a payment
// method the service does not settle. Unlike a preview, an order must commit
// to a concrete method, so an absent one is rejected too.
type InvalidPaymentMethodError struct {
	Method string
}

func (e *InvalidPaymentMethodError) Error() string {
	return fmt.Sprintf("payment method %q is not supported", e.Method)
}

// OutOfStockError indicates payment confirmation lost the race for remaining
// stock of a variant.
type OutOfStockError struct {
	VariantID string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("variant %s went out of stock", e.VariantID)
}

// NotPayableError indicates the order is not in a state that accepts payment.
type NotPayableError struct {
	OrderID string
	Status  Status
}

func (e *NotPayableError) Error() string {
	return fmt.Sprintf("order %s in status %s cannot accept payment", e.OrderID, e.Status)
}
