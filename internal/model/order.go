package model

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod tags how an order is paid.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodMobileMoney, MethodBankTransfer:
		return true
	}
	return false
}

// PaymentStatus is the state of a single payment attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Terminal reports whether the payment attempt is resolved. A
// terminal payment record is never mutated again; this is the
// idempotency guard against duplicate provider callbacks.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// PaymentRecord is the provider correlation state embedded in an
// order. CorrelationKey is the join key an asynchronous callback is
// matched on and must be unique per in-flight attempt.
type PaymentRecord struct {
	Status         PaymentStatus `json:"status" db:"payment_status"`
	ProviderTxnID  string        `json:"providerTxnId,omitempty" db:"payment_txn_id"`
	CorrelationKey string        `json:"-" db:"payment_correlation_key"`
	FailureReason  string        `json:"failureReason,omitempty" db:"payment_failure_reason"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty" db:"payment_completed_at"`
}

// Address is a shipping address. All fields are required.
type Address struct {
	Street     string `json:"street" db:"street"`
	City       string `json:"city" db:"city"`
	PostalCode string `json:"postalCode" db:"postal_code"`
	Country    string `json:"country" db:"country"`
}

// OrderItem is one line of an order. Name, price and image are
// snapshots taken at creation time; quantity is immutable after
// creation.
type OrderItem struct {
	ID        uuid.UUID `json:"-" db:"id"`
	OrderID   uuid.UUID `json:"-" db:"order_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	UnitPrice float64   `json:"unitPrice" db:"unit_price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Image     string    `json:"image" db:"image"`
}

// Order is the aggregate root for the order lifecycle.
type Order struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	OrderNumber     string        `json:"orderNumber" db:"order_number"`
	UserID          string        `json:"userId" db:"user_id"`
	Items           []OrderItem   `json:"items"`
	ShippingAddress Address       `json:"shippingAddress"`
	PaymentMethod   PaymentMethod `json:"paymentMethod" db:"payment_method"`
	Payment         PaymentRecord `json:"payment"`

	ItemsPrice    float64 `json:"itemsPrice" db:"items_price"`
	ShippingPrice float64 `json:"shippingPrice" db:"shipping_price"`
	TaxPrice      float64 `json:"taxPrice" db:"tax_price"`
	TotalPrice    float64 `json:"totalPrice" db:"total_price"`

	Status         Status     `json:"status" db:"status"`
	IsPaid         bool       `json:"isPaid" db:"is_paid"`
	PaidAt         *time.Time `json:"paidAt,omitempty" db:"paid_at"`
	IsDelivered    bool       `json:"isDelivered" db:"is_delivered"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty" db:"delivered_at"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`
	TrackingNumber *string    `json:"trackingNumber,omitempty" db:"tracking_number"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// NewOrderNumber generates a human-readable order number of the form
// ORD-<8-digit-time-suffix>-<3-digit-random>.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%08d-%03d", now.Unix()%100_000_000, rand.Intn(1000))
}

// ComputeTotals recomputes the order totals from its line items and
// the given shipping and tax amounts. Totals are never accepted from
// a client; every persist path calls this.
func (o *Order) ComputeTotals(shippingPrice, taxPrice float64) {
	var itemsPrice float64
	for _, item := range o.Items {
		itemsPrice += item.UnitPrice * float64(item.Quantity)
	}
	o.ItemsPrice = round2(itemsPrice)
	o.ShippingPrice = round2(shippingPrice)
	o.TaxPrice = round2(taxPrice)
	o.TotalPrice = round2(o.ItemsPrice + o.ShippingPrice + o.TaxPrice)
}

// ReservationItems returns the (product, quantity) pairs the order
// holds reserved.
func (o *Order) ReservationItems() []ReservationItem {
	items := make([]ReservationItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = ReservationItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return items
}

// Apply advances the order through the state machine. Illegal
// transitions fail with InvalidStateError and leave the order
// unchanged. Dependent flags move with the status in the same call:
// delivery sets isDelivered/deliveredAt, cancellation sets
// cancelledAt.
func (o *Order) Apply(event StatusEvent, now time.Time) error {
	next, err := Transition(o.Status, event)
	if err != nil {
		return err
	}

	o.Status = next
	o.UpdatedAt = now

	switch next {
	case StatusDelivered:
		o.IsDelivered = true
		o.DeliveredAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
	}

	return nil
}

// MarkPaid records a completed payment and advances the order to
// processing.
func (o *Order) MarkPaid(providerTxnID string, now time.Time) error {
	if err := o.Apply(EventPaymentConfirmed, now); err != nil {
		return err
	}

	o.Payment.Status = PaymentCompleted
	o.Payment.ProviderTxnID = providerTxnID
	o.Payment.CompletedAt = &now
	o.IsPaid = true
	o.PaidAt = &now

	return nil
}

// MarkPaymentFailed records a failed payment attempt. The order
// status is left untouched: a failed payment is not a cancellation,
// and the reserved stock stays held for a retry.
func (o *Order) MarkPaymentFailed(reason string, now time.Time) {
	o.Payment.Status = PaymentFailed
	o.Payment.FailureReason = reason
	o.Payment.CompletedAt = &now
	o.UpdatedAt = now
}

// Override forces the order to the given status outside the
// event-driven path. Both the current and the target status must be
// non-terminal. Dependent flags and timestamps are fixed up within
// the same operation so the aggregate never ends up internally
// inconsistent.
func (o *Order) Override(to Status, now time.Time) error {
	if !to.Valid() {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("unknown status: %s", to))
	}
	if o.Status.Terminal() || to.Terminal() {
		return NewInvalidStateError(o.Status, StatusEvent("override:"+string(to)))
	}

	o.Status = to
	o.UpdatedAt = now

	switch to {
	case StatusDelivered:
		o.IsDelivered = true
		o.DeliveredAt = &now
		if !o.IsPaid {
			o.IsPaid = true
			o.PaidAt = &now
		}
	case StatusShipped, StatusProcessing:
		o.IsDelivered = false
		o.DeliveredAt = nil
	case StatusPending:
		o.IsDelivered = false
		o.DeliveredAt = nil
	}

	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
