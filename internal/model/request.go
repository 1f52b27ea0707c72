package model

// CreateOrderRequest is the checkout payload. Totals are deliberately
// absent: the server recomputes them and ignores anything a client
// might claim.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress AddressRequest     `json:"shippingAddress" validate:"required"`
	PaymentMethod   string             `json:"paymentMethod" validate:"required,oneof=card mobile_money bank_transfer"`
	PhoneNumber     string             `json:"phoneNumber,omitempty" validate:"required_if=PaymentMethod mobile_money"`
	CardToken       string             `json:"cardToken,omitempty" validate:"required_if=PaymentMethod card"`
}

// OrderItemRequest is a single requested line item.
type OrderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// AddressRequest is the shipping address payload.
type AddressRequest struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// UpdateStatusRequest is the admin status update payload. Event-driven
// updates name an event; Force switches to the override path.
type UpdateStatusRequest struct {
	Event          string  `json:"event,omitempty"`
	Status         string  `json:"status,omitempty"`
	Force          bool    `json:"force,omitempty"`
	TrackingNumber *string `json:"trackingNumber,omitempty"`
}

// CheckoutResponse is returned on successful order creation.
type CheckoutResponse struct {
	Order *Order `json:"order"`
	// PaymentPending is true when the provider resolves the payment
	// asynchronously and the outcome will arrive via callback.
	PaymentPending bool `json:"paymentPending"`
}
