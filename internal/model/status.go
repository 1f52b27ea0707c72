package model

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// StatusEvent is an event that drives an order through the state
// machine.
type StatusEvent string

const (
	EventPaymentConfirmed StatusEvent = "payment_confirmed"
	EventCancel           StatusEvent = "cancel"
	EventMarkShipped      StatusEvent = "mark_shipped"
	EventConfirmDelivery  StatusEvent = "confirm_delivery"
	EventCloseBilling     StatusEvent = "close_billing"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// transitions is the legal (status, event) -> status table.
var transitions = map[Status]map[StatusEvent]Status{
	StatusPending: {
		EventPaymentConfirmed: StatusProcessing,
		EventCancel:           StatusCancelled,
	},
	StatusProcessing: {
		EventCancel:      StatusCancelled,
		EventMarkShipped: StatusShipped,
	},
	StatusShipped: {
		EventConfirmDelivery: StatusDelivered,
	},
	StatusDelivered: {
		EventCloseBilling: StatusCompleted,
	},
}

// Transition returns the status reached by applying event to from.
// Any (from, event) pair outside the legal table fails with
// ErrInvalidState and implies the order must be left unchanged.
func Transition(from Status, event StatusEvent) (Status, error) {
	if next, ok := transitions[from][event]; ok {
		return next, nil
	}
	return from, NewInvalidStateError(from, event)
}

// CanCancel reports whether an order in status s may still be
// cancelled. Only orders that have not shipped qualify.
func (s Status) CanCancel() bool {
	return s == StatusPending || s == StatusProcessing
}
