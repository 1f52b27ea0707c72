// Package payment unifies heterogeneous payment providers behind one
// initiate contract. Card capture is synchronous, mobile money pushes
// resolve later through a provider callback, and bank transfers are
// settled manually by an administrator.
package payment

import (
	"context"

	"shopfront/internal/model"
)

// ResultStatus is the immediate outcome of an initiate call.
type ResultStatus string

const (
	// ResultCompleted means the payment settled synchronously.
	ResultCompleted ResultStatus = "completed"
	// ResultPending means the outcome arrives later, either via a
	// provider callback correlated by Result.CorrelationKey or via an
	// out-of-band administrative update.
	ResultPending ResultStatus = "pending"
)

// InitiateRequest carries everything an adapter needs to start a
// payment attempt.
type InitiateRequest struct {
	Method   model.PaymentMethod
	Amount   float64
	Currency string
	// Reference is a human-readable correlation hint (the order
	// number) passed through to the provider.
	Reference string

	// PhoneNumber is required for mobile money pushes.
	PhoneNumber string
	// CardToken is required for card charges.
	CardToken string
}

// Result is the immediate outcome of an initiate call.
type Result struct {
	Status        ResultStatus
	ProviderTxnID string
	// CorrelationKey is the provider-issued id an asynchronous
	// callback will carry. Empty for synchronous and manual methods.
	CorrelationKey string
}

// Gateway initiates a payment with one provider.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (Result, error)
}

// Registry dispatches initiate calls to the adapter registered for
// the request's payment method.
type Registry struct {
	gateways map[model.PaymentMethod]Gateway
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[model.PaymentMethod]Gateway)}
}

// Register binds a gateway to a payment method.
func (r *Registry) Register(method model.PaymentMethod, gateway Gateway) {
	r.gateways[method] = gateway
}

// Initiate dispatches to the adapter for req.Method.
func (r *Registry) Initiate(ctx context.Context, req InitiateRequest) (Result, error) {
	gateway, ok := r.gateways[req.Method]
	if !ok {
		return Result{}, model.NewUnsupportedMethodError(string(req.Method))
	}
	return gateway.Initiate(ctx, req)
}
