package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/email"
	"shopfront/internal/inventory"
	"shopfront/internal/model"
	"shopfront/internal/notify"
	"shopfront/internal/payment"
	"shopfront/internal/rates"
	"shopfront/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	ledger    inventory.Ledger
	quoter    rates.Quoter
	payments  PaymentInitiator
	publisher notify.Publisher
	emailer   email.Sender
	validate  *validator.Validate
	currency  string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new checkout orchestrator.
func NewCheckoutService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	ledger inventory.Ledger,
	quoter rates.Quoter,
	payments PaymentInitiator,
	publisher notify.Publisher,
	emailer email.Sender,
	currency string,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		orders:    orders,
		products:  products,
		ledger:    ledger,
		quoter:    quoter,
		payments:  payments,
		publisher: publisher,
		emailer:   emailer,
		validate:  validator.New(),
		currency:  currency,
		logger:    logger.With().Str("service", "checkout").Logger(),
		now:       time.Now,
	}
}

// CreateOrder validates the cart, reserves stock, persists the order
// and initiates payment.
func (s *checkoutService) CreateOrder(ctx context.Context, identity *auth.Identity, req *model.CreateOrderRequest) (*model.CheckoutResponse, error) {
	if req == nil {
		return nil, model.NewDomainError(model.ErrCodeValidation, "order request is nil")
	}
	if err := s.validate.Struct(req); err != nil {
		s.logger.Warn().Err(err).Str("user_id", identity.UserID).Msg("invalid checkout request")
		return nil, model.NewDomainError(model.ErrCodeValidation, validationMessage(err))
	}

	method := model.PaymentMethod(req.PaymentMethod)

	// Snapshot the products named by the cart.
	productIDs := make([]string, len(req.Items))
	for i, item := range req.Items {
		productIDs[i] = item.ProductID
	}
	products, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range productIDs {
		if _, ok := byID[id]; !ok {
			s.logger.Warn().Str("product_id", id).Msg("unknown product in cart")
			return nil, model.ErrProductNotFound
		}
	}

	now := s.now()
	orderID := uuid.New()
	items := make([]model.OrderItem, len(req.Items))
	reservation := make([]model.ReservationItem, len(req.Items))
	for i, item := range req.Items {
		p := byID[item.ProductID]
		items[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
			Image:     p.Image,
		}
		reservation[i] = model.ReservationItem{ProductID: p.ID, Quantity: item.Quantity}
	}

	// Reserve before persisting anything: a cart that cannot be
	// covered never becomes an order.
	if err := s.ledger.Reserve(ctx, reservation); err != nil {
		var short *model.InsufficientStockError
		if errors.As(err, &short) {
			s.logger.Info().
				Str("user_id", identity.UserID).
				Int("short_items", len(short.Shortages)).
				Msg("checkout rejected, insufficient stock")
		}
		return nil, err
	}

	order := &model.Order{
		ID:          orderID,
		OrderNumber: model.NewOrderNumber(now),
		UserID:      identity.UserID,
		Items:       items,
		ShippingAddress: model.Address{
			Street:     req.ShippingAddress.Street,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: method,
		Payment:       model.PaymentRecord{Status: model.PaymentPending},
		Status:        model.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var subtotal float64
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}
	quote := s.quoter.Quote(order.ShippingAddress, items, subtotal)
	shipping := 0.0
	if len(quote.ShippingOptions) > 0 {
		shipping = quote.ShippingOptions[0].Price
	}
	order.ComputeTotals(shipping, subtotal*quote.TaxRate)

	if err := s.orders.Create(ctx, order); err != nil {
		// The reservation is already held; give it back.
		if relErr := s.ledger.Release(ctx, reservation); relErr != nil {
			s.logger.Error().Err(relErr).
				Str("order_id", orderID.String()).
				Msg("failed to release reservation after persist failure")
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.publisher.Publish(model.NewNotification(model.AudienceAdmin, model.NotifyOrderCreated, map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"userId":      order.UserID,
		"total":       order.TotalPrice,
	}))
	s.emailer.Send(ctx, order.UserID, email.TemplateOrderConfirmation, map[string]any{
		"orderNumber": order.OrderNumber,
		"total":       order.TotalPrice,
	})

	pending, err := s.initiatePayment(ctx, order, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("method", string(method)).
		Float64("total", order.TotalPrice).
		Msg("order created")

	return &model.CheckoutResponse{Order: order, PaymentPending: pending}, nil
}

// RetryPayment re-initiates payment on an existing unpaid order. The
// stock reserved at creation stays held throughout, so no
// availability check happens here.
func (s *checkoutService) RetryPayment(ctx context.Context, identity *auth.Identity, orderID uuid.UUID, req *model.CreateOrderRequest) (*model.CheckoutResponse, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.UserID != identity.UserID && !identity.Admin() {
		return nil, model.ErrForbidden
	}
	if order.Status != model.StatusPending || order.Payment.Status == model.PaymentCompleted {
		return nil, model.NewInvalidStateError(order.Status, model.EventPaymentConfirmed)
	}

	// A fresh attempt gets fresh correlation state.
	order.Payment = model.PaymentRecord{Status: model.PaymentPending}

	retryReq := &model.CreateOrderRequest{PaymentMethod: string(order.PaymentMethod)}
	if req != nil {
		retryReq.PhoneNumber = req.PhoneNumber
		retryReq.CardToken = req.CardToken
	}

	pending, err := s.initiatePayment(ctx, order, retryReq)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("method", string(order.PaymentMethod)).
		Msg("payment retried")

	return &model.CheckoutResponse{Order: order, PaymentPending: pending}, nil
}

// initiatePayment drives the gateway and persists the outcome on the
// order. Returns whether the payment is still pending an external
// resolution.
func (s *checkoutService) initiatePayment(ctx context.Context, order *model.Order, req *model.CreateOrderRequest) (bool, error) {
	result, err := s.payments.Initiate(ctx, payment.InitiateRequest{
		Method:      order.PaymentMethod,
		Amount:      order.TotalPrice,
		Currency:    s.currency,
		Reference:   order.OrderNumber,
		PhoneNumber: req.PhoneNumber,
		CardToken:   req.CardToken,
	})
	if err != nil {
		now := s.now()
		var payErr *model.PaymentError
		if errors.As(err, &payErr) {
			order.MarkPaymentFailed(payErr.Reason, now)
			if updErr := s.orders.Update(ctx, order); updErr != nil {
				s.logger.Error().Err(updErr).
					Str("order_id", order.ID.String()).
					Msg("failed to record payment failure")
			}
			s.publisher.Publish(model.NewNotification(order.UserID, model.NotifyPaymentFailed, map[string]any{
				"orderId":     order.ID.String(),
				"orderNumber": order.OrderNumber,
				"reason":      payErr.Reason,
			}))
			s.emailer.Send(ctx, order.UserID, email.TemplatePaymentFailed, map[string]any{
				"orderNumber": order.OrderNumber,
				"reason":      payErr.Reason,
			})
		}
		return false, err
	}

	now := s.now()
	switch result.Status {
	case payment.ResultCompleted:
		if err := order.MarkPaid(result.ProviderTxnID, now); err != nil {
			return false, err
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return false, fmt.Errorf("failed to record payment: %w", err)
		}
		s.publisher.Publish(model.NewNotification(order.UserID, model.NotifyPaymentCompleted, map[string]any{
			"orderId":     order.ID.String(),
			"orderNumber": order.OrderNumber,
		}))
		s.emailer.Send(ctx, order.UserID, email.TemplatePaymentReceipt, map[string]any{
			"orderNumber": order.OrderNumber,
			"total":       order.TotalPrice,
		})
		return false, nil

	case payment.ResultPending:
		order.Payment.CorrelationKey = result.CorrelationKey
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return false, fmt.Errorf("failed to record pending payment: %w", err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("unexpected payment result status: %s", result.Status)
	}
}

// validationMessage flattens a validator error into one actionable
// message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return fmt.Sprintf("field %s failed validation (%s)", first.Field(), first.Tag())
	}
	return err.Error()
}
