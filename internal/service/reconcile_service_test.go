package service

import (
	"context"
	"testing"

	"shopfront/internal/email"
	"shopfront/internal/model"
	"shopfront/internal/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func successCallback(key string) *payment.Callback {
	return &payment.Callback{Body: payment.CallbackBody{StkCallback: payment.StkCallback{
		MerchantRequestID: "mr-1",
		CheckoutRequestID: key,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: &payment.CallbackMetadata{Item: []payment.MetadataItem{
			{Name: "Amount", Value: 540.0},
			{Name: "MpesaReceiptNumber", Value: "NLJ7RT61SV"},
			{Name: "PhoneNumber", Value: "254712345678"},
		}},
	}}}
}

func failureCallback(key string) *payment.Callback {
	return &payment.Callback{Body: payment.CallbackBody{StkCallback: payment.StkCallback{
		MerchantRequestID: "mr-1",
		CheckoutRequestID: key,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	}}}
}

func pendingMpesaOrder(key string) *model.Order {
	return &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-00000001-001",
		UserID:        "user-42",
		Status:        model.StatusPending,
		PaymentMethod: model.MethodMobileMoney,
		Payment: model.PaymentRecord{
			Status:         model.PaymentPending,
			CorrelationKey: key,
		},
		Items: []model.OrderItem{{ProductID: "P001", Quantity: 2}},
	}
}

func newReconcileFixture(t *testing.T) (ReconcileService, *MockOrderRepository, *MockCallbackLog, *fakePublisher, *fakeEmailer) {
	t.Helper()
	orders := new(MockOrderRepository)
	callbackLog := new(MockCallbackLog)
	publisher := &fakePublisher{}
	emailer := &fakeEmailer{}

	svc := NewReconcileService(orders, callbackLog, publisher, emailer, zerolog.Nop())
	return svc, orders, callbackLog, publisher, emailer
}

func TestReconcileService_SuccessCallback(t *testing.T) {
	ctx := context.Background()
	svc, orders, callbackLog, publisher, emailer := newReconcileFixture(t)

	order := pendingMpesaOrder("ws_CO_1")
	callbackLog.On("Seen", ctx, "ws_CO_1").Return(false)
	orders.On("GetByCorrelationKey", ctx, "ws_CO_1").Return(order, nil)
	orders.On("Update", ctx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Payment.Status == model.PaymentCompleted &&
			o.Payment.ProviderTxnID == "NLJ7RT61SV" &&
			o.Status == model.StatusProcessing &&
			o.IsPaid
	})).Return(nil)
	callbackLog.On("Record", ctx, "ws_CO_1")

	err := svc.HandleMpesaCallback(ctx, successCallback("ws_CO_1"))

	require.NoError(t, err)
	// Owner and admin audiences are both notified.
	assert.Len(t, publisher.byType(model.NotifyPaymentCompleted), 2)
	assert.Contains(t, emailer.sent, email.TemplatePaymentReceipt)
	orders.AssertExpectations(t)
	callbackLog.AssertExpectations(t)
}

func TestReconcileService_FailureCallbackKeepsOrderPending(t *testing.T) {
	ctx := context.Background()
	svc, orders, callbackLog, publisher, _ := newReconcileFixture(t)

	order := pendingMpesaOrder("ws_CO_1")
	callbackLog.On("Seen", ctx, "ws_CO_1").Return(false)
	orders.On("GetByCorrelationKey", ctx, "ws_CO_1").Return(order, nil)
	orders.On("Update", ctx, mock.MatchedBy(func(o *model.Order) bool {
		// The order keeps its status; only the payment record moves.
		return o.Status == model.StatusPending &&
			o.Payment.Status == model.PaymentFailed &&
			o.Payment.FailureReason == "Request cancelled by user" &&
			!o.IsPaid
	})).Return(nil)
	callbackLog.On("Record", ctx, "ws_CO_1")

	err := svc.HandleMpesaCallback(ctx, failureCallback("ws_CO_1"))

	require.NoError(t, err)
	assert.Len(t, publisher.byType(model.NotifyPaymentFailed), 1)
	assert.Empty(t, publisher.byType(model.NotifyOrderCancelled))
	orders.AssertExpectations(t)
}

func TestReconcileService_DuplicateCallbackIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, orders, callbackLog, publisher, emailer := newReconcileFixture(t)

	// The payment already settled; the duplicate must change nothing.
	order := pendingMpesaOrder("ws_CO_1")
	order.Payment.Status = model.PaymentCompleted
	order.Status = model.StatusProcessing

	callbackLog.On("Seen", ctx, "ws_CO_1").Return(true)
	orders.On("GetByCorrelationKey", ctx, "ws_CO_1").Return(order, nil)

	err := svc.HandleMpesaCallback(ctx, successCallback("ws_CO_1"))

	require.NoError(t, err)
	orders.AssertNotCalled(t, "Update")
	assert.Empty(t, publisher.events)
	assert.Empty(t, emailer.sent)
}

func TestReconcileService_FailureThenSuccessFirstWins(t *testing.T) {
	ctx := context.Background()
	svc, orders, callbackLog, publisher, _ := newReconcileFixture(t)

	// The payment already failed; a late success callback for the
	// same attempt does not resurrect it.
	order := pendingMpesaOrder("ws_CO_1")
	order.Payment.Status = model.PaymentFailed

	callbackLog.On("Seen", ctx, "ws_CO_1").Return(true)
	orders.On("GetByCorrelationKey", ctx, "ws_CO_1").Return(order, nil)

	err := svc.HandleMpesaCallback(ctx, successCallback("ws_CO_1"))

	require.NoError(t, err)
	orders.AssertNotCalled(t, "Update")
	assert.Empty(t, publisher.byType(model.NotifyPaymentCompleted))
	assert.Equal(t, model.PaymentFailed, order.Payment.Status)
}

func TestReconcileService_UnmatchedCallbackAcknowledged(t *testing.T) {
	ctx := context.Background()
	svc, orders, callbackLog, publisher, _ := newReconcileFixture(t)

	callbackLog.On("Seen", ctx, "ws_CO_unknown").Return(false)
	orders.On("GetByCorrelationKey", ctx, "ws_CO_unknown").Return(nil, nil)

	err := svc.HandleMpesaCallback(ctx, successCallback("ws_CO_unknown"))

	require.NoError(t, err)
	orders.AssertNotCalled(t, "Update")
	assert.Empty(t, publisher.events)
}

func TestReconcileService_MalformedCallbackRejected(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, _, _ := newReconcileFixture(t)

	err := svc.HandleMpesaCallback(ctx, &payment.Callback{})

	require.Error(t, err)
	orders.AssertNotCalled(t, "GetByCorrelationKey")
}

func TestReconcileService_SuccessForCancelledOrderRecordsSettlement(t *testing.T) {
	ctx := context.Background()
	svc, orders, callbackLog, _, _ := newReconcileFixture(t)

	// The order was cancelled while the push was in flight. The
	// settlement is still recorded on the payment record for
	// follow-up, without touching the order status.
	order := pendingMpesaOrder("ws_CO_1")
	order.Status = model.StatusCancelled

	callbackLog.On("Seen", ctx, "ws_CO_1").Return(false)
	orders.On("GetByCorrelationKey", ctx, "ws_CO_1").Return(order, nil)
	orders.On("Update", ctx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Status == model.StatusCancelled &&
			o.Payment.Status == model.PaymentCompleted &&
			o.Payment.ProviderTxnID == "NLJ7RT61SV"
	})).Return(nil)
	callbackLog.On("Record", ctx, "ws_CO_1")

	err := svc.HandleMpesaCallback(ctx, successCallback("ws_CO_1"))

	require.NoError(t, err)
	orders.AssertExpectations(t)
}
