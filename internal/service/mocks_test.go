package service

import (
	"context"
	"sync"
	"time"

	"shopfront/internal/model"
	"shopfront/internal/payment"
	"shopfront/internal/rates"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByCorrelationKey(ctx context.Context, key string) (*model.Order, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CancelIfActive(ctx context.Context, id uuid.UUID, cancelledAt time.Time) (bool, error) {
	args := m.Called(ctx, id, cancelledAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]model.Order, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) CheckAvailability(ctx context.Context, items []model.ReservationItem) ([]model.Availability, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Availability), args.Error(1)
}

func (m *MockProductRepository) ReserveStock(ctx context.Context, items []model.ReservationItem) (map[string]int, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockProductRepository) ReleaseStock(ctx context.Context, items []model.ReservationItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockProductRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

// MockLedger is a mock implementation of inventory.Ledger.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CheckAvailability(ctx context.Context, items []model.ReservationItem) ([]model.Availability, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Availability), args.Error(1)
}

func (m *MockLedger) Reserve(ctx context.Context, items []model.ReservationItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockLedger) Release(ctx context.Context, items []model.ReservationItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

// MockPaymentInitiator is a mock implementation of PaymentInitiator.
type MockPaymentInitiator struct {
	mock.Mock
}

func (m *MockPaymentInitiator) Initiate(ctx context.Context, req payment.InitiateRequest) (payment.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payment.Result), args.Error(1)
}

// MockCallbackLog is a mock implementation of payment.CallbackLog.
type MockCallbackLog struct {
	mock.Mock
}

func (m *MockCallbackLog) Seen(ctx context.Context, key string) bool {
	args := m.Called(ctx, key)
	return args.Bool(0)
}

func (m *MockCallbackLog) Record(ctx context.Context, key string) {
	m.Called(ctx, key)
}

// fakePublisher records published events for assertions.
type fakePublisher struct {
	mu     sync.Mutex
	events []model.NotificationEvent
}

func (p *fakePublisher) Publish(event model.NotificationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) byType(eventType string) []model.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []model.NotificationEvent
	for _, e := range p.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// fakeEmailer records sent emails for assertions.
type fakeEmailer struct {
	mu   sync.Mutex
	sent []string // template names in send order
}

func (e *fakeEmailer) Send(_ context.Context, _, template string, _ map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, template)
}

// fixedQuoter answers a constant quote.
type fixedQuoter struct {
	quote rates.Quote
}

func (q *fixedQuoter) Quote(_ model.Address, _ []model.OrderItem, _ float64) rates.Quote {
	return q.quote
}
