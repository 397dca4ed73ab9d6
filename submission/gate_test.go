package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nightlife_order/cart"
	"nightlife_order/constants"
	"nightlife_order/model"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStorage) Load(key string, v any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (m *memStorage) Save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, input model.CreateOrderInput) (*model.Order, error) {
	args := m.Called(ctx, input)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Error(1)
}

type switchConn struct {
	online atomic.Bool
}

func (s *switchConn) Online() bool { return s.online.Load() }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func ptr[T any](v T) *T { return &v }

var session = Session{VenueId: 1, EventId: 3, EventTableId: 9}

type GateSuite struct {
	suite.Suite
	storage   *memStorage
	submitter *MockSubmitter
	conn      *switchConn
	clock     *clock
	cart      *cart.Store
	queue     *Queue
	gate      *Gate
	keys      int
}

func (s *GateSuite) SetupTest() {
	s.storage = &memStorage{data: map[string][]byte{}}
	s.submitter = new(MockSubmitter)
	s.conn = &switchConn{}
	s.conn.online.Store(true)
	s.clock = &clock{now: time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC)}
	s.keys = 0

	var err error
	s.cart, err = cart.Open(s.storage, session.EventTableId, nil)
	s.Require().NoError(err)
	s.queue, err = OpenQueue(s.storage)
	s.Require().NoError(err)
	s.gate = NewGate(s.submitter, s.conn, s.queue, Options{
		Cooldown:         30 * time.Second,
		Timeout:          time.Second,
		Retries:          2,
		ConfirmationTime: 5 * time.Second,
		Now:              s.clock.Now,
		NewKey: func() string {
			s.keys++
			return fmt.Sprintf("key-%d", s.keys)
		},
	})
}

func (s *GateSuite) fillCart() {
	s.Require().NoError(s.cart.AddItem(model.MenuEntry{MenuItem: model.MenuItem{
		DTO: model.DTO{ID: 5}, Name: "Mojito", DefaultPrice: 9.5, Available: ptr(true),
	}}, 2))
}

func (s *GateSuite) TestSuccessClearsCartAndConfirms() {
	s.fillCart()
	s.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(in model.CreateOrderInput) bool {
		return in.IdempotencyKey == "key-1" && len(in.Items) == 1 && in.Items[0].Quantity == 2 && in.Items[0].UnitPrice == 9.5
	})).Return(&model.Order{PublicCode: "ORD-1"}, nil).Once()

	res := s.gate.Submit(context.Background(), session, s.cart, model.PaymentCash, "")
	s.Equal(OutcomeSuccess, res.Outcome)
	s.Equal("ORD-1", res.Order.PublicCode)
	s.True(s.cart.IsEmpty())
	s.True(s.gate.ConfirmationVisible())

	s.clock.Advance(5 * time.Second)
	s.False(s.gate.ConfirmationVisible())
	s.submitter.AssertExpectations(s.T())
}

func (s *GateSuite) TestCooldown() {
	s.submitter.On("Submit", mock.Anything, mock.Anything).Return(&model.Order{PublicCode: "ORD-1"}, nil)

	s.fillCart()
	s.Equal(OutcomeSuccess, s.gate.Submit(context.Background(), session, s.cart, model.PaymentCard, "").Outcome)

	s.clock.Advance(10 * time.Second)
	s.fillCart()
	res := s.gate.Submit(context.Background(), session, s.cart, model.PaymentCard, "")
	s.Equal(OutcomeRateLimited, res.Outcome)
	s.Equal(20*time.Second, res.RetryAfter)
	s.False(s.cart.IsEmpty())
	s.submitter.AssertNumberOfCalls(s.T(), "Submit", 1)

	s.clock.Advance(20 * time.Second)
	s.Equal(OutcomeSuccess, s.gate.Submit(context.Background(), session, s.cart, model.PaymentCard, "").Outcome)
	s.submitter.AssertNumberOfCalls(s.T(), "Submit", 2)
}

func (s *GateSuite) TestValidationBeforeNetwork() {
	res := s.gate.Submit(context.Background(), session, s.cart, model.PaymentCash, "")
	s.Equal(OutcomeError, res.Outcome)
	s.ErrorIs(res.Err, ErrEmptyCart)

	s.fillCart()
	res = s.gate.Submit(context.Background(), Session{VenueId: 1}, s.cart, model.PaymentCash, "")
	s.ErrorIs(res.Err, ErrMissingContext)

	res = s.gate.Submit(context.Background(), session, s.cart, "crypto", "")
	s.ErrorIs(res.Err, ErrInvalidPaymentType)

	s.submitter.AssertNotCalled(s.T(), "Submit", mock.Anything, mock.Anything)
	s.Equal(time.Duration(0), s.gate.RetryAfter())
}

func (s *GateSuite) TestServerFailureKeepsCartAndRetriesWithSameKey() {
	s.fillCart()
	s.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(in model.CreateOrderInput) bool {
		return in.IdempotencyKey == "key-1"
	})).Return(nil, fmt.Errorf("503 unavailable")).Times(3)

	res := s.gate.Submit(context.Background(), session, s.cart, model.PaymentCash, "")
	s.Equal(OutcomeError, res.Outcome)
	s.Error(res.Err)
	s.False(s.cart.IsEmpty())
	s.Equal(time.Duration(0), s.gate.RetryAfter())
	s.submitter.AssertExpectations(s.T())
}

func (s *GateSuite) TestRejectedIsNotRetried() {
	s.fillCart()
	s.submitter.On("Submit", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: table closed", ErrRejected)).Once()

	res := s.gate.Submit(context.Background(), session, s.cart, model.PaymentCash, "")
	s.ErrorIs(res.Err, ErrRejected)
	s.submitter.AssertNumberOfCalls(s.T(), "Submit", 1)
}

func (s *GateSuite) TestOfflineQueuesThenFlushes() {
	s.conn.online.Store(false)

	s.fillCart()
	res := s.gate.Submit(context.Background(), session, s.cart, model.PaymentCash, "first")
	s.Equal(OutcomeQueued, res.Outcome)
	s.True(s.cart.IsEmpty())
	s.Equal(1, s.gate.Pending())

	s.clock.Advance(31 * time.Second)
	s.fillCart()
	s.Equal(OutcomeQueued, s.gate.Submit(context.Background(), session, s.cart, model.PaymentCash, "second").Outcome)
	s.Equal(2, s.gate.Pending())
	s.submitter.AssertNotCalled(s.T(), "Submit", mock.Anything, mock.Anything)

	var order []string
	s.submitter.On("Submit", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		order = append(order, args.Get(1).(model.CreateOrderInput).Note)
	}).Return(&model.Order{}, nil)

	s.conn.online.Store(true)
	sent, err := s.gate.FlushPending(context.Background())
	s.Require().NoError(err)
	s.Equal(2, sent)
	s.Equal([]string{"first", "second"}, order)
	s.Equal(0, s.gate.Pending())
	s.submitter.AssertNumberOfCalls(s.T(), "Submit", 2)
	s.NotContains(s.storage.data, constants.KEY_PENDING_ORDERS)
}

func (s *GateSuite) TestFlushStopsOnFailureAndKeepsEntry() {
	s.Require().NoError(s.queue.Push(model.CreateOrderInput{IdempotencyKey: "a"}))
	s.Require().NoError(s.queue.Push(model.CreateOrderInput{IdempotencyKey: "b"}))

	s.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(in model.CreateOrderInput) bool {
		return in.IdempotencyKey == "a"
	})).Return(&model.Order{}, nil).Once()
	s.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(in model.CreateOrderInput) bool {
		return in.IdempotencyKey == "b"
	})).Return(nil, fmt.Errorf("timeout"))

	sent, err := s.gate.FlushPending(context.Background())
	s.Error(err)
	s.Equal(1, sent)
	s.Require().Equal(1, s.queue.Len())
	front, _ := s.queue.Front()
	s.Equal("b", front.IdempotencyKey)

	reopened, err := OpenQueue(s.storage)
	s.Require().NoError(err)
	s.Equal(s.queue.Snapshot(), reopened.Snapshot())
}

func (s *GateSuite) TestFlushDropsRejectedEntry() {
	s.Require().NoError(s.queue.Push(model.CreateOrderInput{IdempotencyKey: "bad"}))
	s.Require().NoError(s.queue.Push(model.CreateOrderInput{IdempotencyKey: "good"}))
	s.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(in model.CreateOrderInput) bool {
		return in.IdempotencyKey == "bad"
	})).Return(nil, ErrRejected).Once()
	s.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(in model.CreateOrderInput) bool {
		return in.IdempotencyKey == "good"
	})).Return(&model.Order{}, nil).Once()

	sent, err := s.gate.FlushPending(context.Background())
	s.NoError(err)
	s.Equal(1, sent)
	s.Equal(0, s.queue.Len())
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}
