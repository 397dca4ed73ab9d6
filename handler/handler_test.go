package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nightlife_order/constants"
	"nightlife_order/feed"
	"nightlife_order/handler"
	"nightlife_order/helper"
	"nightlife_order/lifecycle"
	"nightlife_order/model"
	"nightlife_order/ordering"
	"nightlife_order/repository"
	"nightlife_order/resolver"
	"nightlife_order/router"
	"nightlife_order/upsell"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var secret = []byte("test-secret")

// fakeStore implements only what the routes under test touch; anything else
// panics on the nil embedded interface.
type fakeStore struct {
	handler.Store
	events   map[uint]*model.Event
	tables   map[uint]*model.EventTable
	orders   map[uint]*model.Order
	waiters  map[uint]*model.Waiter
	assigned []model.TableAssignment
}

func (f *fakeStore) GetEvent(_ context.Context, id uint) (*model.Event, error) {
	if e, ok := f.events[id]; ok {
		return e, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) GetTable(_ context.Context, id uint) (*model.EventTable, error) {
	if t, ok := f.tables[id]; ok {
		return t, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) GetOrder(_ context.Context, id uint) (*model.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, lifecycle.ErrNotFound
}

func (f *fakeStore) GetWaiter(_ context.Context, id uint) (*model.Waiter, error) {
	if w, ok := f.waiters[id]; ok {
		return w, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListOrders(_ context.Context, filter model.FilterOrder) ([]model.Order, error) {
	var out []model.Order
	for _, o := range f.orders {
		if o.EventId == filter.EventId && (filter.EventTableId == 0 || o.EventTableId == filter.EventTableId) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) AssignTable(_ context.Context, eventId, tableId, waiterId uint) (*model.TableAssignment, error) {
	a := model.TableAssignment{DTO: model.DTO{ID: uint(len(f.assigned) + 1), CreatedAt: time.Now()}, EventId: eventId, EventTableId: tableId, WaiterId: waiterId}
	f.assigned = append(f.assigned, a)
	return &a, nil
}

type fakeResolver struct {
	venue, table string
	result       resolver.Result
}

func (r *fakeResolver) Resolve(_ context.Context, venue, table string) (resolver.Result, error) {
	r.venue, r.table = venue, table
	return r.result, nil
}

type fakeMenu struct{ entries []model.MenuEntry }

func (m fakeMenu) EventMenu(context.Context, uint, uint) ([]model.MenuEntry, error) {
	return m.entries, nil
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) Place(ctx context.Context, in model.CreateOrderInput) (*model.Order, bool, error) {
	args := m.Called(ctx, in)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Bool(1), args.Error(2)
}

type MockLifecycle struct{ mock.Mock }

func (m *MockLifecycle) AdvanceStatus(ctx context.Context, orderId uint, version int, to model.OrderStatus) (*model.Order, error) {
	args := m.Called(ctx, orderId, version, to)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Error(1)
}

func (m *MockLifecycle) RecordPayment(ctx context.Context, orderId uint, version int, paid []model.PaidQuantityInput) (*model.Order, error) {
	args := m.Called(ctx, orderId, version, paid)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Error(1)
}

func (m *MockLifecycle) PayInFull(ctx context.Context, orderId uint, version int) (*model.Order, error) {
	args := m.Called(ctx, orderId, version)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Error(1)
}

func ptr[T any](v T) *T { return &v }

type HandlerSuite struct {
	suite.Suite
	app       *fiber.App
	store     *fakeStore
	resolver  *fakeResolver
	orders    *MockOrders
	lifecycle *MockLifecycle
	hub       *feed.Hub
}

func (s *HandlerSuite) SetupTest() {
	pin, err := helper.HashPassword("1234")
	s.Require().NoError(err)

	s.store = &fakeStore{
		events: map[uint]*model.Event{3: {DTO: model.DTO{ID: 3}, VenueId: 1}},
		tables: map[uint]*model.EventTable{9: {DTO: model.DTO{ID: 9}, EventId: 3, Label: "VIP1"}},
		orders: map[uint]*model.Order{
			40: {DTO: model.DTO{ID: 40}, VenueId: 1, EventId: 3, EventTableId: 9, Status: model.OrderStatusNew, Version: 1},
			41: {DTO: model.DTO{ID: 41}, VenueId: 2, EventId: 8, EventTableId: 1, Status: model.OrderStatusNew, Version: 1},
		},
		waiters: map[uint]*model.Waiter{7: {DTO: model.DTO{ID: 7}, VenueId: 1, Name: "Ana", PinHash: pin}},
	}
	s.resolver = &fakeResolver{result: resolver.Result{Status: resolver.StatusUpcoming, MinutesUntilStart: ptr(120)}}
	s.orders = new(MockOrders)
	s.lifecycle = new(MockLifecycle)
	s.hub = feed.NewHub(nil)

	logger := log.New()
	logger.SetOutput(io.Discard)
	h := &handler.Handler{
		Store:     s.store,
		Resolver:  s.resolver,
		Menu: fakeMenu{entries: []model.MenuEntry{
			{MenuItem: model.MenuItem{DTO: model.DTO{ID: 1}, Name: "Vodka", Category: &model.Category{Name: "Bottles"}, Available: ptr(true)}, Price: 150},
			{MenuItem: model.MenuItem{DTO: model.DTO{ID: 2}, Name: "Tonic", Category: &model.Category{Name: "Soft drinks"}, Available: ptr(true), Badge: model.BadgePopular}, Price: 4},
		}},
		Orders:    s.orders,
		Lifecycle: s.lifecycle,
		Pairings:  upsell.DefaultTable(),
		Hub:       s.hub,
		Publisher: s.hub,
		Secret:    secret,
		TokenTTL:  time.Hour,
		Log:       log.NewEntry(logger),
	}
	s.app = fiber.New()
	router.SetupRoutes(s.app, h)
}

func (s *HandlerSuite) token(role string, venueId uint) string {
	data, err := helper.GenerateAccessToken(model.TokenClaim{WaiterId: 7, VenueId: venueId, Role: role}, secret, time.Hour)
	s.Require().NoError(err)
	return data.AccessToken
}

func (s *HandlerSuite) do(method, path, body, token string) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func (s *HandlerSuite) TestResolveSessionIsAlwaysOK() {
	resp, body := s.do(http.MethodGet, "/api/v1/session/nuba/VIP1", "", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("nuba", s.resolver.venue)
	s.Equal("VIP1", s.resolver.table)
	data := body["data"].(map[string]any)
	s.Equal("upcoming", data["status"])
	s.EqualValues(120, data["minutesUntilStart"])
}

func (s *HandlerSuite) TestResolveFromSubdomain() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/t/VIP1", nil)
	req.Host = "nuba.example.com"
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("nuba", s.resolver.venue)
	s.Equal("VIP1", s.resolver.table)
}

func (s *HandlerSuite) TestCreateOrder() {
	body := `{"idempotencyKey":"k1","venueId":1,"eventId":3,"eventTableId":9,"paymentType":"card","items":[{"menuItemId":1,"quantity":2}]}`
	order := &model.Order{DTO: model.DTO{ID: 50}, PublicCode: "ORD-1234ABCD", Total: 300}

	s.orders.On("Place", mock.Anything, mock.MatchedBy(func(in model.CreateOrderInput) bool {
		return in.IdempotencyKey == "k1" && len(in.Items) == 1
	})).Return(order, true, nil).Once()
	resp, _ := s.do(http.MethodPost, "/api/v1/orders", body, "")
	s.Equal(http.StatusCreated, resp.StatusCode)

	s.orders.On("Place", mock.Anything, mock.Anything).Return(order, false, nil).Once()
	resp, out := s.do(http.MethodPost, "/api/v1/orders", body, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ORD-1234ABCD", out["data"].(map[string]any)["publicCode"])
	s.orders.AssertExpectations(s.T())
}

func (s *HandlerSuite) TestCreateOrderErrors() {
	resp, _ := s.do(http.MethodPost, "/api/v1/orders", `{"idempotencyKey":"k1","venueId":1,"eventId":3,"eventTableId":9,"paymentType":"card","items":[]}`, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	s.orders.On("Place", mock.Anything, mock.Anything).Return(nil, false, ordering.ErrPriceOutOfRange).Once()
	resp, _ = s.do(http.MethodPost, "/api/v1/orders", `{"idempotencyKey":"k2","venueId":1,"eventId":3,"eventTableId":9,"paymentType":"cash","items":[{"menuItemId":1,"quantity":1,"unitPrice":1}]}`, "")
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
}

func (s *HandlerSuite) TestTableOrders() {
	resp, body := s.do(http.MethodGet, "/api/v1/events/3/tables/9/orders", "", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(body["data"], 1)
}

func (s *HandlerSuite) TestUpdateStatusNeedsToken() {
	resp, _ := s.do(http.MethodPatch, "/api/v1/staff/orders/40/status", `{"status":"preparing","version":1}`, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestUpdateStatusOtherVenue() {
	resp, _ := s.do(http.MethodPatch, "/api/v1/staff/orders/41/status", `{"status":"preparing","version":1}`, s.token(constants.ROLE_WAITER, 1))
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.lifecycle.AssertNotCalled(s.T(), "AdvanceStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerSuite) TestUpdateStatusMapsErrors() {
	token := s.token(constants.ROLE_WAITER, 1)
	body := `{"status":"preparing","version":1}`

	s.lifecycle.On("AdvanceStatus", mock.Anything, uint(40), 1, model.OrderStatusPreparing).
		Return(&model.Order{DTO: model.DTO{ID: 40}, Status: model.OrderStatusPreparing, Version: 2}, nil).Once()
	resp, _ := s.do(http.MethodPatch, "/api/v1/staff/orders/40/status", body, token)
	s.Equal(http.StatusOK, resp.StatusCode)

	s.lifecycle.On("AdvanceStatus", mock.Anything, uint(40), 1, model.OrderStatusPreparing).Return(nil, lifecycle.ErrStaleVersion).Once()
	resp, _ = s.do(http.MethodPatch, "/api/v1/staff/orders/40/status", body, token)
	s.Equal(http.StatusConflict, resp.StatusCode)

	s.lifecycle.On("AdvanceStatus", mock.Anything, uint(40), 1, model.OrderStatusPreparing).Return(nil, lifecycle.ErrInvalidTransition).Once()
	resp, _ = s.do(http.MethodPatch, "/api/v1/staff/orders/40/status", body, token)
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = s.do(http.MethodPatch, "/api/v1/staff/orders/99/status", body, token)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *HandlerSuite) TestRecordPayment() {
	paid := []model.PaidQuantityInput{{OrderItemId: 5, PaidQuantity: 2}}
	s.lifecycle.On("RecordPayment", mock.Anything, uint(40), 1, paid).Return(nil, lifecycle.ErrOverpayment).Once()
	resp, _ := s.do(http.MethodPatch, "/api/v1/staff/orders/40/payment", `{"version":1,"items":[{"orderItemId":5,"paidQuantity":2}]}`, s.token(constants.ROLE_WAITER, 1))
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	s.lifecycle.AssertExpectations(s.T())
}

func (s *HandlerSuite) TestWaiterLogin() {
	resp, body := s.do(http.MethodPost, "/api/v1/auth/waiter", `{"waiterId":7,"pin":"1234"}`, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	token := body["data"].(map[string]any)["token"].(map[string]any)["accessToken"].(string)
	claim, err := helper.ParseToken(token, secret)
	s.Require().NoError(err)
	s.Equal(uint(7), claim.WaiterId)
	s.Equal(constants.ROLE_WAITER, claim.Role)

	resp, _ = s.do(http.MethodPost, "/api/v1/auth/waiter", `{"waiterId":7,"pin":"0000"}`, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestUpsell() {
	resp, body := s.do(http.MethodPost, "/api/v1/upsell", `{"venueId":1,"eventId":3,"items":[{"menuItemId":1,"name":"Vodka","price":150,"quantity":1,"category":"Bottles","productType":"bottle"}]}`, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	suggestions := data["suggestions"].([]any)
	s.Require().Len(suggestions, 1)
	s.Equal("Tonic", suggestions[0].(map[string]any)["name"])
	s.NotEmpty(data["message"])
}

func (s *HandlerSuite) TestAssignmentPublishesChange() {
	sub := s.hub.Subscribe(feed.Filter{Kind: feed.KindTableAssignment, EventId: 3}, 4)
	defer sub.Close()

	resp, _ := s.do(http.MethodPost, "/api/v1/events/3/assignments", `{"eventTableId":9,"waiterId":7}`, s.token(constants.ROLE_MANAGER, 1))
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Require().Len(s.store.assigned, 1)

	select {
	case c := <-sub.Events():
		s.Equal(uint(9), c.TableId)
	case <-time.After(time.Second):
		s.Fail("no assignment change published")
	}
}

func (s *HandlerSuite) TestAssignmentNeedsManager() {
	resp, _ := s.do(http.MethodPost, "/api/v1/events/3/assignments", `{"eventTableId":9,"waiterId":7}`, s.token(constants.ROLE_WAITER, 1))
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
