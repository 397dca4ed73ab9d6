package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nightlife_order/feed"
	"nightlife_order/model"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrStaleVersion      = errors.New("order was modified by someone else")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderClosed       = errors.New("order is cancelled")
	ErrUnknownItem       = errors.New("item does not belong to this order")
	ErrOverpayment       = errors.New("paid quantity exceeds ordered quantity")
	ErrPaymentRegression = errors.New("paid quantity cannot go down")
)

var rank = map[model.OrderStatus]int{
	model.OrderStatusNew:       0,
	model.OrderStatusPreparing: 1,
	model.OrderStatusReady:     2,
	model.OrderStatusDelivered: 3,
}

func IsTerminal(s model.OrderStatus) bool {
	return s == model.OrderStatusDelivered || s == model.OrderStatusCancelled
}

// CanTransition reports whether an order may move from one preparation
// status to another. Moves only go forward; cancelling is allowed until the
// order is ready.
func CanTransition(from, to model.OrderStatus) bool {
	if IsTerminal(from) {
		return false
	}
	if to == model.OrderStatusCancelled {
		return from == model.OrderStatusNew || from == model.OrderStatusPreparing
	}
	fr, ok := rank[from]
	if !ok {
		return false
	}
	tr, ok := rank[to]
	return ok && tr > fr
}

// DerivePaymentStatus is paid when every item is fully paid, partial when
// something is paid, otherwise unpaid. An order without items is unpaid.
func DerivePaymentStatus(items []model.OrderItem) model.PaymentStatus {
	if len(items) == 0 {
		return model.PaymentUnpaid
	}
	all, some := true, false
	for _, it := range items {
		if it.PaidQuantity < it.Quantity {
			all = false
		}
		if it.PaidQuantity > 0 {
			some = true
		}
	}
	switch {
	case all:
		return model.PaymentPaid
	case some:
		return model.PaymentPartial
	default:
		return model.PaymentUnpaid
	}
}

// Store persists order state. UpdateOrder must write only when the stored
// version equals expectedVersion, bump the version, and return
// ErrStaleVersion otherwise.
type Store interface {
	GetOrder(ctx context.Context, id uint) (*model.Order, error)
	UpdateOrder(ctx context.Context, order *model.Order, expectedVersion int) error
}

type Service struct {
	store Store
	pub   feed.Publisher
	now   func() time.Time
	log   *log.Entry
}

func NewService(store Store, pub feed.Publisher, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		store: store,
		pub:   pub,
		now:   time.Now,
		log:   logger.WithField("component", "lifecycle"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AdvanceStatus moves the order to status to. version is the version the
// caller last saw.
func (s *Service) AdvanceStatus(ctx context.Context, orderId uint, version int, to model.OrderStatus) (*model.Order, error) {
	current, err := s.load(ctx, orderId, version)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, to)
	}

	next := clone(current)
	next.Status = to
	return s.save(ctx, next, version, log.Fields{"from": current.Status, "to": to})
}

// RecordPayment sets new cumulative paid quantities per order item.
func (s *Service) RecordPayment(ctx context.Context, orderId uint, version int, paid []model.PaidQuantityInput) (*model.Order, error) {
	current, err := s.load(ctx, orderId, version)
	if err != nil {
		return nil, err
	}
	if current.Status == model.OrderStatusCancelled {
		return nil, ErrOrderClosed
	}

	next := clone(current)
	for _, p := range paid {
		i := itemIndex(next.Items, p.OrderItemId)
		if i < 0 {
			return nil, fmt.Errorf("%w: %d", ErrUnknownItem, p.OrderItemId)
		}
		it := &next.Items[i]
		switch {
		case p.PaidQuantity < it.PaidQuantity:
			return nil, fmt.Errorf("%w: item %d from %d to %d", ErrPaymentRegression, it.ID, it.PaidQuantity, p.PaidQuantity)
		case p.PaidQuantity > it.Quantity:
			return nil, fmt.Errorf("%w: item %d has %d, got %d", ErrOverpayment, it.ID, it.Quantity, p.PaidQuantity)
		}
		it.PaidQuantity = p.PaidQuantity
	}

	next.PaymentStatus = DerivePaymentStatus(next.Items)
	if next.PaymentStatus == model.PaymentPaid {
		next.Status = model.OrderStatusDelivered
		if next.PaidAt == nil {
			paidAt := s.now()
			next.PaidAt = &paidAt
		}
	}
	return s.save(ctx, next, version, log.Fields{"payment": next.PaymentStatus})
}

// PayInFull marks every item as fully paid.
func (s *Service) PayInFull(ctx context.Context, orderId uint, version int) (*model.Order, error) {
	current, err := s.load(ctx, orderId, version)
	if err != nil {
		return nil, err
	}
	paid := make([]model.PaidQuantityInput, 0, len(current.Items))
	for _, it := range current.Items {
		paid = append(paid, model.PaidQuantityInput{OrderItemId: it.ID, PaidQuantity: it.Quantity})
	}
	return s.RecordPayment(ctx, orderId, version, paid)
}

func (s *Service) load(ctx context.Context, orderId uint, version int) (*model.Order, error) {
	order, err := s.store.GetOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order.Version != version {
		return nil, ErrStaleVersion
	}
	return order, nil
}

func (s *Service) save(ctx context.Context, next *model.Order, version int, fields log.Fields) (*model.Order, error) {
	if err := s.store.UpdateOrder(ctx, next, version); err != nil {
		s.log.WithError(err).WithField("order", next.ID).Warn("order update rejected")
		return nil, err
	}
	next.Version = version + 1

	s.log.WithFields(fields).WithField("order", next.ID).Info("order updated")
	if s.pub != nil {
		change := feed.Change{
			Kind:    feed.KindOrder,
			Type:    feed.ChangeUpdate,
			VenueId: next.VenueId,
			EventId: next.EventId,
			TableId: next.EventTableId,
			OrderId: next.ID,
			At:      s.now(),
		}
		if err := s.pub.Publish(ctx, change); err != nil {
			s.log.WithError(err).Warn("publish change")
		}
	}
	return next, nil
}

func clone(o *model.Order) *model.Order {
	c := *o
	c.Items = append([]model.OrderItem(nil), o.Items...)
	return &c
}

func itemIndex(items []model.OrderItem, id uint) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
