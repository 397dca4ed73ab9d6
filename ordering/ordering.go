package ordering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nightlife_order/constants"
	"nightlife_order/feed"
	"nightlife_order/model"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrInvalidOrder wraps every reason an order is refused for its content.
var ErrInvalidOrder = errors.New("invalid order")

var (
	ErrContextMismatch = fmt.Errorf("%w: venue, event and table do not belong together", ErrInvalidOrder)
	ErrInactive        = fmt.Errorf("%w: venue, event or table is closed", ErrInvalidOrder)
	ErrNoItems         = fmt.Errorf("%w: no items", ErrInvalidOrder)
	ErrUnknownItem     = fmt.Errorf("%w: unknown menu item", ErrInvalidOrder)
	ErrItemUnavailable = fmt.Errorf("%w: menu item not available", ErrInvalidOrder)
	ErrPriceOutOfRange = fmt.Errorf("%w: price is too far from the menu price", ErrInvalidOrder)
	ErrEventNotRunning = fmt.Errorf("%w: event is not running today", ErrInvalidOrder)
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidOrder)
)

type Store interface {
	GetVenue(ctx context.Context, id uint) (*model.Venue, error)
	GetEvent(ctx context.Context, id uint) (*model.Event, error)
	GetTable(ctx context.Context, id uint) (*model.EventTable, error)
	EventMenu(ctx context.Context, venueId, eventId uint) ([]model.MenuEntry, error)
	CurrentWaiter(ctx context.Context, eventId, tableId uint) (*uint, error)
	CreateOrder(ctx context.Context, order *model.Order) (*model.Order, bool, error)
}

type Options struct {
	Now      func() time.Time
	Location *time.Location
	// DemoMode accepts orders for any active event regardless of its date.
	DemoMode bool
	// PriceDrift bounds a captured unit price to [menu/PriceDrift, menu*PriceDrift].
	PriceDrift float64
	Logger     *log.Entry
}

// Service turns a submitted cart into a persisted order.
type Service struct {
	store   Store
	pub     feed.Publisher
	opts    Options
	log     *log.Entry
	newCode func() string
}

func NewService(store Store, pub feed.Publisher, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PriceDrift < 1 {
		opts.PriceDrift = constants.DEFAULT_PRICE_DRIFT
	}
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		store: store,
		pub:   pub,
		opts:  opts,
		log:   opts.Logger.WithField("component", "ordering"),
		newCode: func() string {
			return "ORD-" + strings.ToUpper(uuid.New().String()[:8])
		},
	}
}

// Place validates the input against the venue's menu and writes the order
// with its items atomically. Replaying an idempotency key returns the order
// created the first time, with created false.
func (s *Service) Place(ctx context.Context, in model.CreateOrderInput) (*model.Order, bool, error) {
	if len(in.Items) == 0 {
		return nil, false, ErrNoItems
	}
	table, err := s.checkContext(ctx, in)
	if err != nil {
		return nil, false, err
	}

	menu, err := s.store.EventMenu(ctx, in.VenueId, in.EventId)
	if err != nil {
		return nil, false, fmt.Errorf("load menu: %w", err)
	}
	byId := make(map[uint]model.MenuEntry, len(menu))
	for _, m := range menu {
		byId[m.ID] = m
	}

	order := &model.Order{
		PublicCode:     s.newCode(),
		IdempotencyKey: in.IdempotencyKey,
		VenueId:        in.VenueId,
		EventId:        in.EventId,
		EventTableId:   in.EventTableId,
		TableLabel:     table.Label,
		Status:         model.OrderStatusNew,
		PaymentStatus:  model.PaymentUnpaid,
		PaymentType:    in.PaymentType,
		CustomerId:     in.CustomerId,
		Note:           in.Note,
		Version:        1,
	}
	for _, line := range in.Items {
		item, err := s.snapshotItem(byId, line)
		if err != nil {
			return nil, false, err
		}
		order.Items = append(order.Items, item)
		order.Subtotal += item.Subtotal
	}
	order.Total = order.Subtotal

	if waiter, err := s.store.CurrentWaiter(ctx, in.EventId, in.EventTableId); err != nil {
		s.log.WithError(err).Warn("lookup table waiter")
	} else {
		order.WaiterId = waiter
	}

	saved, created, err := s.store.CreateOrder(ctx, order)
	if err != nil {
		return nil, false, fmt.Errorf("create order: %w", err)
	}
	entry := s.log.WithFields(log.Fields{"order": saved.PublicCode, "key": in.IdempotencyKey})
	if !created {
		entry.Info("duplicate submission, returning existing order")
		return saved, false, nil
	}
	entry.WithField("total", saved.Total).Info("order created")

	if s.pub != nil {
		err := s.pub.Publish(ctx, feed.Change{
			Kind:    feed.KindOrder,
			Type:    feed.ChangeInsert,
			VenueId: saved.VenueId,
			EventId: saved.EventId,
			TableId: saved.EventTableId,
			OrderId: saved.ID,
			At:      saved.CreatedAt,
		})
		if err != nil {
			s.log.WithError(err).Warn("publish change")
		}
	}
	return saved, true, nil
}

func (s *Service) checkContext(ctx context.Context, in model.CreateOrderInput) (*model.EventTable, error) {
	venue, err := s.store.GetVenue(ctx, in.VenueId)
	if err != nil {
		return nil, err
	}
	event, err := s.store.GetEvent(ctx, in.EventId)
	if err != nil {
		return nil, err
	}
	table, err := s.store.GetTable(ctx, in.EventTableId)
	if err != nil {
		return nil, err
	}
	if event.VenueId != venue.ID || table.EventId != event.ID {
		return nil, ErrContextMismatch
	}
	if !model.Flag(venue.Active) || !model.Flag(event.Active) || !model.Flag(table.Active) {
		return nil, ErrInactive
	}
	if !s.opts.DemoMode && !s.running(venue, event) {
		return nil, ErrEventNotRunning
	}
	return table, nil
}

// running reports whether the event is dated today in the venue's timezone.
// The previous day's event also counts, so a night that crosses midnight
// keeps taking orders until the nightly closer deactivates it.
func (s *Service) running(venue *model.Venue, event *model.Event) bool {
	loc := s.opts.Location
	if venue.Timezone != "" {
		if l, err := time.LoadLocation(venue.Timezone); err == nil {
			loc = l
		}
	}
	now := s.opts.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	y, m, d := time.Time(event.EventDate).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return day.Equal(today) || day.Equal(today.AddDate(0, 0, -1))
}

// snapshotItem copies name and price into the order line. The price the
// guest saw when adding the item wins over a later repricing, within the
// configured drift of the current menu price.
func (s *Service) snapshotItem(menu map[uint]model.MenuEntry, line model.CreateOrderItemInput) (model.OrderItem, error) {
	if line.Quantity < 1 {
		return model.OrderItem{}, ErrInvalidQuantity
	}
	entry, ok := menu[line.MenuItemId]
	if !ok {
		return model.OrderItem{}, fmt.Errorf("%w: %d", ErrUnknownItem, line.MenuItemId)
	}
	if !model.Flag(entry.Available) {
		return model.OrderItem{}, fmt.Errorf("%w: %s", ErrItemUnavailable, entry.Name)
	}

	price := entry.Price
	if line.UnitPrice != 0 {
		if !withinDrift(entry, line.UnitPrice, s.opts.PriceDrift) {
			return model.OrderItem{}, fmt.Errorf("%w: %s", ErrPriceOutOfRange, entry.Name)
		}
		if line.UnitPrice != entry.Price {
			s.log.WithFields(log.Fields{
				"item":     entry.ID,
				"captured": line.UnitPrice,
				"current":  entry.Price,
			}).Info("keeping price captured before repricing")
		}
		price = line.UnitPrice
	}
	return model.OrderItem{
		MenuItemId: entry.ID,
		Name:       entry.Name,
		UnitPrice:  price,
		Quantity:   line.Quantity,
		Subtotal:   price * float64(line.Quantity),
	}, nil
}

// withinDrift bounds a captured price by the item's default and event
// prices, widened by factor on both sides.
func withinDrift(entry model.MenuEntry, price, factor float64) bool {
	lo, hi := entry.Price, entry.Price
	if entry.DefaultPrice < lo {
		lo = entry.DefaultPrice
	}
	if entry.DefaultPrice > hi {
		hi = entry.DefaultPrice
	}
	return price > 0 && price >= lo/factor && price <= hi*factor
}
