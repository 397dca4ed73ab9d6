package feed

import (
	"context"
	"slices"
	"sync"
	"time"

	"nightlife_order/model"

	log "github.com/sirupsen/logrus"
)

type Source interface {
	ListOrders(ctx context.Context, filter model.FilterOrder) ([]model.Order, error)
	AssignedTableIds(ctx context.Context, eventId, waiterId uint) ([]uint, error)
}

type Alert struct {
	OrderId uint      `json:"orderId"`
	TableId uint      `json:"tableId"`
	At      time.Time `json:"at"`
}

type ViewOptions struct {
	EventId uint
	// WaiterId zero means a manager view: no alerts, no table scope.
	WaiterId     uint
	AssignedOnly bool
	Buffer       int
	Logger       *log.Entry
}

// StaffView keeps one staff member's order list current. Every relevant
// change triggers a full refetch rather than a local patch.
type StaffView struct {
	hub  *Hub
	src  Source
	opts ViewOptions
	log  *log.Entry

	mu     sync.RWMutex
	orders []model.Order
	tables []uint

	alerts  chan Alert
	updates chan struct{}
}

func NewStaffView(hub *Hub, src Source, opts ViewOptions) *StaffView {
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}
	if opts.Buffer < 1 {
		opts.Buffer = 64
	}
	return &StaffView{
		hub:  hub,
		src:  src,
		opts: opts,
		log: opts.Logger.WithFields(log.Fields{
			"component": "staffview",
			"event":     opts.EventId,
			"waiter":    opts.WaiterId,
		}),
		alerts:  make(chan Alert, 16),
		updates: make(chan struct{}, 1),
	}
}

// Run subscribes, performs the initial fetch and then follows the feed
// until ctx is done.
func (v *StaffView) Run(ctx context.Context) error {
	sub := v.hub.Subscribe(Filter{EventId: v.opts.EventId}, v.opts.Buffer)
	defer sub.Close()

	v.refreshAssignments(ctx)
	v.refetch(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-sub.Events():
			if !ok {
				return nil
			}
			v.handle(ctx, c)
		}
	}
}

func (v *StaffView) handle(ctx context.Context, c Change) {
	switch c.Kind {
	case KindTableAssignment:
		v.refreshAssignments(ctx)
		v.refetch(ctx)
	case KindOrder, KindOrderItem:
		if c.Type != ChangeInsert && c.Type != ChangeUpdate {
			return
		}
		if c.Kind == KindOrder && c.Type == ChangeInsert && v.opts.WaiterId != 0 && v.isAssigned(c.TableId) {
			v.alert(Alert{OrderId: c.OrderId, TableId: c.TableId, At: c.At})
		}
		if v.inScope(c.TableId) {
			v.refetch(ctx)
		}
	}
}

func (v *StaffView) Snapshot() []model.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.orders)
}

func (v *StaffView) AssignedTables() []uint {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.tables)
}

func (v *StaffView) Alerts() <-chan Alert {
	return v.alerts
}

// Updates receives a signal after each successful refetch. Signals coalesce.
func (v *StaffView) Updates() <-chan struct{} {
	return v.updates
}

func (v *StaffView) refetch(ctx context.Context) {
	orders, err := v.src.ListOrders(ctx, model.FilterOrder{EventId: v.opts.EventId})
	if err != nil {
		v.log.WithError(err).Warn("refetch failed, keeping previous orders")
		return
	}
	if v.opts.AssignedOnly {
		orders = slices.DeleteFunc(orders, func(o model.Order) bool {
			return !v.isAssigned(o.EventTableId)
		})
	}

	v.mu.Lock()
	v.orders = orders
	v.mu.Unlock()

	select {
	case v.updates <- struct{}{}:
	default:
	}
}

func (v *StaffView) refreshAssignments(ctx context.Context) {
	if v.opts.WaiterId == 0 {
		return
	}
	tables, err := v.src.AssignedTableIds(ctx, v.opts.EventId, v.opts.WaiterId)
	if err != nil {
		v.log.WithError(err).Warn("refresh assignments failed")
		return
	}
	v.mu.Lock()
	v.tables = tables
	v.mu.Unlock()
}

func (v *StaffView) isAssigned(tableId uint) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Contains(v.tables, tableId)
}

func (v *StaffView) inScope(tableId uint) bool {
	return !v.opts.AssignedOnly || v.isAssigned(tableId)
}

func (v *StaffView) alert(a Alert) {
	select {
	case v.alerts <- a:
	default:
		v.log.WithField("order", a.OrderId).Warn("alert dropped")
	}
}
