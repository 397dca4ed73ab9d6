package feed

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

type Kind string

const (
	KindOrder           Kind = "order"
	KindOrderItem       Kind = "order_item"
	KindTableAssignment Kind = "table_assignment"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
	ChangeAny    ChangeType = "*"
)

// Change tells subscribers that a row changed. It carries identifiers only;
// subscribers refetch the state they display.
type Change struct {
	Kind    Kind       `json:"kind"`
	Type    ChangeType `json:"type"`
	VenueId uint       `json:"venueId"`
	EventId uint       `json:"eventId"`
	TableId uint       `json:"tableId"`
	OrderId uint       `json:"orderId,omitempty"`
	At      time.Time  `json:"at"`
}

// Filter selects changes. Zero values match everything.
type Filter struct {
	Kind     Kind
	Type     ChangeType
	EventId  uint
	TableIds []uint
}

func (f Filter) Matches(c Change) bool {
	if f.Kind != "" && f.Kind != c.Kind {
		return false
	}
	if f.Type != "" && f.Type != ChangeAny && f.Type != c.Type {
		return false
	}
	if f.EventId != 0 && f.EventId != c.EventId {
		return false
	}
	if len(f.TableIds) > 0 && !slices.Contains(f.TableIds, c.TableId) {
		return false
	}
	return true
}

type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Hub fans changes out to in-process subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the change and has its drop counter bumped.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextId uint64
	log    *log.Entry
}

func NewHub(logger *log.Entry) *Hub {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Hub{
		subs: make(map[uint64]*Subscription),
		log:  logger.WithField("component", "feed"),
	}
}

func (h *Hub) Subscribe(filter Filter, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 16
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextId++
	sub := &Subscription{
		id:     h.nextId,
		hub:    h,
		filter: filter,
		ch:     make(chan Change, buffer),
	}
	h.subs[sub.id] = sub
	return sub
}

func (h *Hub) Publish(_ context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.filter.Matches(c) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			sub.dropped.Add(1)
			h.log.WithFields(log.Fields{"subscription": sub.id, "order": c.OrderId}).Warn("subscriber buffer full, change dropped")
		}
	}
	return nil
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Subscription is a handle on a filtered change stream. Close releases it and
// closes the Events channel.
type Subscription struct {
	id      uint64
	hub     *Hub
	filter  Filter
	ch      chan Change
	dropped atomic.Int64
	once    sync.Once
}

func (s *Subscription) Events() <-chan Change {
	return s.ch
}

func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
		close(s.ch)
	})
}

// Fanout publishes to every publisher, returning the first error.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, c Change) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, c); err != nil && first == nil {
			first = err
		}
	}
	return first
}
