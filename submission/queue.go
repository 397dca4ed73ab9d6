package submission

import (
	"fmt"
	"sync"

	"nightlife_order/cart"
	"nightlife_order/constants"
	"nightlife_order/model"

	"github.com/gammazero/deque"
)

// Queue is the durable FIFO of orders placed while offline.
type Queue struct {
	mu      sync.Mutex
	storage cart.Storage
	items   deque.Deque[model.CreateOrderInput]
}

func OpenQueue(storage cart.Storage) (*Queue, error) {
	q := &Queue{storage: storage}
	var saved []model.CreateOrderInput
	if _, err := storage.Load(constants.KEY_PENDING_ORDERS, &saved); err != nil {
		return nil, fmt.Errorf("load pending orders: %w", err)
	}
	for _, p := range saved {
		q.items.PushBack(p)
	}
	return q, nil
}

func (q *Queue) Push(p model.CreateOrderInput) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.PushBack(p)
	if err := q.persist(); err != nil {
		q.items.PopBack()
		return err
	}
	return nil
}

func (q *Queue) Front() (model.CreateOrderInput, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return model.CreateOrderInput{}, false
	}
	return q.items.Front(), true
}

// PopFront removes the oldest entry once the server accepted or rejected it.
func (q *Queue) PopFront() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return nil
	}
	p := q.items.PopFront()
	if err := q.persist(); err != nil {
		q.items.PushFront(p)
		return err
	}
	return nil
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *Queue) Snapshot() []model.CreateOrderInput {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshot()
}

func (q *Queue) snapshot() []model.CreateOrderInput {
	out := make([]model.CreateOrderInput, 0, q.items.Len())
	for i := 0; i < q.items.Len(); i++ {
		out = append(out, q.items.At(i))
	}
	return out
}

func (q *Queue) persist() error {
	if q.items.Len() == 0 {
		if err := q.storage.Delete(constants.KEY_PENDING_ORDERS); err != nil {
			return fmt.Errorf("save pending orders: %w", err)
		}
		return nil
	}
	if err := q.storage.Save(constants.KEY_PENDING_ORDERS, q.snapshot()); err != nil {
		return fmt.Errorf("save pending orders: %w", err)
	}
	return nil
}
