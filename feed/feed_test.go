package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"nightlife_order/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatches(t *testing.T) {
	c := Change{Kind: KindOrder, Type: ChangeInsert, EventId: 3, TableId: 9}

	assert.True(t, Filter{}.Matches(c))
	assert.True(t, Filter{Kind: KindOrder, Type: ChangeAny, EventId: 3}.Matches(c))
	assert.True(t, Filter{TableIds: []uint{1, 9}}.Matches(c))
	assert.False(t, Filter{Kind: KindOrderItem}.Matches(c))
	assert.False(t, Filter{Type: ChangeUpdate}.Matches(c))
	assert.False(t, Filter{EventId: 4}.Matches(c))
	assert.False(t, Filter{TableIds: []uint{1}}.Matches(c))
}

func TestHubDeliversToMatchingSubscribers(t *testing.T) {
	hub := NewHub(nil)
	ev3 := hub.Subscribe(Filter{EventId: 3}, 4)
	ev4 := hub.Subscribe(Filter{EventId: 4}, 4)
	defer ev3.Close()
	defer ev4.Close()

	require.NoError(t, hub.Publish(context.Background(), Change{Kind: KindOrder, Type: ChangeInsert, EventId: 3, OrderId: 1}))

	select {
	case c := <-ev3.Events():
		assert.Equal(t, uint(1), c.OrderId)
		assert.False(t, c.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
	assert.Empty(t, ev4.Events())
}

func TestHubNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe(Filter{}, 1)
	defer sub.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(context.Background(), Change{Kind: KindOrder, Type: ChangeUpdate}))
	}
	assert.Len(t, sub.Events(), 1)
	assert.Equal(t, int64(4), sub.Dropped())
}

func TestSubscriptionClose(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe(Filter{}, 1)
	assert.Equal(t, 1, hub.Len())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Len())
	_, ok := <-sub.Events()
	assert.False(t, ok)
	require.NoError(t, hub.Publish(context.Background(), Change{}))
}

func TestKafkaMessageKeyedByEvent(t *testing.T) {
	in := Change{Kind: KindOrder, Type: ChangeInsert, EventId: 42, TableId: 7, OrderId: 5}
	msg, err := encodeMessage(in)
	require.NoError(t, err)
	assert.Equal(t, "42", string(msg.Key))

	out, err := decodeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, in.OrderId, out.OrderId)
	assert.Equal(t, in.TableId, out.TableId)
}

type fakeSource struct {
	mu       sync.Mutex
	orders   []model.Order
	tables   []uint
	listed   int
	failList bool
}

func (f *fakeSource) ListOrders(_ context.Context, filter model.FilterOrder) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	if f.failList {
		return nil, assert.AnError
	}
	var out []model.Order
	for _, o := range f.orders {
		if o.EventId == filter.EventId {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeSource) AssignedTableIds(_ context.Context, _, _ uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.tables...), nil
}

func (f *fakeSource) add(o model.Order) {
	f.mu.Lock()
	f.orders = append(f.orders, o)
	f.mu.Unlock()
}

func (f *fakeSource) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed
}

func order(id, event, table uint) model.Order {
	return model.Order{DTO: model.DTO{ID: id}, EventId: event, EventTableId: table, Status: model.OrderStatusNew}
}

func waitUpdate(t *testing.T, v *StaffView) {
	t.Helper()
	select {
	case <-v.Updates():
	case <-time.After(time.Second):
		t.Fatal("no refetch")
	}
}

func startView(t *testing.T, hub *Hub, src *fakeSource, opts ViewOptions) *StaffView {
	t.Helper()
	v := NewStaffView(hub, src, opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = v.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitUpdate(t, v)
	return v
}

func TestStaffViewAlertsOnAssignedTable(t *testing.T) {
	hub := NewHub(nil)
	src := &fakeSource{orders: []model.Order{order(1, 3, 9)}, tables: []uint{9}}
	v := startView(t, hub, src, ViewOptions{EventId: 3, WaiterId: 2, AssignedOnly: true})

	assert.Len(t, v.Snapshot(), 1)
	assert.Equal(t, []uint{9}, v.AssignedTables())

	src.add(order(2, 3, 9))
	require.NoError(t, hub.Publish(context.Background(), Change{Kind: KindOrder, Type: ChangeInsert, EventId: 3, TableId: 9, OrderId: 2}))

	select {
	case a := <-v.Alerts():
		assert.Equal(t, uint(2), a.OrderId)
		assert.Equal(t, uint(9), a.TableId)
	case <-time.After(time.Second):
		t.Fatal("no alert")
	}
	waitUpdate(t, v)
	assert.Len(t, v.Snapshot(), 2)
}

func TestStaffViewIgnoresOtherTables(t *testing.T) {
	hub := NewHub(nil)
	src := &fakeSource{orders: []model.Order{order(1, 3, 9), order(2, 3, 10)}, tables: []uint{9}}
	v := startView(t, hub, src, ViewOptions{EventId: 3, WaiterId: 2, AssignedOnly: true})

	require.Len(t, v.Snapshot(), 1)
	before := src.listCount()

	require.NoError(t, hub.Publish(context.Background(), Change{Kind: KindOrder, Type: ChangeInsert, EventId: 3, TableId: 10, OrderId: 3}))
	require.NoError(t, hub.Publish(context.Background(), Change{Kind: KindOrder, Type: ChangeInsert, EventId: 4, TableId: 9, OrderId: 4}))

	assert.Never(t, func() bool { return len(v.Alerts()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, before, src.listCount())
}

func TestStaffViewFollowsReassignment(t *testing.T) {
	hub := NewHub(nil)
	src := &fakeSource{orders: []model.Order{order(1, 3, 9), order(2, 3, 10)}, tables: []uint{9}}
	v := startView(t, hub, src, ViewOptions{EventId: 3, WaiterId: 2, AssignedOnly: true})
	require.Len(t, v.Snapshot(), 1)

	src.mu.Lock()
	src.tables = []uint{9, 10}
	src.mu.Unlock()
	require.NoError(t, hub.Publish(context.Background(), Change{Kind: KindTableAssignment, Type: ChangeInsert, EventId: 3, TableId: 10}))

	waitUpdate(t, v)
	assert.Len(t, v.Snapshot(), 2)
}

func TestManagerViewKeepsStateOnFailedRefetch(t *testing.T) {
	hub := NewHub(nil)
	src := &fakeSource{orders: []model.Order{order(1, 3, 9), order(2, 3, 10)}}
	v := startView(t, hub, src, ViewOptions{EventId: 3})
	require.Len(t, v.Snapshot(), 2)

	src.mu.Lock()
	src.failList = true
	src.mu.Unlock()
	require.NoError(t, hub.Publish(context.Background(), Change{Kind: KindOrder, Type: ChangeUpdate, EventId: 3, TableId: 10, OrderId: 2}))

	assert.Eventually(t, func() bool { return src.listCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, v.Snapshot(), 2)
	assert.Empty(t, v.Alerts())
}
