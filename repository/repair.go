package repository

import (
	"context"
	"fmt"
	"time"

	"nightlife_order/feed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

// PgxConn is the subset of a pgx pool the repair job needs.
type PgxConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Orphan struct {
	OrderId      uint
	VenueId      uint
	EventId      uint
	EventTableId uint
	CreatedAt    time.Time
}

// OrphanRepair cancels orders that were left without items, which older
// clients could produce when the item insert failed after the order insert.
type OrphanRepair struct {
	db    PgxConn
	grace time.Duration
	pub   feed.Publisher
	now   func() time.Time
	log   *log.Entry
}

func NewOrphanRepair(db PgxConn, grace time.Duration, pub feed.Publisher, logger *log.Entry) *OrphanRepair {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &OrphanRepair{
		db:    db,
		grace: grace,
		pub:   pub,
		now:   time.Now,
		log:   logger.WithField("component", "orphan-repair"),
	}
}

const findOrphansSQL = `
	SELECT o.id, o.venue_id, o.event_id, o.event_table_id, o.created_at
	FROM orders o
	WHERE o.status = 'new'
	  AND o.created_at < $1
	  AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id)
	ORDER BY o.id`

const cancelOrphanSQL = `
	UPDATE orders
	SET status = 'cancelled', version = version + 1, updated_at = $2
	WHERE id = $1
	  AND status = 'new'
	  AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = orders.id)`

func (r *OrphanRepair) FindOrphans(ctx context.Context) ([]Orphan, error) {
	rows, err := r.db.Query(ctx, findOrphansSQL, r.now().Add(-r.grace))
	if err != nil {
		return nil, fmt.Errorf("find orphans: %w", err)
	}
	defer rows.Close()

	var out []Orphan
	for rows.Next() {
		var (
			id, venueId, eventId, tableId int64
			createdAt                     time.Time
		)
		if err := rows.Scan(&id, &venueId, &eventId, &tableId, &createdAt); err != nil {
			return nil, fmt.Errorf("scan orphan: %w", err)
		}
		out = append(out, Orphan{
			OrderId:      uint(id),
			VenueId:      uint(venueId),
			EventId:      uint(eventId),
			EventTableId: uint(tableId),
			CreatedAt:    createdAt,
		})
	}
	return out, rows.Err()
}

// Run cancels every orphan older than the grace period and returns how many it cancelled.
func (r *OrphanRepair) Run(ctx context.Context) (int, error) {
	orphans, err := r.FindOrphans(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, o := range orphans {
		tag, err := r.db.Exec(ctx, cancelOrphanSQL, int64(o.OrderId), r.now())
		if err != nil {
			return repaired, fmt.Errorf("cancel orphan %d: %w", o.OrderId, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		repaired++
		r.log.WithField("order", o.OrderId).Warn("cancelled order without items")
		if r.pub != nil {
			_ = r.pub.Publish(ctx, feed.Change{
				Kind:    feed.KindOrder,
				Type:    feed.ChangeUpdate,
				VenueId: o.VenueId,
				EventId: o.EventId,
				TableId: o.EventTableId,
				OrderId: o.OrderId,
				At:      r.now(),
			})
		}
	}
	return repaired, nil
}
