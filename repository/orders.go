package repository

import (
	"context"
	"errors"

	"nightlife_order/lifecycle"
	"nightlife_order/model"
	"nightlife_order/utils"

	"gorm.io/gorm"
)

var _ lifecycle.Store = (*Store)(nil)

// CreateOrder writes the order and its items in one transaction. When an
// order with the same idempotency key exists it is returned instead and
// created is false.
func (s *Store) CreateOrder(ctx context.Context, order *model.Order) (*model.Order, bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Order
		err := tx.Preload("Items").Where("idempotency_key = ?", order.IdempotencyKey).First(&existing).Error
		if err == nil {
			*order = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent request with the same key won the insert
		existing, ferr := s.OrderByIdempotencyKey(ctx, order.IdempotencyKey)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return order, created, nil
}

func (s *Store) OrderByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("idempotency_key = ?", key).First(&o).Error
	if err != nil {
		return nil, translate(err, lifecycle.ErrNotFound)
	}
	return &o, nil
}

func (s *Store) GetOrder(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&o, id).Error
	if err != nil {
		return nil, translate(err, lifecycle.ErrNotFound)
	}
	return &o, nil
}

func (s *Store) GetOrderByCode(ctx context.Context, code string) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("public_code = ?", code).First(&o).Error
	if err != nil {
		return nil, translate(err, lifecycle.ErrNotFound)
	}
	return &o, nil
}

// UpdateOrder writes status, payment state and paid quantities when the
// stored version still matches, and bumps the version.
func (s *Store) UpdateOrder(ctx context.Context, order *model.Order, expectedVersion int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND version = ?", order.ID, expectedVersion).
			Updates(map[string]any{
				"status":         order.Status,
				"payment_status": order.PaymentStatus,
				"paid_at":        order.PaidAt,
				"version":        gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Order{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return lifecycle.ErrNotFound
			}
			return lifecycle.ErrStaleVersion
		}
		for _, it := range order.Items {
			err := tx.Model(&model.OrderItem{}).
				Where("id = ? AND order_id = ?", it.ID, order.ID).
				Update("paid_quantity", it.PaidQuantity).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListOrders(ctx context.Context, filter model.FilterOrder) ([]model.Order, error) {
	query := s.db.WithContext(ctx).Preload("Items")
	if filter.EventId != 0 {
		query = query.Where("event_id = ?", filter.EventId)
	}
	if filter.EventTableId != 0 {
		query = query.Where("event_table_id = ?", filter.EventTableId)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.WaiterId != 0 {
		query = query.Where("waiter_id = ?", filter.WaiterId)
	}
	var orders []model.Order
	err := utils.ApplyPagination(query.Order("created_at desc"), filter.Limit, filter.Page).Find(&orders).Error
	return orders, err
}

func (s *Store) OrderStats(ctx context.Context, eventId uint) (*model.OrderStats, error) {
	stats := &model.OrderStats{
		EventId:        eventId,
		CountByStatus:  map[model.OrderStatus]int64{},
		TotalByPayment: map[model.PaymentStatus]float64{},
	}

	var byStatus []struct {
		Status model.OrderStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&model.Order{}).
		Select("status, count(*) AS count").
		Where("event_id = ?", eventId).
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}
	for _, r := range byStatus {
		stats.CountByStatus[r.Status] = r.Count
	}

	var byPayment []struct {
		PaymentStatus model.PaymentStatus
		Total         float64
	}
	err = s.db.WithContext(ctx).Model(&model.Order{}).
		Select("payment_status, COALESCE(SUM(total), 0) AS total").
		Where("event_id = ? AND status <> ?", eventId, model.OrderStatusCancelled).
		Group("payment_status").
		Scan(&byPayment).Error
	if err != nil {
		return nil, err
	}
	for _, r := range byPayment {
		stats.TotalByPayment[r.PaymentStatus] = r.Total
	}
	stats.Revenue = stats.TotalByPayment[model.PaymentPaid]
	return stats, nil
}

// AssignTable makes waiterId the table's waiter for the event, retiring any
// earlier assignment.
func (s *Store) AssignTable(ctx context.Context, eventId, tableId, waiterId uint) (*model.TableAssignment, error) {
	active := true
	a := &model.TableAssignment{EventId: eventId, EventTableId: tableId, WaiterId: waiterId, Active: &active}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.TableAssignment{}).
			Where("event_id = ? AND event_table_id = ? AND active = ?", eventId, tableId, true).
			Update("active", false).Error
		if err != nil {
			return err
		}
		return tx.Create(a).Error
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) AssignedTableIds(ctx context.Context, eventId, waiterId uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&model.TableAssignment{}).
		Where("event_id = ? AND waiter_id = ? AND active = ?", eventId, waiterId, true).
		Order("event_table_id").
		Pluck("event_table_id", &ids).Error
	return ids, err
}

func (s *Store) ListAssignments(ctx context.Context, eventId uint) ([]model.TableAssignment, error) {
	var rows []model.TableAssignment
	err := s.db.WithContext(ctx).Where("event_id = ? AND active = ?", eventId, true).Order("event_table_id").Find(&rows).Error
	return rows, err
}

// CurrentWaiter returns the waiter assigned to the table, or nil.
func (s *Store) CurrentWaiter(ctx context.Context, eventId, tableId uint) (*uint, error) {
	var a model.TableAssignment
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND event_table_id = ? AND active = ?", eventId, tableId, true).
		Order("id desc").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a.WaiterId, nil
}
