package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nightlife_order/model"
	"nightlife_order/utils"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store is the gorm-backed persistence for venues, menus, tables and orders.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func create[T any](ctx context.Context, db *gorm.DB, v *T) error {
	return translate(db.WithContext(ctx).Create(v).Error, ErrNotFound)
}

func byId[T any](ctx context.Context, db *gorm.DB, id uint) (*T, error) {
	var v T
	if err := db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, translate(err, ErrNotFound)
	}
	return &v, nil
}

func list[T any](ctx context.Context, query *gorm.DB, page model.Pagination, preloads ...string) ([]T, int64, error) {
	var (
		rows  []T
		count int64
	)
	query = query.WithContext(ctx).Session(&gorm.Session{})
	if err := query.Model(new(T)).Count(&count).Error; err != nil {
		return nil, 0, err
	}
	find := query
	for _, p := range preloads {
		find = find.Preload(p)
	}
	if err := utils.ApplyPagination(find, page.Limit, page.Page).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, count, nil
}

func (s *Store) CreateVenue(ctx context.Context, v *model.Venue) error {
	return create(ctx, s.db, v)
}

func (s *Store) GetVenue(ctx context.Context, id uint) (*model.Venue, error) {
	return byId[model.Venue](ctx, s.db, id)
}

func (s *Store) ListVenues(ctx context.Context, page model.Pagination) ([]model.Venue, int64, error) {
	return list[model.Venue](ctx, s.db.Order("name"), page)
}

func (s *Store) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Venue{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	return create(ctx, s.db, e)
}

func (s *Store) GetEvent(ctx context.Context, id uint) (*model.Event, error) {
	return byId[model.Event](ctx, s.db, id)
}

func (s *Store) ListEvents(ctx context.Context, venueId uint, page model.Pagination) ([]model.Event, int64, error) {
	return list[model.Event](ctx, s.db.Where("venue_id = ?", venueId).Order("event_date desc, start_time"), page)
}

// CloseEventsBefore deactivates events dated before day and reports how many
// were closed.
func (s *Store) CloseEventsBefore(ctx context.Context, day time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Event{}).
		Where("event_date < ? AND active = ?", day.Format(time.DateOnly), true).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func (s *Store) CreateTable(ctx context.Context, t *model.EventTable) error {
	return create(ctx, s.db, t)
}

func (s *Store) GetTable(ctx context.Context, id uint) (*model.EventTable, error) {
	return byId[model.EventTable](ctx, s.db, id)
}

func (s *Store) ListTables(ctx context.Context, eventId uint) ([]model.EventTable, error) {
	var tables []model.EventTable
	err := s.db.WithContext(ctx).Where("event_id = ?", eventId).Order("grid_y, grid_x, label").Find(&tables).Error
	return tables, err
}

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	return create(ctx, s.db, c)
}

func (s *Store) ListCategories(ctx context.Context, venueId uint) ([]model.Category, error) {
	var cats []model.Category
	err := s.db.WithContext(ctx).Where("venue_id = ?", venueId).Order("sort_order, name").Find(&cats).Error
	return cats, err
}

func (s *Store) CreateMenuItem(ctx context.Context, m *model.MenuItem) error {
	return create(ctx, s.db, m)
}

func (s *Store) GetMenuItem(ctx context.Context, id uint) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := s.db.WithContext(ctx).Preload("Category").First(&item, id).Error; err != nil {
		return nil, translate(err, ErrNotFound)
	}
	return &item, nil
}

func (s *Store) ListMenuItems(ctx context.Context, venueId uint, page model.Pagination) ([]model.MenuItem, int64, error) {
	return list[model.MenuItem](ctx, s.db.Where("venue_id = ?", venueId).Order("name"), page, "Category")
}

// UpsertEventMenu sets the per-event price and availability of a menu item.
func (s *Store) UpsertEventMenu(ctx context.Context, em *model.EventMenu) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.EventMenu
		err := tx.Where("event_id = ? AND menu_item_id = ?", em.EventId, em.MenuItemId).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(em).Error
		}
		if err != nil {
			return err
		}
		em.ID = existing.ID
		em.CreatedAt = existing.CreatedAt
		return tx.Model(&existing).Select("custom_price", "available").Updates(em).Error
	})
}

func (s *Store) ListEventMenu(ctx context.Context, eventId uint) ([]model.EventMenu, error) {
	var rows []model.EventMenu
	err := s.db.WithContext(ctx).Where("event_id = ?", eventId).Find(&rows).Error
	return rows, err
}

func (s *Store) CreateWaiter(ctx context.Context, w *model.Waiter) error {
	return create(ctx, s.db, w)
}

func (s *Store) GetWaiter(ctx context.Context, id uint) (*model.Waiter, error) {
	return byId[model.Waiter](ctx, s.db, id)
}

func (s *Store) ListWaiters(ctx context.Context, venueId uint) ([]model.Waiter, error) {
	var waiters []model.Waiter
	err := s.db.WithContext(ctx).Where("venue_id = ?", venueId).Order("name").Find(&waiters).Error
	return waiters, err
}

func (s *Store) CreateCustomer(ctx context.Context, c *model.Customer) error {
	return create(ctx, s.db, c)
}

func (s *Store) GetCustomer(ctx context.Context, id uint) (*model.Customer, error) {
	return byId[model.Customer](ctx, s.db, id)
}

func (s *Store) ListCustomers(ctx context.Context, venueId uint, page model.Pagination) ([]model.Customer, int64, error) {
	return list[model.Customer](ctx, s.db.Where("venue_id = ?", venueId).Order("name"), page)
}

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	return create(ctx, s.db, a)
}

func (s *Store) AccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	var a model.Account
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		return nil, translate(err, ErrNotFound)
	}
	return &a, nil
}
