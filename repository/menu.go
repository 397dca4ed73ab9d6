package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nightlife_order/cart"
	"nightlife_order/model"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// EventMenu returns the venue's menu items with the event's overrides applied.
// Unavailable items are included so the caller can show them greyed out.
func (s *Store) EventMenu(ctx context.Context, venueId, eventId uint) ([]model.MenuEntry, error) {
	var items []model.MenuItem
	err := s.db.WithContext(ctx).
		Preload("Category").
		Joins("LEFT JOIN categories ON categories.id = menu_items.category_id").
		Where("menu_items.venue_id = ?", venueId).
		Order("categories.sort_order, menu_items.name").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	overrides, err := s.ListEventMenu(ctx, eventId)
	if err != nil {
		return nil, err
	}
	byItem := make(map[uint]*model.EventMenu, len(overrides))
	for i := range overrides {
		byItem[overrides[i].MenuItemId] = &overrides[i]
	}

	entries := make([]model.MenuEntry, 0, len(items))
	for _, it := range items {
		override := byItem[it.ID]
		entries = append(entries, model.MenuEntry{
			MenuItem: it,
			Price:    cart.ResolvePrice(it, override),
			Override: override,
		})
	}
	return entries, nil
}

type MenuSource interface {
	EventMenu(ctx context.Context, venueId, eventId uint) ([]model.MenuEntry, error)
}

// CachedMenu keeps event menus in redis. Redis failures fall through to the
// underlying source.
type CachedMenu struct {
	next MenuSource
	rdb  *redis.Client
	ttl  time.Duration
	log  *log.Entry
}

func NewCachedMenu(next MenuSource, rdb *redis.Client, ttl time.Duration, logger *log.Entry) *CachedMenu {
	return &CachedMenu{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  logger.WithField("component", "menu-cache"),
	}
}

func menuKey(venueId, eventId uint) string {
	return fmt.Sprintf("menu:%d:%d", venueId, eventId)
}

func (c *CachedMenu) EventMenu(ctx context.Context, venueId, eventId uint) ([]model.MenuEntry, error) {
	key := menuKey(venueId, eventId)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entries []model.MenuEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
		c.log.WithField("key", key).Warn("discarding unreadable cached menu")
	case errors.Is(err, redis.Nil):
	default:
		c.log.WithError(err).Debug("menu cache unavailable")
	}

	entries, err := c.next.EventMenu(ctx, venueId, eventId)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(entries); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.WithError(err).Debug("menu cache write skipped")
		}
	}
	return entries, nil
}

// Invalidate drops every cached menu of the venue.
func (c *CachedMenu) Invalidate(ctx context.Context, venueId uint) error {
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("menu:%d:*", venueId), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
