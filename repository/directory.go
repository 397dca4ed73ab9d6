package repository

import (
	"context"
	"strings"
	"time"

	"nightlife_order/model"
	"nightlife_order/resolver"
)

var _ resolver.Directory = (*Store)(nil)

func (s *Store) ActiveVenueBySlug(ctx context.Context, slug string) (*model.Venue, error) {
	var v model.Venue
	err := s.db.WithContext(ctx).
		Where("LOWER(slug) = ? AND active = ?", strings.ToLower(slug), true).
		First(&v).Error
	if err != nil {
		return nil, translate(err, resolver.ErrNotFound)
	}
	return &v, nil
}

func (s *Store) AnyActiveVenue(ctx context.Context) (*model.Venue, error) {
	var v model.Venue
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id").First(&v).Error; err != nil {
		return nil, translate(err, resolver.ErrNotFound)
	}
	return &v, nil
}

func (s *Store) ActiveEventsOn(ctx context.Context, venueId uint, day time.Time) ([]model.Event, error) {
	var events []model.Event
	err := s.db.WithContext(ctx).
		Where("venue_id = ? AND active = ? AND event_date = ?", venueId, true, day.Format(time.DateOnly)).
		Order("start_time asc").
		Find(&events).Error
	return events, err
}

func (s *Store) LatestActiveEvent(ctx context.Context, venueId uint) (*model.Event, error) {
	var e model.Event
	err := s.db.WithContext(ctx).
		Where("venue_id = ? AND active = ?", venueId, true).
		Order("event_date desc, start_time desc").
		First(&e).Error
	if err != nil {
		return nil, translate(err, resolver.ErrNotFound)
	}
	return &e, nil
}

func (s *Store) ActiveTableByLabel(ctx context.Context, eventId uint, label string) (*model.EventTable, error) {
	var t model.EventTable
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND label_key = ? AND active = ?", eventId, strings.ToLower(strings.TrimSpace(label)), true).
		First(&t).Error
	if err != nil {
		return nil, translate(err, resolver.ErrNotFound)
	}
	return &t, nil
}

func (s *Store) AnyActiveTable(ctx context.Context, eventId uint) (*model.EventTable, error) {
	var t model.EventTable
	err := s.db.WithContext(ctx).Where("event_id = ? AND active = ?", eventId, true).Order("id").First(&t).Error
	if err != nil {
		return nil, translate(err, resolver.ErrNotFound)
	}
	return &t, nil
}
