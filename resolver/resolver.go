package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"nightlife_order/constants"
	"nightlife_order/model"

	log "github.com/sirupsen/logrus"
)

type Status string

const (
	StatusOK            Status = "ok"
	StatusVenueNotFound Status = "venue_not_found"
	StatusNoEvent       Status = "no_event"
	StatusUpcoming      Status = "upcoming"
	StatusTableNotFound Status = "table_not_found"
)

const DefaultUpcomingWindow = 60 * time.Minute

// ErrNotFound is returned by a Directory when no row matches.
var ErrNotFound = errors.New("not found")

// Directory is the read model the resolver looks venues, events and tables up in.
// Lookups by slug and label are case-insensitive and only return active rows.
type Directory interface {
	ActiveVenueBySlug(ctx context.Context, slug string) (*model.Venue, error)
	AnyActiveVenue(ctx context.Context) (*model.Venue, error)
	// ActiveEventsOn returns the venue's active events on day ordered by start time.
	ActiveEventsOn(ctx context.Context, venueId uint, day time.Time) ([]model.Event, error)
	LatestActiveEvent(ctx context.Context, venueId uint) (*model.Event, error)
	ActiveTableByLabel(ctx context.Context, eventId uint, label string) (*model.EventTable, error)
	AnyActiveTable(ctx context.Context, eventId uint) (*model.EventTable, error)
}

type Result struct {
	Status            Status            `json:"status"`
	Venue             *model.Venue      `json:"venue,omitempty"`
	Event             *model.Event      `json:"event,omitempty"`
	Table             *model.EventTable `json:"table,omitempty"`
	Message           string            `json:"message,omitempty"`
	MinutesUntilStart *int              `json:"minutesUntilStart,omitempty"`
	StartsAt          *time.Time        `json:"startsAt,omitempty"`
}

// Strategy resolves a venue identifier and table label to an ordering context.
type Strategy interface {
	Resolve(ctx context.Context, venueIdentifier, tableLabel string) (Result, error)
}

type Options struct {
	Now               func() time.Time
	Location          *time.Location
	UpcomingWindow    time.Duration
	DemoMode          bool
	DemoIdentifiers   []string
	DemoTableFallback bool
	Logger            *log.Entry
}

// Resolver dispatches to the demo strategy for configured demo identifiers
// and to the production strategy for everything else.
type Resolver struct {
	production Strategy
	demo       Strategy
	demoIds    map[string]struct{}
	log        *log.Entry
}

func New(dir Directory, opts Options) *Resolver {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.UpcomingWindow <= 0 {
		opts.UpcomingWindow = DefaultUpcomingWindow
	}
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}

	r := &Resolver{
		production: &ProductionResolution{
			dir:    dir,
			now:    opts.Now,
			loc:    opts.Location,
			window: opts.UpcomingWindow,
		},
		log: opts.Logger.WithField("component", "resolver"),
	}
	if opts.DemoMode {
		r.demo = &DemoResolution{dir: dir, tableFallback: opts.DemoTableFallback}
		r.demoIds = make(map[string]struct{}, len(opts.DemoIdentifiers))
		for _, id := range opts.DemoIdentifiers {
			r.demoIds[normalize(id)] = struct{}{}
		}
	}
	return r
}

func (r *Resolver) IsDemo(venueIdentifier string) bool {
	if r.demo == nil {
		return false
	}
	_, ok := r.demoIds[normalize(venueIdentifier)]
	return ok
}

func (r *Resolver) Resolve(ctx context.Context, venueIdentifier, tableLabel string) (Result, error) {
	strategy := r.production
	if r.IsDemo(venueIdentifier) {
		strategy = r.demo
	}
	res, err := strategy.Resolve(ctx, venueIdentifier, tableLabel)
	if err != nil {
		r.log.WithError(err).WithField("venue", venueIdentifier).Error("resolve failed")
		return Result{}, err
	}
	r.log.WithFields(log.Fields{
		"venue":  venueIdentifier,
		"table":  tableLabel,
		"status": res.Status,
	}).Debug("session resolved")
	return res, nil
}

type ProductionResolution struct {
	dir    Directory
	now    func() time.Time
	loc    *time.Location
	window time.Duration
}

func (p *ProductionResolution) Resolve(ctx context.Context, venueIdentifier, tableLabel string) (Result, error) {
	venue, err := p.dir.ActiveVenueBySlug(ctx, normalize(venueIdentifier))
	if errors.Is(err, ErrNotFound) {
		return Result{Status: StatusVenueNotFound, Message: constants.MESSAGE_VENUE_NOT_FOUND}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup venue: %w", err)
	}

	loc := p.loc
	if venue.Timezone != "" {
		if l, err := time.LoadLocation(venue.Timezone); err == nil {
			loc = l
		}
	}
	now := p.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	events, err := p.dir.ActiveEventsOn(ctx, venue.ID, today)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Result{}, fmt.Errorf("lookup events: %w", err)
	}
	if len(events) == 0 {
		return Result{Status: StatusNoEvent, Venue: venue, Message: constants.MESSAGE_NO_EVENT}, nil
	}
	event := events[0]

	startsAt := event.StartsAt(loc)
	if until := startsAt.Sub(now); until > p.window {
		minutes := int(math.Ceil(until.Minutes()))
		return Result{
			Status:            StatusUpcoming,
			Venue:             venue,
			Event:             &event,
			Message:           constants.MESSAGE_UPCOMING,
			MinutesUntilStart: &minutes,
			StartsAt:          &startsAt,
		}, nil
	}

	return matchTable(ctx, p.dir, venue, &event, tableLabel, false)
}

// DemoResolution ignores the calendar: it picks any active venue and its
// most recent active event so demo links keep working between events.
type DemoResolution struct {
	dir           Directory
	tableFallback bool
}

func (d *DemoResolution) Resolve(ctx context.Context, _ string, tableLabel string) (Result, error) {
	venue, err := d.dir.AnyActiveVenue(ctx)
	if errors.Is(err, ErrNotFound) {
		return Result{Status: StatusVenueNotFound, Message: constants.MESSAGE_VENUE_NOT_FOUND}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup demo venue: %w", err)
	}

	event, err := d.dir.LatestActiveEvent(ctx, venue.ID)
	if errors.Is(err, ErrNotFound) {
		return Result{Status: StatusNoEvent, Venue: venue, Message: constants.MESSAGE_NO_EVENT}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup demo event: %w", err)
	}

	return matchTable(ctx, d.dir, venue, event, tableLabel, d.tableFallback)
}

func matchTable(ctx context.Context, dir Directory, venue *model.Venue, event *model.Event, label string, fallback bool) (Result, error) {
	table, err := dir.ActiveTableByLabel(ctx, event.ID, normalize(label))
	if errors.Is(err, ErrNotFound) && fallback {
		table, err = dir.AnyActiveTable(ctx, event.ID)
	}
	if errors.Is(err, ErrNotFound) {
		return Result{Status: StatusTableNotFound, Venue: venue, Event: event, Message: constants.MESSAGE_TABLE_NOT_FOUND}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup table: %w", err)
	}
	return Result{Status: StatusOK, Venue: venue, Event: event, Table: table}, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
