package database

import (
	"fmt"
	"time"

	"nightlife_order/constants"
	"nightlife_order/model"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedData creates a demo venue with tonight's event, a table plan, a small
// menu, one waiter and one manager. Existing rows are left untouched.
func SeedData(db *gorm.DB, loc *time.Location, logger *log.Entry) {
	venue := model.Venue{Slug: "nuba", Name: "Nuba Demo", Timezone: loc.String()}
	if err := db.Where(model.Venue{Slug: venue.Slug}).FirstOrCreate(&venue).Error; err != nil {
		logger.WithError(err).Error("seed venue")
		return
	}

	now := time.Now().In(loc)
	event := model.Event{
		VenueId:   venue.ID,
		Name:      "Tonight",
		EventDate: datatypes.Date(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)),
		StartTime: datatypes.NewTime(21, 0, 0, 0),
	}
	err := db.Where("venue_id = ? AND event_date = ?", venue.ID, now.Format(time.DateOnly)).
		Attrs(event).
		FirstOrCreate(&event).Error
	if err != nil {
		logger.WithError(err).Error("seed event")
		return
	}

	tables := []model.EventTable{
		{Label: "VIP1", Type: model.TableTypeVIP, GridX: 0, GridY: 0, Zone: model.ZoneFront},
		{Label: "VIP2", Type: model.TableTypeVIP, GridX: 1, GridY: 0, Zone: model.ZoneFront},
		{Label: "T1", Type: model.TableTypeNormal, GridX: 0, GridY: 1, Zone: model.ZoneBack},
		{Label: "T2", Type: model.TableTypeNormal, GridX: 1, GridY: 1, Zone: model.ZoneBack},
		{Label: "BAR", Type: model.TableTypeBar, GridX: 2, GridY: 0, Zone: model.ZoneFront},
	}
	for _, t := range tables {
		t.EventId = event.ID
		if err := db.Where("event_id = ? AND label_key = LOWER(?)", event.ID, t.Label).FirstOrCreate(&t).Error; err != nil {
			logger.WithError(err).WithField("table", t.Label).Error("seed table")
		}
	}

	menu := map[string][]model.MenuItem{
		"Bottles":       {{Name: "Vodka bottle", DefaultPrice: 180, Badge: model.BadgePremium, ProductType: "bottle"}, {Name: "Gin bottle", DefaultPrice: 160, ProductType: "bottle"}},
		"Soft drinks":   {{Name: "Tonic", DefaultPrice: 4, Badge: model.BadgePopular}, {Name: "Cola", DefaultPrice: 4}},
		"Energy drinks": {{Name: "Red Bull", DefaultPrice: 6, Badge: model.BadgePopular}},
		"Shots":         {{Name: "Tequila shot", DefaultPrice: 7, ProductType: "shot"}},
		"Beer":          {{Name: "Lager", DefaultPrice: 6, ProductType: "beer"}},
	}
	order := []string{"Bottles", "Soft drinks", "Energy drinks", "Shots", "Beer"}
	for i, name := range order {
		category := model.Category{VenueId: venue.ID, Name: name, SortOrder: i}
		if err := db.Where(model.Category{VenueId: venue.ID, Name: name}).FirstOrCreate(&category).Error; err != nil {
			logger.WithError(err).WithField("category", name).Error("seed category")
			continue
		}
		for _, item := range menu[name] {
			item.VenueId = venue.ID
			item.CategoryId = category.ID
			if err := db.Where(model.MenuItem{VenueId: venue.ID, Name: item.Name}).FirstOrCreate(&item).Error; err != nil {
				logger.WithError(err).WithField("item", item.Name).Error("seed menu item")
			}
		}
	}

	pin, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.DefaultCost)
	if err != nil {
		logger.WithError(err).Error("hash pin")
		return
	}
	waiter := model.Waiter{VenueId: venue.ID, Name: "Demo waiter", PinHash: string(pin)}
	if err := db.Where(model.Waiter{VenueId: venue.ID, Name: waiter.Name}).FirstOrCreate(&waiter).Error; err != nil {
		logger.WithError(err).Error("seed waiter")
	}

	password, err := bcrypt.GenerateFromPassword([]byte("manager123"), bcrypt.DefaultCost)
	if err != nil {
		logger.WithError(err).Error("hash password")
		return
	}
	account := model.Account{Username: fmt.Sprintf("%s-manager", venue.Slug), Password: string(password), Role: constants.ROLE_MANAGER, VenueId: venue.ID}
	if err := db.Where(model.Account{Username: account.Username}).FirstOrCreate(&account).Error; err != nil {
		logger.WithError(err).Error("seed account")
	}
	logger.WithField("venue", venue.Slug).Info("seed data ready")
}
