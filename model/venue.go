package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TableType string

const (
	TableTypeVIP    TableType = "vip"
	TableTypeNormal TableType = "normal"
	TableTypeBar    TableType = "bar"
)

type TableZone string

const (
	ZoneFront TableZone = "front"
	ZoneBack  TableZone = "back"
)

type Venue struct {
	DTO
	Slug     string `gorm:"uniqueIndex;size:120" json:"slug"`
	Name     string `gorm:"not null" json:"name"`
	Timezone string `json:"timezone"`
	Active   *bool  `gorm:"not null;default:true" json:"isActive"`
}

type Event struct {
	DTO
	VenueId   uint            `gorm:"not null;index" json:"venueId"`
	Venue     *Venue          `json:"venue,omitempty"`
	Name      string          `gorm:"not null" json:"name"`
	EventDate datatypes.Date  `gorm:"not null;index" json:"eventDate"`
	StartTime datatypes.Time  `gorm:"not null" json:"startTime"`
	EndTime   *datatypes.Time `json:"endTime,omitempty"`
	Active    *bool           `gorm:"not null;default:true" json:"isActive"`
}

// StartsAt combines the event date and start time in loc.
func (e Event) StartsAt(loc *time.Location) time.Time {
	y, m, d := time.Time(e.EventDate).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(e.StartTime))
}

type EventTable struct {
	DTO
	EventId  uint      `gorm:"not null;uniqueIndex:idx_event_table_label" json:"eventId"`
	Label    string    `gorm:"not null" json:"label"`
	LabelKey string    `gorm:"not null;uniqueIndex:idx_event_table_label" json:"-"`
	Type     TableType `gorm:"not null;default:normal" json:"type"`
	GridX    int       `json:"gridX"`
	GridY    int       `json:"gridY"`
	Zone     TableZone `gorm:"not null;default:front" json:"zone"`
	Active   *bool     `gorm:"not null;default:true" json:"isActive"`
}

// BeforeSave keeps labels unique per event regardless of case.
func (t *EventTable) BeforeSave(tx *gorm.DB) error {
	t.LabelKey = strings.ToLower(strings.TrimSpace(t.Label))
	return nil
}

type TableAssignment struct {
	DTO
	EventId      uint  `gorm:"not null;index" json:"eventId"`
	EventTableId uint  `gorm:"not null;index" json:"eventTableId"`
	WaiterId     uint  `gorm:"not null;index" json:"waiterId"`
	Active       *bool `gorm:"not null;default:true" json:"isActive"`
}

type CreateVenueInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
	Active   *bool  `json:"isActive"`
}

type CreateEventInput struct {
	VenueId   uint   `json:"venueId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	EventDate string `json:"eventDate" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"omitempty,datetime=15:04"`
	Active    *bool  `json:"isActive"`
}

type CreateEventTableInput struct {
	Label string    `json:"label" validate:"required,max=20"`
	Type  TableType `json:"type" validate:"omitempty,oneof=vip normal bar"`
	GridX int       `json:"gridX" validate:"gte=0"`
	GridY int       `json:"gridY" validate:"gte=0"`
	Zone  TableZone `json:"zone" validate:"omitempty,oneof=front back"`
}

type CreateAssignmentInput struct {
	EventTableId uint `json:"eventTableId" validate:"required"`
	WaiterId     uint `json:"waiterId" validate:"required"`
}
