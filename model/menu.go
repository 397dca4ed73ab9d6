package model

type Badge string

const (
	BadgePopular     Badge = "popular"
	BadgePremium     Badge = "premium"
	BadgeNew         Badge = "new"
	BadgeRecommended Badge = "recommended"
)

type Category struct {
	DTO
	VenueId   uint   `gorm:"not null;index" json:"venueId"`
	Name      string `gorm:"not null" json:"name"`
	SortOrder int    `json:"sortOrder"`
}

type MenuItem struct {
	DTO
	VenueId      uint      `gorm:"not null;index" json:"venueId"`
	CategoryId   uint      `gorm:"not null;index" json:"categoryId"`
	Category     *Category `json:"category,omitempty"`
	Name         string    `gorm:"not null" json:"name"`
	Description  string    `json:"description"`
	DefaultPrice float64   `gorm:"not null" json:"defaultPrice"`
	Available    *bool     `gorm:"not null;default:true" json:"available"`
	Badge        Badge     `json:"badge,omitempty"`
	ProductType  string    `json:"productType,omitempty"`
}

// CategoryName is empty when the category was not preloaded.
func (m MenuItem) CategoryName() string {
	if m.Category == nil {
		return ""
	}
	return m.Category.Name
}

type EventMenu struct {
	DTO
	EventId     uint     `gorm:"not null;uniqueIndex:idx_event_menu_item" json:"eventId"`
	MenuItemId  uint     `gorm:"not null;uniqueIndex:idx_event_menu_item" json:"menuItemId"`
	CustomPrice *float64 `json:"customPrice"`
	Available   *bool    `gorm:"not null;default:true" json:"available"`
}

// MenuEntry is a menu item as offered at one event.
type MenuEntry struct {
	MenuItem
	Price    float64    `json:"price"`
	Override *EventMenu `json:"override,omitempty"`
}

type CreateCategoryInput struct {
	VenueId   uint   `json:"venueId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	SortOrder int    `json:"sortOrder"`
}

type CreateMenuItemInput struct {
	VenueId      uint    `json:"venueId" validate:"required"`
	CategoryId   uint    `json:"categoryId" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Description  string  `json:"description"`
	DefaultPrice float64 `json:"defaultPrice" validate:"gte=0"`
	Available    *bool   `json:"available"`
	Badge        Badge   `json:"badge" validate:"omitempty,oneof=popular premium new recommended"`
	ProductType  string  `json:"productType"`
}

type CreateEventMenuInput struct {
	MenuItemId  uint     `json:"menuItemId" validate:"required"`
	CustomPrice *float64 `json:"customPrice" validate:"omitempty,gte=0"`
	Available   *bool    `json:"available"`
}
