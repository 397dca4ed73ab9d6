package model

type Waiter struct {
	DTO
	VenueId uint   `gorm:"not null;index" json:"venueId"`
	Name    string `gorm:"not null" json:"name"`
	PinHash string `gorm:"not null" json:"-"`
	Active  *bool  `gorm:"not null;default:true" json:"isActive"`
}

type CreateWaiterInput struct {
	VenueId uint   `json:"venueId" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Pin     string `json:"pin" validate:"required,numeric,min=4,max=8"`
}

type WaiterLoginInput struct {
	WaiterId uint   `json:"waiterId" validate:"required"`
	Pin      string `json:"pin" validate:"required"`
}
