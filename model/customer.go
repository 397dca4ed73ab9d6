package model

type Customer struct {
	DTO
	VenueId uint   `gorm:"not null;index" json:"venueId"`
	Name    string `json:"name"`
	Phone   string `gorm:"index" json:"phone"`
	Email   string `json:"email"`
}

type CreateCustomerInput struct {
	VenueId uint   `json:"venueId" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"omitempty,min=6,max=20"`
	Email   string `json:"email" validate:"omitempty,email"`
}
