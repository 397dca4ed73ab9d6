package model

// Account is a manager login scoped to one venue.
type Account struct {
	DTO
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	Active   *bool  `gorm:"not null;default:true" json:"active"`
	Role     string `gorm:"not null" json:"role"`
	VenueId  uint   `gorm:"not null;index" json:"venueId"`
}

type CreateAccountInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=50"`
	VenueId  uint   `json:"venueId" validate:"required"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
