package model

import "time"

type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

type PaymentType string

const (
	PaymentCash PaymentType = "cash"
	PaymentCard PaymentType = "card"
)

type Order struct {
	DTO
	PublicCode     string        `gorm:"uniqueIndex;size:20" json:"publicCode"`
	IdempotencyKey string        `gorm:"uniqueIndex;size:64;not null" json:"idempotencyKey"`
	VenueId        uint          `gorm:"not null;index" json:"venueId"`
	EventId        uint          `gorm:"not null;index" json:"eventId"`
	EventTableId   uint          `gorm:"not null;index" json:"eventTableId"`
	TableLabel     string        `json:"tableLabel"`
	Subtotal       float64       `gorm:"not null" json:"subtotal"`
	Total          float64       `gorm:"not null" json:"total"`
	Status         OrderStatus   `gorm:"not null;default:new;index" json:"status"`
	PaymentStatus  PaymentStatus `gorm:"not null;default:unpaid" json:"paymentStatus"`
	PaymentType    PaymentType   `gorm:"not null" json:"paymentType"`
	WaiterId       *uint         `json:"waiterId,omitempty"`
	CustomerId     *uint         `json:"customerId,omitempty"`
	Note           string        `json:"note"`
	PaidAt         *time.Time    `json:"paidAt,omitempty"`
	Version        int           `gorm:"not null;default:1" json:"version"`
	Items          []OrderItem   `gorm:"foreignKey:OrderId" json:"items"`
}

type OrderItem struct {
	DTO
	OrderId      uint    `gorm:"not null;index" json:"orderId"`
	MenuItemId   uint    `gorm:"not null" json:"menuItemId"`
	Name         string  `gorm:"not null" json:"name"`
	UnitPrice    float64 `gorm:"not null" json:"unitPrice"`
	Quantity     int     `gorm:"not null" json:"quantity"`
	PaidQuantity int     `gorm:"not null;default:0" json:"paidQuantity"`
	Subtotal     float64 `gorm:"not null" json:"subtotal"`
}

type CreateOrderInput struct {
	IdempotencyKey string                 `json:"idempotencyKey" validate:"required,max=64"`
	VenueId        uint                   `json:"venueId" validate:"required"`
	EventId        uint                   `json:"eventId" validate:"required"`
	EventTableId   uint                   `json:"eventTableId" validate:"required"`
	PaymentType    PaymentType            `json:"paymentType" validate:"required,oneof=cash card"`
	CustomerId     *uint                  `json:"customerId"`
	Note           string                 `json:"note" validate:"max=500"`
	Items          []CreateOrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type CreateOrderItemInput struct {
	MenuItemId uint    `json:"menuItemId" validate:"required"`
	Quantity   int     `json:"quantity" validate:"required,min=1"`
	UnitPrice  float64 `json:"unitPrice" validate:"gte=0"`
}

type UpdateOrderStatusInput struct {
	Status  OrderStatus `json:"status" validate:"required,oneof=new preparing ready delivered cancelled"`
	Version int         `json:"version" validate:"required,min=1"`
}

type RecordPaymentInput struct {
	Version int                 `json:"version" validate:"required,min=1"`
	Items   []PaidQuantityInput `json:"items" validate:"required,min=1,dive"`
}

type PaidQuantityInput struct {
	OrderItemId  uint `json:"orderItemId" validate:"required"`
	PaidQuantity int  `json:"paidQuantity" validate:"gte=0"`
}

type PayInFullInput struct {
	Version int `json:"version" validate:"required,min=1"`
}

type FilterOrder struct {
	Pagination
	EventId      uint        `query:"eventId"`
	EventTableId uint        `query:"tableId"`
	Status       OrderStatus `query:"status"`
	WaiterId     uint        `query:"waiterId"`
}

// OrderStats is a read-only summary of one event's orders.
type OrderStats struct {
	EventId        uint                      `json:"eventId"`
	CountByStatus  map[OrderStatus]int64     `json:"countByStatus"`
	TotalByPayment map[PaymentStatus]float64 `json:"totalByPayment"`
	Revenue        float64                   `json:"revenue"`
}
