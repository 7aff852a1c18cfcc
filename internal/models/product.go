package models

import "time"

// Product represents an inventory item. Quantity is a non-negative counter
// adjusted by the stock-in/stock-out operations; MinQuantity is the reorder
// threshold, stored but never enforced by the service itself.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null" validate:"required"`
	Value       float64   `json:"value" gorm:"not null" validate:"gte=0"`
	Quantity    int       `json:"quantity" gorm:"not null" validate:"gte=0"`
	MinQuantity int       `json:"minQuantity" gorm:"not null" validate:"gte=0"`
	Image       *string   `json:"image" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
