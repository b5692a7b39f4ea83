package models

import (
	"time"
)

// OrderLine is the frozen description of one cart entry at submission time.
type OrderLine struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	MenuItemID  uint      `gorm:"not null" json:"menu_item_id"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	UnitPrice   float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (l OrderLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}
