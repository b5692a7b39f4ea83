package models

import (
	"math"
	"time"
)

// MenuItem is a catalog entry. RequiresGroupA/RequiresGroupB are the legacy
// "guisos"/"salsas" flags and resolve to the tenant's seeded option groups.
type MenuItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TenantID        uint      `gorm:"not null;index" json:"-"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name" binding:"required"`
	Description     string    `gorm:"type:text" json:"description"`
	Price           float64   `gorm:"type:decimal(10,2);not null" json:"price" binding:"gte=0"`
	DiscountPercent float64   `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent" binding:"gte=0,lte=100"`
	ImageRef        string    `gorm:"type:varchar(255)" json:"image_ref"`
	RequiresGroupA  bool      `gorm:"not null;default:false" json:"requires_guisos"`
	RequiresGroupB  bool      `gorm:"not null;default:false" json:"requires_salsas"`
	ExtraGroupIDs   []uint    `gorm:"serializer:json;type:text" json:"extra_group_ids"`
	PiecesPerUnit   int       `gorm:"not null;default:1" json:"pieces_per_unit"`
	Available       bool      `gorm:"not null" json:"available"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

// EffectivePrice applies the discount and rounds to cents.
func (m MenuItem) EffectivePrice() float64 {
	price := m.Price * (1 - m.DiscountPercent/100)
	return math.Round(price*100) / 100
}
