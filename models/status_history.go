package models

import (
	"time"

	"gorm.io/gorm"
)

// StatusHistory rows are insert-only. The first row of an order carries its initial status.
type StatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	Label     string      `gorm:"-" json:"label"`
	Timestamp time.Time   `gorm:"not null" json:"timestamp"`
}

func (StatusHistory) TableName() string {
	return "order_status_history"
}

func (h *StatusHistory) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

func (h *StatusHistory) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

func (h *StatusHistory) AfterFind(tx *gorm.DB) error {
	h.Label = h.Status.Label()
	return nil
}

func (h *StatusHistory) AfterCreate(tx *gorm.DB) error {
	h.Label = h.Status.Label()
	return nil
}
