package models

import (
	"time"

	"gorm.io/gorm"
)

// IdempotencyKeyMaxLen matches the idempotency_key column width.
const IdempotencyKeyMaxLen = 64

type Order struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	TenantID           uint            `gorm:"not null;uniqueIndex:idx_tenant_tracking;uniqueIndex:idx_tenant_idempotency;index:idx_tenant_created" json:"-"`
	TrackingCode       string          `gorm:"type:varchar(12);not null;uniqueIndex:idx_tenant_tracking" json:"tracking_code"`
	IdempotencyKey     *string         `gorm:"type:varchar(64);uniqueIndex:idx_tenant_idempotency" json:"-"`
	CustomerName       string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	Phone              string          `gorm:"type:varchar(20);not null;index" json:"phone"`
	Address            string          `gorm:"type:text" json:"address"`
	PostalCode         string          `gorm:"type:varchar(10)" json:"postal_code,omitempty"`
	Notes              string          `gorm:"type:text" json:"notes"`
	Total              float64         `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`
	PaymentMethod      PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	CashTendered       *float64        `gorm:"type:decimal(10,2)" json:"cash_tendered,omitempty"`
	Status             OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	StatusLabel        string          `gorm:"-" json:"status_label"`
	CancellationReason *string         `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time       `gorm:"not null;index:idx_tenant_created" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null" json:"updated_at"`
	Lines              []OrderLine     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"lines,omitempty"`
	History            []StatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"history,omitempty"`
}

func (o *Order) AfterFind(tx *gorm.DB) error {
	o.StatusLabel = o.Status.Label()
	return nil
}

func (o *Order) AfterSave(tx *gorm.DB) error {
	o.StatusLabel = o.Status.Label()
	return nil
}
