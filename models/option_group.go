package models

import "time"

// Keys of the two option groups every tenant is seeded with.
const (
	LegacyGroupA = "guisos"
	LegacyGroupB = "salsas"
)

// OptionGroup is a named, bounded set of choices a catalog item can require.
type OptionGroup struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TenantID      uint      `gorm:"not null;uniqueIndex:idx_tenant_group_key" json:"-"`
	Key           string    `gorm:"column:group_key;type:varchar(64);not null;uniqueIndex:idx_tenant_group_key" json:"key"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Options       []string  `gorm:"serializer:json;type:text" json:"options"`
	AllowMultiple bool      `gorm:"not null" json:"allow_multiple"`
	Required      bool      `gorm:"not null" json:"required"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}
