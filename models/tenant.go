package models

import "time"

type Tenant struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Slug              string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"slug"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	AdminPasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Settings          string    `gorm:"type:text" json:"-"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}
