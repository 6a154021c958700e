package models

import "time"

// Booking is the local read replica of a scheduled consultation. Rows are
// written only by the registry sync consumer.
type Booking struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Service   string    `json:"service"`
	Date      string    `gorm:"type:varchar(10)" json:"date"`
	Time      string    `gorm:"type:varchar(8)" json:"time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
