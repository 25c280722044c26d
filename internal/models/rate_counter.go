package models

import "time"

// RateCounter is one fixed rate-limit window for a client key.
type RateCounter struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Hits      int64     `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
