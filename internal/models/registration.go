package models

import (
	"time"
)

// Registration binds one participant (by email) to one event.
// RegistrationID is the public code carried inside QRPayload.
type Registration struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	EventID        string    `gorm:"not null;uniqueIndex:idx_event_email" json:"event_id"`
	Event          Event     `gorm:"foreignKey:EventID" json:"event"`
	Name           string    `gorm:"not null" json:"name"`
	Email          string    `gorm:"not null;uniqueIndex:idx_event_email" json:"email"`
	RegistrationID string    `gorm:"not null;uniqueIndex" json:"registration_id"`
	QRPayload      string    `gorm:"not null" json:"qr_payload"`
	CreatedAt      time.Time `json:"created_at"`
}
