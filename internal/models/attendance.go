package models

import (
	"time"
)

// Attendance is written once per registration; the unique index on
// RegistrationID is what makes check-in at-most-once.
type Attendance struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RegistrationID string    `gorm:"not null;uniqueIndex" json:"registration_id"`
	AttendedAt     time.Time `gorm:"not null" json:"attended_at"`
	CreatedAt      time.Time `json:"created_at"`
}
