package models

import (
	"time"

	"gorm.io/gorm"
)

// ScannerKey lets a scanning station submit check-ins without an admin session.
type ScannerKey struct {
	gorm.Model
	AdminID    uint       `json:"admin_id"`
	Admin      Admin      `json:"-"`
	Key        string     `json:"key" gorm:"uniqueIndex"`
	Name       string     `json:"name"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
