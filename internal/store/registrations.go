package store

import (
	"context"
	"errors"

	"github.com/gdg-garage/checkin-api/internal/models"
	"gorm.io/gorm"
)

type RegistrationStore struct {
	db *gorm.DB
}

func NewRegistrationStore(db *gorm.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

// Create inserts r as-is; email must already be normalised. The unique
// indexes decide the outcome: ErrDuplicateEmail when (event_id, email) is
// taken, ErrDuplicateRegistrationID when only the public code collided.
func (s *RegistrationStore) Create(ctx context.Context, r *models.Registration) error {
	err := s.db.WithContext(ctx).Omit("Event").Create(r).Error
	if err == nil {
		return nil
	}
	if !isDuplicate(err) {
		return unavailable("create registration", err)
	}

	// The competing row is committed by the time our insert fails, so a
	// read tells us which index we hit.
	if _, ferr := s.FindByEmail(ctx, r.EventID, r.Email); ferr == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(ferr, ErrNotFound) {
		return ferr
	}
	return ErrDuplicateRegistrationID
}

func (s *RegistrationStore) FindByEmail(ctx context.Context, eventID, email string) (*models.Registration, error) {
	var r models.Registration
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND email = ?", eventID, email).
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("find registration by email", err)
	}
	return &r, nil
}

// Lookup resolves a scanned credential. Both keys must match.
func (s *RegistrationStore) Lookup(ctx context.Context, registrationID, eventID string) (*models.Registration, error) {
	var r models.Registration
	err := s.db.WithContext(ctx).
		Preload("Event").
		Where("registration_id = ? AND event_id = ?", registrationID, eventID).
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("lookup registration", err)
	}
	return &r, nil
}

// List returns registrations in creation order, optionally for one event.
func (s *RegistrationStore) List(ctx context.Context, eventID string) ([]models.Registration, error) {
	q := s.db.WithContext(ctx).Preload("Event").Order("id asc")
	if eventID != "" {
		q = q.Where("event_id = ?", eventID)
	}
	var regs []models.Registration
	if err := q.Find(&regs).Error; err != nil {
		return nil, unavailable("list registrations", err)
	}
	return regs, nil
}

func (s *RegistrationStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Registration{}).Count(&n).Error; err != nil {
		return 0, unavailable("count registrations", err)
	}
	return n, nil
}
