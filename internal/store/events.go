package store

import (
	"context"
	"errors"

	"github.com/gdg-garage/checkin-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Create assigns a fresh UUID when the event carries no ID.
func (s *EventStore) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return unavailable("create event", err)
	}
	return nil
}

func (s *EventStore) Get(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get event", err)
	}
	return &event, nil
}

// List returns events soonest first.
func (s *EventStore) List(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.WithContext(ctx).Order("date asc").Order("id asc").Find(&events).Error; err != nil {
		return nil, unavailable("list events", err)
	}
	return events, nil
}

func (s *EventStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Event{}).Count(&n).Error; err != nil {
		return 0, unavailable("count events", err)
	}
	return n, nil
}
