package registration

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/gdg-garage/checkin-api/internal/credential"
	"github.com/gdg-garage/checkin-api/internal/metrics"
	"github.com/gdg-garage/checkin-api/internal/models"
	"github.com/gdg-garage/checkin-api/internal/notifier"
	"github.com/gdg-garage/checkin-api/internal/store"
)

var (
	// ErrAlreadyRegistered is an expected outcome: the participant already
	// holds a registration for the event.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrEventNotFound     = errors.New("event not found")

	// ErrGenerationCollision is wrapped in a ValidationError when a freshly
	// generated registration id collides twice in a row.
	ErrGenerationCollision = errors.New("registration id collision")
)

type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

type EventGetter interface {
	Get(ctx context.Context, id string) (*models.Event, error)
}

type Store interface {
	FindByEmail(ctx context.Context, eventID, email string) (*models.Registration, error)
	Create(ctx context.Context, r *models.Registration) error
	Lookup(ctx context.Context, registrationID, eventID string) (*models.Registration, error)
}

type IDGenerator interface {
	Generate() string
}

type Service struct {
	events   EventGetter
	store    Store
	ids      IDGenerator
	notifier notifier.Notifier
	metrics  *metrics.Metrics
}

// NewService wires the registration flow. notifier and m may be nil.
func NewService(events EventGetter, st Store, ids IDGenerator, n notifier.Notifier, m *metrics.Metrics) *Service {
	return &Service{events: events, store: st, ids: ids, notifier: n, metrics: m}
}

// Register creates the registration for (eventID, email). The read of an
// existing registration only short-circuits the common case; the store's
// unique index is what rejects concurrent duplicates.
func (s *Service) Register(ctx context.Context, eventID, name, email string) (*models.Registration, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate(eventID, name, email); err != nil {
		s.metrics.ObserveRegistration("invalid")
		return nil, err
	}

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if _, err := s.store.FindByEmail(ctx, eventID, email); err == nil {
		s.metrics.ObserveRegistration("already_registered")
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var reg *models.Registration
	for attempt := 0; attempt < 2; attempt++ {
		reg, err = s.build(event.ID, name, email)
		if err != nil {
			return nil, err
		}
		err = s.store.Create(ctx, reg)
		if !errors.Is(err, store.ErrDuplicateRegistrationID) {
			break
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, store.ErrDuplicateEmail):
		s.metrics.ObserveRegistration("already_registered")
		return nil, ErrAlreadyRegistered
	case errors.Is(err, store.ErrDuplicateRegistrationID):
		s.metrics.ObserveRegistration("collision")
		return nil, &ValidationError{
			Field:   "registration_id",
			Message: "could not allocate a unique registration id",
			Err:     ErrGenerationCollision,
		}
	default:
		return nil, err
	}

	reg.Event = *event
	s.metrics.ObserveRegistration("created")
	if s.notifier != nil {
		s.notifier.Notify(ctx, notifier.Change{Kind: notifier.KindRegistered, Registration: *reg})
	}
	return reg, nil
}

// Lookup finds the registration a credential refers to.
func (s *Service) Lookup(ctx context.Context, registrationID, eventID string) (*models.Registration, error) {
	return s.store.Lookup(ctx, registrationID, eventID)
}

func (s *Service) build(eventID, name, email string) (*models.Registration, error) {
	regID := s.ids.Generate()
	payload, err := credential.Encode(regID, eventID, email)
	if err != nil {
		return nil, err
	}
	return &models.Registration{
		EventID:        eventID,
		Name:           name,
		Email:          email,
		RegistrationID: regID,
		QRPayload:      payload,
	}, nil
}

func validate(eventID, name, email string) error {
	if strings.TrimSpace(eventID) == "" {
		return &ValidationError{Field: "event_id", Message: "is required"}
	}
	if name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if email == "" {
		return &ValidationError{Field: "email", Message: "is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return &ValidationError{Field: "email", Message: fmt.Sprintf("%q is not a valid email address", email)}
	}
	return nil
}
