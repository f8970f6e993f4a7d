package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdg-garage/checkin-api/internal/credential"
	"github.com/gdg-garage/checkin-api/internal/metrics"
	"github.com/gdg-garage/checkin-api/internal/models"
	"github.com/gdg-garage/checkin-api/internal/notifier"
	"github.com/gdg-garage/checkin-api/internal/store"
)

// State is a step of a single scan.
type State string

const (
	StateIdle       State = "idle"
	StateDecoding   State = "decoding"
	StateValidating State = "validating"
	StateCommitting State = "committing"
	StateSuccess    State = "success"
	StateRejected   State = "rejected"
)

// Reason explains a rejected scan.
type Reason string

const (
	ReasonInvalidCredential   Reason = "invalid_credential"
	ReasonUnknownRegistration Reason = "unknown_registration"
	ReasonAlreadyAttended     Reason = "already_attended"
)

// Result is the terminal outcome of a scan. Registration is set on success
// and on ReasonAlreadyAttended; AttendedAt only on success.
type Result struct {
	State        State
	Reason       Reason
	Message      string
	Registration *models.Registration
	AttendedAt   time.Time
}

func (r Result) Success() bool { return r.State == StateSuccess }

type Registrations interface {
	Lookup(ctx context.Context, registrationID, eventID string) (*models.Registration, error)
}

type Ledger interface {
	HasAttended(ctx context.Context, registrationID string) (bool, error)
	MarkAttended(ctx context.Context, registrationID string) (*models.Attendance, error)
}

type Service struct {
	registrations Registrations
	ledger        Ledger
	notifier      notifier.Notifier
	metrics       *metrics.Metrics
}

// NewService wires the scan flow. notifier and m may be nil.
func NewService(registrations Registrations, ledger Ledger, n notifier.Notifier, m *metrics.Metrics) *Service {
	return &Service{registrations: registrations, ledger: ledger, notifier: n, metrics: m}
}

// Scan validates one decoded payload and records attendance at most once.
// A returned error is a storage or cancellation failure, not a rejection;
// the operator may simply scan again.
func (s *Service) Scan(ctx context.Context, payload string) (Result, error) {
	// Decoding
	cred, err := credential.Decode(payload)
	if err != nil {
		return s.reject(ReasonInvalidCredential, "Invalid QR code or registration not found", nil), nil
	}

	// Validating
	reg, err := s.registrations.Lookup(ctx, cred.RegistrationID, cred.EventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.reject(ReasonUnknownRegistration, "Invalid QR code or registration not found", nil), nil
		}
		return s.fail(err)
	}

	attended, err := s.ledger.HasAttended(ctx, reg.RegistrationID)
	if err != nil {
		return s.fail(err)
	}
	if attended {
		return s.reject(ReasonAlreadyAttended, "Attendance already marked for this registration", reg), nil
	}

	// An abandoned scan leaves nothing behind.
	if err := ctx.Err(); err != nil {
		return s.fail(err)
	}

	// Committing
	att, err := s.ledger.MarkAttended(ctx, reg.RegistrationID)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyMarked) {
			return s.reject(ReasonAlreadyAttended, "Attendance already marked for this registration", reg), nil
		}
		return s.fail(err)
	}

	s.metrics.ObserveScan(string(StateSuccess))
	if s.notifier != nil {
		s.notifier.Notify(ctx, notifier.Change{
			Kind:         notifier.KindAttended,
			Registration: *reg,
			AttendedAt:   att.AttendedAt,
		})
	}

	return Result{
		State:        StateSuccess,
		Message:      fmt.Sprintf("Welcome %s! Attendance marked successfully.", reg.Name),
		Registration: reg,
		AttendedAt:   att.AttendedAt,
	}, nil
}

// Consume scans payloads from frames until the channel is closed or ctx is
// done, handing every outcome to handle.
func (s *Service) Consume(ctx context.Context, frames <-chan string, handle func(Result, error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-frames:
			if !ok {
				return nil
			}
			handle(s.Scan(ctx, payload))
		}
	}
}

func (s *Service) reject(reason Reason, message string, reg *models.Registration) Result {
	s.metrics.ObserveScan(string(reason))
	return Result{State: StateRejected, Reason: reason, Message: message, Registration: reg}
}

func (s *Service) fail(err error) (Result, error) {
	s.metrics.ObserveScan("error")
	return Result{State: StateIdle}, fmt.Errorf("check-in: %w", err)
}
