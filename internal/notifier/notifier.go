package notifier

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gdg-garage/checkin-api/internal/models"
)

type Kind string

const (
	KindEventCreated Kind = "event.created"
	KindRegistered   Kind = "registration.created"
	KindAttended     Kind = "attendance.marked"
)

// Change describes a committed write to the event, registration or
// attendance tables. Event is set only for KindEventCreated, AttendedAt only
// for KindAttended.
type Change struct {
	Kind         Kind
	Event        models.Event
	Registration models.Registration
	AttendedAt   time.Time
}

type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// Hub fans a change out to every subscriber. Subscriber failures are logged
// and never reach the writer that published the change.
type Hub struct {
	mu   sync.RWMutex
	subs []Notifier
}

func NewHub(subs ...Notifier) *Hub {
	h := &Hub{}
	for _, s := range subs {
		h.Subscribe(s)
	}
	return h
}

func (h *Hub) Subscribe(n Notifier) {
	if n == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, n)
}

func (h *Hub) Notify(ctx context.Context, change Change) error {
	h.mu.RLock()
	subs := make([]Notifier, len(h.subs))
	copy(subs, h.subs)
	h.mu.RUnlock()

	for _, s := range subs {
		if err := s.Notify(ctx, change); err != nil {
			log.Printf("notifier: %s delivery failed: %v", change.Kind, err)
		}
	}
	return nil
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, change Change) error

func (f Func) Notify(ctx context.Context, change Change) error {
	return f(ctx, change)
}
