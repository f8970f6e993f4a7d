package report

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gdg-garage/checkin-api/internal/models"
	"github.com/gdg-garage/checkin-api/internal/notifier"
	"github.com/gdg-garage/checkin-api/internal/store"
)

type Registrations interface {
	List(ctx context.Context, eventID string) ([]models.Registration, error)
	Count(ctx context.Context) (int64, error)
}

type Attendance interface {
	List(ctx context.Context) ([]models.Attendance, error)
	Recent(ctx context.Context, limit int) ([]store.CheckIn, error)
	Count(ctx context.Context) (int64, error)
}

type Events interface {
	Count(ctx context.Context) (int64, error)
}

// Aggregator reads registrations and attendance and derives reports from
// them. Stats are cached until a change notification invalidates them.
type Aggregator struct {
	registrations Registrations
	attendance    Attendance
	events        Events
	cache         Cache
	ttl           time.Duration

	// mu orders cache writes against invalidations; generation counts
	// Notify calls so a value computed across one is never cached.
	mu         sync.Mutex
	generation uint64
}

func NewAggregator(regs Registrations, att Attendance, events Events, cache Cache, ttl time.Duration) *Aggregator {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Aggregator{registrations: regs, attendance: att, events: events, cache: cache, ttl: ttl}
}

const statsKey = "stats"

func (a *Aggregator) Stats(ctx context.Context) (Stats, error) {
	if s, ok, err := a.cache.Get(ctx, statsKey); err != nil {
		log.Printf("report: stats cache read failed: %v", err)
	} else if ok {
		return s, nil
	}

	a.mu.Lock()
	gen := a.generation
	a.mu.Unlock()

	regs, err := a.registrations.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	att, err := a.attendance.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	events, err := a.events.Count(ctx)
	if err != nil {
		return Stats{}, err
	}

	s := ComputeStats(regs, att, events)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != gen {
		return s, nil
	}
	if err := a.cache.Set(ctx, statsKey, s, a.ttl); err != nil {
		log.Printf("report: stats cache write failed: %v", err)
	}
	return s, nil
}

// Records returns the attendance view for one event, or for all events when
// eventFilter is empty or AllEvents.
func (a *Aggregator) Records(ctx context.Context, eventFilter string) ([]AttendanceRecord, error) {
	if eventFilter == AllEvents {
		eventFilter = ""
	}
	regs, err := a.registrations.List(ctx, eventFilter)
	if err != nil {
		return nil, err
	}
	att, err := a.attendance.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildRecords(regs, att), nil
}

func (a *Aggregator) Recent(ctx context.Context, limit int) ([]store.CheckIn, error) {
	return a.attendance.Recent(ctx, limit)
}

// Notify drops cached aggregates on any event, registration or attendance
// change.
func (a *Aggregator) Notify(ctx context.Context, change notifier.Change) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	return a.cache.Invalidate(ctx, statsKey)
}
