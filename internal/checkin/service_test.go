package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gdg-garage/checkin-api/internal/credential"
	"github.com/gdg-garage/checkin-api/internal/database"
	"github.com/gdg-garage/checkin-api/internal/models"
	"github.com/gdg-garage/checkin-api/internal/notifier"
	"github.com/gdg-garage/checkin-api/internal/registration"
	"github.com/gdg-garage/checkin-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	checkin *Service
	reg     *models.Registration
	changes []notifier.Change
	ledger  *store.AttendanceLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ctx := context.Background()
	events := store.NewEventStore(db)
	require.NoError(t, events.Create(ctx, &models.Event{ID: "E1", Name: "Event One", Date: time.Now()}))

	regs := store.NewRegistrationStore(db)
	regSvc := registration.NewService(events, regs, credential.NewGenerator("REG"), nil, nil)
	reg, err := regSvc.Register(ctx, "E1", "Ann", "ann@x.com")
	require.NoError(t, err)

	f := &fixture{reg: reg, ledger: store.NewAttendanceLedger(db)}
	var mu sync.Mutex
	rec := notifier.Func(func(_ context.Context, c notifier.Change) error {
		mu.Lock()
		defer mu.Unlock()
		f.changes = append(f.changes, c)
		return nil
	})
	f.checkin = NewService(regs, f.ledger, rec, nil)
	return f
}

func TestScan_FirstSucceedsSecondRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.checkin.Scan(ctx, f.reg.QRPayload)
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.False(t, res.AttendedAt.IsZero())
	assert.Contains(t, res.Message, "Ann")
	require.NotNil(t, res.Registration)
	assert.Equal(t, "Event One", res.Registration.Event.Name)

	res, err = f.checkin.Scan(ctx, f.reg.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, res.State)
	assert.Equal(t, ReasonAlreadyAttended, res.Reason)
	require.NotNil(t, res.Registration, "already attended carries the registration for display")
	assert.Equal(t, f.reg.RegistrationID, res.Registration.RegistrationID)

	require.Len(t, f.changes, 1)
	assert.Equal(t, notifier.KindAttended, f.changes[0].Kind)
}

func TestScan_UnknownRegistration(t *testing.T) {
	f := newFixture(t)

	payload, err := credential.Encode(f.reg.RegistrationID, "E-OTHER", "ann@x.com")
	require.NoError(t, err)
	res, err := f.checkin.Scan(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, ReasonUnknownRegistration, res.Reason)
	assert.Nil(t, res.Registration)

	payload, err = credential.Encode("REG000000NOTHERE", "E1", "ann@x.com")
	require.NoError(t, err)
	res, err = f.checkin.Scan(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, ReasonUnknownRegistration, res.Reason)
}

func TestScan_InvalidCredential(t *testing.T) {
	f := newFixture(t)
	for _, payload := range []string{"", "hello", `{"registrationId":"x"}`} {
		res, err := f.checkin.Scan(context.Background(), payload)
		require.NoError(t, err)
		assert.Equal(t, StateRejected, res.State)
		assert.Equal(t, ReasonInvalidCredential, res.Reason)
	}
}

func TestScan_ConcurrentScanners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const scanners = 2
	results := make([]Result, scanners)
	errs := make([]error, scanners)
	var wg sync.WaitGroup
	start := make(chan struct{})

	wg.Add(scanners)
	for i := 0; i < scanners; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.checkin.Scan(ctx, f.reg.QRPayload)
		}(i)
	}
	close(start)
	wg.Wait()

	var success, rejected int
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Success() {
			success++
		} else if results[i].Reason == ReasonAlreadyAttended {
			rejected++
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, rejected)

	n, err := f.ledger.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

type fakeRegistrations struct {
	reg *models.Registration
	err error
}

func (f fakeRegistrations) Lookup(context.Context, string, string) (*models.Registration, error) {
	return f.reg, f.err
}

type fakeLedger struct {
	hasAttended func(ctx context.Context) (bool, error)
	markErr     error
	marked      int
}

func (f *fakeLedger) HasAttended(ctx context.Context, _ string) (bool, error) {
	if f.hasAttended != nil {
		return f.hasAttended(ctx)
	}
	return false, nil
}

func (f *fakeLedger) MarkAttended(_ context.Context, id string) (*models.Attendance, error) {
	f.marked++
	if f.markErr != nil {
		return nil, f.markErr
	}
	return &models.Attendance{RegistrationID: id, AttendedAt: time.Now()}, nil
}

func validPayload(t *testing.T) string {
	t.Helper()
	p, err := credential.Encode("REG1", "E1", "ann@x.com")
	require.NoError(t, err)
	return p
}

func TestScan_LostRaceIsAlreadyAttended(t *testing.T) {
	reg := &models.Registration{RegistrationID: "REG1", EventID: "E1", Name: "Ann"}
	ledger := &fakeLedger{markErr: store.ErrAlreadyMarked}
	svc := NewService(fakeRegistrations{reg: reg}, ledger, nil, nil)

	res, err := svc.Scan(context.Background(), validPayload(t))
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyAttended, res.Reason)
	assert.Equal(t, reg, res.Registration)
}

func TestScan_StorageFailureIsNotARejection(t *testing.T) {
	unavailable := errors.Join(store.ErrUnavailable, context.DeadlineExceeded)

	t.Run("lookup", func(t *testing.T) {
		svc := NewService(fakeRegistrations{err: unavailable}, &fakeLedger{}, nil, nil)
		res, err := svc.Scan(context.Background(), validPayload(t))
		assert.ErrorIs(t, err, store.ErrUnavailable)
		assert.NotEqual(t, StateRejected, res.State)
	})

	t.Run("commit", func(t *testing.T) {
		reg := &models.Registration{RegistrationID: "REG1", EventID: "E1"}
		svc := NewService(fakeRegistrations{reg: reg}, &fakeLedger{markErr: unavailable}, nil, nil)
		res, err := svc.Scan(context.Background(), validPayload(t))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotEqual(t, StateRejected, res.State)
	})
}

func TestScan_AbandonedBeforeCommit(t *testing.T) {
	reg := &models.Registration{RegistrationID: "REG1", EventID: "E1"}
	ctx, cancel := context.WithCancel(context.Background())
	ledger := &fakeLedger{hasAttended: func(context.Context) (bool, error) {
		cancel()
		return false, nil
	}}
	svc := NewService(fakeRegistrations{reg: reg}, ledger, nil, nil)

	_, err := svc.Scan(ctx, validPayload(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ledger.marked, "no attendance write after abandonment")
}

func TestConsume(t *testing.T) {
	f := newFixture(t)
	frames := make(chan string, 3)
	frames <- "garbage"
	frames <- f.reg.QRPayload
	frames <- f.reg.QRPayload
	close(frames)

	var got []Result
	err := f.checkin.Consume(context.Background(), frames, func(r Result, err error) {
		require.NoError(t, err)
		got = append(got, r)
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ReasonInvalidCredential, got[0].Reason)
	assert.True(t, got[1].Success())
	assert.Equal(t, ReasonAlreadyAttended, got[2].Reason)
}

func TestConsume_StopsOnCancel(t *testing.T) {
	svc := NewService(fakeRegistrations{}, &fakeLedger{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Consume(ctx, make(chan string), func(Result, error) {
		t.Fatal("no payloads expected")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
