package store

import (
	"context"
	"time"

	"github.com/gdg-garage/checkin-api/internal/models"
	"gorm.io/gorm"
)

type AttendanceLedger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAttendanceLedger(db *gorm.DB) *AttendanceLedger {
	return &AttendanceLedger{db: db, now: time.Now}
}

func (l *AttendanceLedger) HasAttended(ctx context.Context, registrationID string) (bool, error) {
	var n int64
	err := l.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Where("registration_id = ?", registrationID).
		Count(&n).Error
	if err != nil {
		return false, unavailable("check attendance", err)
	}
	return n > 0, nil
}

// MarkAttended inserts the attendance row. Concurrent callers for the same
// registration race on the unique index; exactly one wins and the rest get
// ErrAlreadyMarked.
func (l *AttendanceLedger) MarkAttended(ctx context.Context, registrationID string) (*models.Attendance, error) {
	a := &models.Attendance{
		RegistrationID: registrationID,
		AttendedAt:     l.now().UTC(),
	}
	if err := l.db.WithContext(ctx).Create(a).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrAlreadyMarked
		}
		return nil, unavailable("mark attendance", err)
	}
	return a, nil
}

// List returns every attendance row, earliest first.
func (l *AttendanceLedger) List(ctx context.Context) ([]models.Attendance, error) {
	var rows []models.Attendance
	if err := l.db.WithContext(ctx).Order("attended_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, unavailable("list attendance", err)
	}
	return rows, nil
}

// CheckIn is an attendance row joined with the registration it belongs to.
type CheckIn struct {
	Attendance   models.Attendance
	Registration models.Registration
}

// Recent returns the latest check-ins, newest first.
func (l *AttendanceLedger) Recent(ctx context.Context, limit int) ([]CheckIn, error) {
	var rows []models.Attendance
	err := l.db.WithContext(ctx).
		Order("attended_at desc").
		Order("id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("recent attendance", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, a := range rows {
		ids[i] = a.RegistrationID
	}
	var regs []models.Registration
	if err := l.db.WithContext(ctx).Preload("Event").Where("registration_id IN ?", ids).Find(&regs).Error; err != nil {
		return nil, unavailable("recent attendance registrations", err)
	}
	byID := make(map[string]models.Registration, len(regs))
	for _, r := range regs {
		byID[r.RegistrationID] = r
	}

	out := make([]CheckIn, len(rows))
	for i, a := range rows {
		out[i] = CheckIn{Attendance: a, Registration: byID[a.RegistrationID]}
	}
	return out, nil
}

func (l *AttendanceLedger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.WithContext(ctx).Model(&models.Attendance{}).Count(&n).Error; err != nil {
		return 0, unavailable("count attendance", err)
	}
	return n, nil
}
