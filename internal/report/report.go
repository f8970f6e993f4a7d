package report

import (
	"math"
	"time"

	"github.com/gdg-garage/checkin-api/internal/models"
)

type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// AllEvents selects every event in Records.
const AllEvents = "all"

type Stats struct {
	TotalRegistrations int64 `json:"total_registrations"`
	TotalAttendance    int64 `json:"total_attendance"`
	TotalEvents        int64 `json:"total_events"`
	AttendanceRate     int   `json:"attendance_rate"`
}

// AttendanceRecord is one registration joined with its attendance, if any.
type AttendanceRecord struct {
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	RegistrationID string     `json:"registration_id"`
	Status         Status     `json:"status"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	EventName      string     `json:"event_name,omitempty"`
}

// ComputeStats derives the dashboard figures. The rate is a whole
// percentage, zero when nobody registered.
func ComputeStats(registrations, attendance, events int64) Stats {
	s := Stats{
		TotalRegistrations: registrations,
		TotalAttendance:    attendance,
		TotalEvents:        events,
	}
	if registrations > 0 {
		rate := int(math.Round(100 * float64(attendance) / float64(registrations)))
		s.AttendanceRate = min(max(rate, 0), 100)
	}
	return s
}

// BuildRecords joins registrations with attendance by registration id,
// keeping the order of regs.
func BuildRecords(regs []models.Registration, attendance []models.Attendance) []AttendanceRecord {
	attended := make(map[string]time.Time, len(attendance))
	for _, a := range attendance {
		attended[a.RegistrationID] = a.AttendedAt
	}

	records := make([]AttendanceRecord, 0, len(regs))
	for _, r := range regs {
		rec := AttendanceRecord{
			Name:           r.Name,
			Email:          r.Email,
			RegistrationID: r.RegistrationID,
			Status:         StatusAbsent,
			EventName:      r.Event.Name,
		}
		if at, ok := attended[r.RegistrationID]; ok {
			rec.Status = StatusPresent
			rec.Timestamp = &at
		}
		records = append(records, rec)
	}
	return records
}
