package handlers

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/checkin-api/internal/auth"
	"github.com/gdg-garage/checkin-api/internal/report"
	"github.com/gdg-garage/checkin-api/internal/store"
)

type ReportHandler struct {
	agg         *report.Aggregator
	events      *store.EventStore
	authHandler *auth.AuthHandler
}

func NewReportHandler(agg *report.Aggregator, events *store.EventStore, authHandler *auth.AuthHandler) *ReportHandler {
	return &ReportHandler{agg: agg, events: events, authHandler: authHandler}
}

type StatsInput struct {
	auth.AuthInput
}

type StatsOutput struct {
	Body report.Stats
}

func (h *ReportHandler) HandleStats(ctx context.Context, input *StatsInput) (*StatsOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}
	s, err := h.agg.Stats(ctx)
	if err != nil {
		return nil, storageError("compute stats", err)
	}
	return &StatsOutput{Body: s}, nil
}

type RecordsInput struct {
	auth.AuthInput
	Event string `query:"event" doc:"Event id, or 'all'" default:"all"`
}

type RecordsOutput struct {
	Body []report.AttendanceRecord
}

func (h *ReportHandler) HandleRecords(ctx context.Context, input *RecordsInput) (*RecordsOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}
	records, err := h.agg.Records(ctx, input.Event)
	if err != nil {
		return nil, storageError("list records", err)
	}
	return &RecordsOutput{Body: records}, nil
}

type RecentInput struct {
	auth.AuthInput
	Limit int `query:"limit" minimum:"1" maximum:"100" default:"5"`
}

type RecentCheckIn struct {
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	RegistrationID string    `json:"registration_id"`
	EventName      string    `json:"event_name"`
	AttendedAt     time.Time `json:"attended_at"`
}

type RecentOutput struct {
	Body []RecentCheckIn
}

func (h *ReportHandler) HandleRecent(ctx context.Context, input *RecentInput) (*RecentOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}
	rows, err := h.agg.Recent(ctx, limit)
	if err != nil {
		return nil, storageError("list recent attendance", err)
	}
	out := &RecentOutput{Body: make([]RecentCheckIn, 0, len(rows))}
	for _, row := range rows {
		out.Body = append(out.Body, RecentCheckIn{
			Name:           row.Registration.Name,
			Email:          row.Registration.Email,
			RegistrationID: row.Attendance.RegistrationID,
			EventName:      row.Registration.Event.Name,
			AttendedAt:     row.Attendance.AttendedAt,
		})
	}
	return out, nil
}

type ExportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func (h *ReportHandler) HandleExport(ctx context.Context, input *RecordsInput) (*ExportOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	eventName := ""
	if input.Event != "" && input.Event != report.AllEvents {
		event, err := h.events.Get(ctx, input.Event)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, huma.Error404NotFound("Event not found")
			}
			return nil, storageError("get event", err)
		}
		eventName = event.Name
	}

	records, err := h.agg.Records(ctx, input.Event)
	if err != nil {
		return nil, storageError("list records", err)
	}

	name := report.ExportName(eventName)
	var buf bytes.Buffer
	if err := report.Export(ctx, report.CSVSink{W: &buf}, records, name); err != nil {
		return nil, huma.Error500InternalServerError("Failed to export report")
	}

	return &ExportOutput{
		ContentType:        "text/csv; charset=utf-8",
		ContentDisposition: mime.FormatMediaType("attachment", map[string]string{"filename": name + ".csv"}),
		Body:               buf.Bytes(),
	}, nil
}
