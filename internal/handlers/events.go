package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/checkin-api/internal/auth"
	"github.com/gdg-garage/checkin-api/internal/models"
	"github.com/gdg-garage/checkin-api/internal/notifier"
	"github.com/gdg-garage/checkin-api/internal/store"
)

type EventHandler struct {
	events      *store.EventStore
	notifier    notifier.Notifier
	authHandler *auth.AuthHandler
}

// NewEventHandler serves events; n, when non-nil, hears about new ones.
func NewEventHandler(events *store.EventStore, n notifier.Notifier, authHandler *auth.AuthHandler) *EventHandler {
	return &EventHandler{events: events, notifier: n, authHandler: authHandler}
}

type ListEventsOutput struct {
	Body []models.Event
}

func (h *EventHandler) HandleList(ctx context.Context, _ *struct{}) (*ListEventsOutput, error) {
	events, err := h.events.List(ctx)
	if err != nil {
		return nil, storageError("list events", err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return &ListEventsOutput{Body: events}, nil
}

type GetEventInput struct {
	ID string `path:"id"`
}

type EventOutput struct {
	Body models.Event
}

func (h *EventHandler) HandleGet(ctx context.Context, input *GetEventInput) (*EventOutput, error) {
	event, err := h.events.Get(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("Event not found")
		}
		return nil, storageError("get event", err)
	}
	return &EventOutput{Body: *event}, nil
}

type CreateEventInput struct {
	auth.AuthInput
	Body struct {
		Name        string    `json:"name" doc:"Name of the event" required:"true" minLength:"1"`
		Description string    `json:"description,omitempty" doc:"What the event is about"`
		Date        time.Time `json:"date" doc:"When the event starts" required:"true"`
		Location    string    `json:"location,omitempty" doc:"Where the event takes place"`
	}
}

func (h *EventHandler) HandleCreate(ctx context.Context, input *CreateEventInput) (*EventOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	event := models.Event{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		Date:        input.Body.Date,
		Location:    input.Body.Location,
	}
	if err := h.events.Create(ctx, &event); err != nil {
		return nil, storageError("create event", err)
	}
	if h.notifier != nil {
		h.notifier.Notify(ctx, notifier.Change{Kind: notifier.KindEventCreated, Event: event})
	}
	return &EventOutput{Body: event}, nil
}
