package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/checkin-api/internal/registration"
)

type RegistrationHandler struct {
	svc *registration.Service
}

func NewRegistrationHandler(svc *registration.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

type RegistrationRequest struct {
	EventID string `path:"id"`
	Body    struct {
		Name  string `json:"name" doc:"Full name of the participant"`
		Email string `json:"email" doc:"Email of the participant, one registration per event"`
	}
}

type RegistrationResponse struct {
	Body struct {
		Message        string `json:"message"`
		RegistrationID string `json:"registration_id"`
		EventID        string `json:"event_id"`
		EventName      string `json:"event_name"`
		Name           string `json:"name"`
		Email          string `json:"email"`
		QRPayload      string `json:"qr_payload" doc:"Credential to render as a QR code"`
	}
}

func (h *RegistrationHandler) HandleRegister(ctx context.Context, input *RegistrationRequest) (*RegistrationResponse, error) {
	reg, err := h.svc.Register(ctx, input.EventID, input.Body.Name, input.Body.Email)
	if err != nil {
		var verr *registration.ValidationError
		switch {
		case errors.As(err, &verr):
			return nil, huma.Error422UnprocessableEntity(verr.Error())
		case errors.Is(err, registration.ErrAlreadyRegistered):
			return nil, huma.Error409Conflict("You are already registered for this event!")
		case errors.Is(err, registration.ErrEventNotFound):
			return nil, huma.Error404NotFound("Event not found")
		}
		return nil, storageError("process registration", err)
	}

	res := &RegistrationResponse{}
	res.Body.Message = "Registration processed successfully"
	res.Body.RegistrationID = reg.RegistrationID
	res.Body.EventID = reg.EventID
	res.Body.EventName = reg.Event.Name
	res.Body.Name = reg.Name
	res.Body.Email = reg.Email
	res.Body.QRPayload = reg.QRPayload
	return res, nil
}
