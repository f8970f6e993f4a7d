package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gdg-garage/checkin-api/internal/auth"
	"github.com/gdg-garage/checkin-api/internal/checkin"
)

type CheckInHandler struct {
	svc         *checkin.Service
	authHandler *auth.AuthHandler
}

func NewCheckInHandler(svc *checkin.Service, authHandler *auth.AuthHandler) *CheckInHandler {
	return &CheckInHandler{svc: svc, authHandler: authHandler}
}

type CheckInRequest struct {
	auth.AuthInput
	Body struct {
		Payload string `json:"payload" doc:"Decoded content of the scanned QR code"`
	}
}

type ScannedRegistration struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	EventName      string `json:"event_name"`
}

type CheckInResponse struct {
	Body struct {
		Success      bool                 `json:"success"`
		State        checkin.State        `json:"state"`
		Reason       checkin.Reason       `json:"reason,omitempty"`
		Message      string               `json:"message"`
		Registration *ScannedRegistration `json:"registration,omitempty"`
		AttendedAt   *time.Time           `json:"attended_at,omitempty"`
	}
}

// HandleCheckIn answers 200 for accepted and rejected scans alike; only
// storage trouble is an HTTP error.
func (h *CheckInHandler) HandleCheckIn(ctx context.Context, input *CheckInRequest) (*CheckInResponse, error) {
	principal, err := h.authHandler.AuthorizeScanner(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.Scan(ctx, input.Body.Payload)
	if err != nil {
		return nil, storageError("check in", err)
	}
	if result.Success() {
		log.Printf("check-in %s by admin=%d scanner=%d", result.Registration.RegistrationID, principal.AdminID, principal.ScannerKeyID)
	}

	res := &CheckInResponse{}
	res.Body.Success = result.Success()
	res.Body.State = result.State
	res.Body.Reason = result.Reason
	res.Body.Message = result.Message
	if r := result.Registration; r != nil {
		res.Body.Registration = &ScannedRegistration{
			Name:           r.Name,
			Email:          r.Email,
			RegistrationID: r.RegistrationID,
			EventID:        r.EventID,
			EventName:      r.Event.Name,
		}
	}
	if !result.AttendedAt.IsZero() {
		at := result.AttendedAt
		res.Body.AttendedAt = &at
	}
	return res, nil
}
