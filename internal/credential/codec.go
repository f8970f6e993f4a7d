package credential

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned by Decode for anything that is not a complete
// credential payload.
var ErrMalformed = errors.New("malformed credential")

// Credential is the record carried by a scannable code.
type Credential struct {
	RegistrationID string `json:"registrationId"`
	EventID        string `json:"eventId"`
	Email          string `json:"email"`
}

func Encode(registrationID, eventID, email string) (string, error) {
	b, err := json.Marshal(Credential{
		RegistrationID: registrationID,
		EventID:        eventID,
		Email:          email,
	})
	if err != nil {
		return "", fmt.Errorf("encode credential: %w", err)
	}
	return string(b), nil
}

func Decode(payload string) (Credential, error) {
	var c Credential
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case c.RegistrationID == "":
		return Credential{}, fmt.Errorf("%w: missing registrationId", ErrMalformed)
	case c.EventID == "":
		return Credential{}, fmt.Errorf("%w: missing eventId", ErrMalformed)
	case c.Email == "":
		return Credential{}, fmt.Errorf("%w: missing email", ErrMalformed)
	}
	return c, nil
}
