package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/checkin-api/internal/store"
)

// storageError turns a store failure into a retryable 503 and anything
// unexpected into a 500.
func storageError(op string, err error) error {
	if errors.Is(err, store.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		log.Printf("%s: %v", op, err)
		return huma.Error503ServiceUnavailable("Storage temporarily unavailable, please retry")
	}
	log.Printf("%s: unexpected error: %v", op, err)
	return huma.Error500InternalServerError("Failed to " + op)
}
