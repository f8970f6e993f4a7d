package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/checkin-api/internal/auth"
	"github.com/gdg-garage/checkin-api/internal/models"
	"gorm.io/gorm"
)

// ScannerKeyHandler manages the API keys used by scanning stations.
type ScannerKeyHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewScannerKeyHandler(db *gorm.DB, authHandler *auth.AuthHandler) *ScannerKeyHandler {
	return &ScannerKeyHandler{db: db, authHandler: authHandler}
}

type CreateScannerKeyInput struct {
	auth.AuthInput
	Body struct {
		Name      string     `json:"name" doc:"Label of the scanning station"`
		ExpiresAt *time.Time `json:"expires_at,omitempty" doc:"When the key stops working"`
	}
}

type ScannerKeyResponse struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

type CreateScannerKeyOutput struct {
	Body ScannerKeyResponse
}

func (h *ScannerKeyHandler) HandleCreate(ctx context.Context, input *CreateScannerKeyInput) (*CreateScannerKeyOutput, error) {
	adminID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}

	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate key")
	}

	key := models.ScannerKey{
		AdminID:   adminID,
		Key:       hex.EncodeToString(keyBytes),
		Name:      input.Body.Name,
		ExpiresAt: input.Body.ExpiresAt,
	}
	if err := h.db.WithContext(ctx).Create(&key).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create scanner key")
	}

	return &CreateScannerKeyOutput{Body: toScannerKeyResponse(key, false)}, nil
}

type ListScannerKeysInput struct {
	auth.AuthInput
}

type ListScannerKeysOutput struct {
	Body []ScannerKeyResponse
}

// HandleList shows every station key; the secret is masked after creation.
func (h *ScannerKeyHandler) HandleList(ctx context.Context, input *ListScannerKeysInput) (*ListScannerKeysOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	var keys []models.ScannerKey
	if err := h.db.WithContext(ctx).Order("id asc").Find(&keys).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list scanner keys")
	}

	response := make([]ScannerKeyResponse, 0, len(keys))
	for _, k := range keys {
		response = append(response, toScannerKeyResponse(k, true))
	}
	return &ListScannerKeysOutput{Body: response}, nil
}

type DeleteScannerKeyInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *ScannerKeyHandler) HandleDelete(ctx context.Context, input *DeleteScannerKeyInput) (*struct{}, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	res := h.db.WithContext(ctx).Where("id = ?", input.ID).Delete(&models.ScannerKey{})
	if res.Error != nil {
		return nil, huma.Error500InternalServerError("Failed to delete scanner key")
	}
	if res.RowsAffected == 0 {
		return nil, huma.Error404NotFound("Scanner key not found")
	}
	return nil, nil
}

func toScannerKeyResponse(k models.ScannerKey, mask bool) ScannerKeyResponse {
	key := k.Key
	if mask && len(key) > 4 {
		key = "..." + key[len(key)-4:]
	}
	return ScannerKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		Key:        key,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
		LastUsedAt: k.LastUsedAt,
	}
}
