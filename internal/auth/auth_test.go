package auth

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gdg-garage/checkin-api/internal/config"
	"github.com/gdg-garage/checkin-api/internal/database"
	"github.com/gdg-garage/checkin-api/internal/models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestHandleMe(t *testing.T) {
	db := newTestDB(t)

	admin := models.Admin{
		DiscordID: "123456",
		Username:  "testuser",
		Email:     "test@example.com",
		Avatar:    "avatar_url",
	}
	db.Create(&admin)

	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, db)

	t.Run("Authenticated", func(t *testing.T) {
		token, _ := handler.GenerateToken(admin.ID)
		input := &AuthInput{
			Cookie: "theme=dark; auth_token=" + token,
		}
		resp, err := handler.HandleMe(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}

		if resp.Body.Username != admin.Username {
			t.Errorf("expected username %s, got %s", admin.Username, resp.Body.Username)
		}
		if resp.Body.Email != admin.Email {
			t.Errorf("expected email %s, got %s", admin.Email, resp.Body.Email)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		input := &AuthInput{}
		_, err := handler.HandleMe(context.Background(), input)
		if err == nil {
			t.Fatal("expected error for unauthenticated request, got nil")
		}
	})

	t.Run("Garbage token", func(t *testing.T) {
		input := &AuthInput{Cookie: "auth_token=not-a-jwt"}
		if _, err := handler.HandleMe(context.Background(), input); err == nil {
			t.Fatal("expected error for invalid token, got nil")
		}
	})
}

func TestAuthorizeScanner(t *testing.T) {
	db := newTestDB(t)
	admin := models.Admin{DiscordID: "org"}
	db.Create(&admin)

	past := time.Now().Add(-time.Hour)
	valid := models.ScannerKey{AdminID: admin.ID, Key: "valid-key", Name: "door"}
	expired := models.ScannerKey{AdminID: admin.ID, Key: "old-key", Name: "old", ExpiresAt: &past}
	db.Create(&valid)
	db.Create(&expired)

	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)
	ctx := context.Background()

	t.Run("API key", func(t *testing.T) {
		p, err := handler.AuthorizeScanner(ctx, AuthInput{APIKey: "valid-key"})
		if err != nil {
			t.Fatalf("AuthorizeScanner returned error: %v", err)
		}
		if p.ScannerKeyID != valid.ID || p.AdminID != admin.ID {
			t.Errorf("unexpected principal %+v", p)
		}

		var reloaded models.ScannerKey
		db.First(&reloaded, valid.ID)
		if reloaded.LastUsedAt == nil {
			t.Error("expected last_used_at to be recorded")
		}
	})

	t.Run("Expired key", func(t *testing.T) {
		if _, err := handler.AuthorizeScanner(ctx, AuthInput{APIKey: "old-key"}); err == nil {
			t.Fatal("expected expired key to be rejected")
		}
	})

	t.Run("Unknown key falls back to session", func(t *testing.T) {
		token, _ := handler.GenerateToken(admin.ID)
		p, err := handler.AuthorizeScanner(ctx, AuthInput{APIKey: "nope", Cookie: "auth_token=" + token})
		if err != nil {
			t.Fatalf("AuthorizeScanner returned error: %v", err)
		}
		if p.AdminID != admin.ID || p.ScannerKeyID != 0 {
			t.Errorf("unexpected principal %+v", p)
		}
	})

	t.Run("Nothing", func(t *testing.T) {
		if _, err := handler.AuthorizeScanner(ctx, AuthInput{}); err == nil {
			t.Fatal("expected error without credentials")
		}
	})
}

func TestAuthMiddleware_APIKey(t *testing.T) {
	db := newTestDB(t)
	admin := models.Admin{DiscordID: "org"}
	db.Create(&admin)
	db.Create(&models.ScannerKey{AdminID: admin.ID, Key: "metrics-key"})

	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req, _ := http.NewRequest("GET", "/metrics", nil)
	req.Header.Set("X-API-KEY", "metrics-key")
	rr := httptest.NewRecorder()
	handler.AuthMiddleware(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Errorf("expected request to pass through, got %v", rr.Code)
	}

	req, _ = http.NewRequest("GET", "/metrics", nil)
	req.Header.Set("X-API-KEY", "wrong")
	rr = httptest.NewRecorder()
	handler.AuthMiddleware(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown key without cookie, got %v", rr.Code)
	}
}

func TestHandleCallback_RequiresCode(t *testing.T) {
	handler := NewAuthHandler(&config.Config{}, nil)
	req := httptest.NewRequest("GET", "/auth/discord/callback?state=abc", nil)
	req.AddCookie(&http.Cookie{Name: StateCookieName, Value: "abc"})
	rr := httptest.NewRecorder()
	handler.HandleCallback(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Code not found") {
		t.Errorf("expected missing code error, got %q", rr.Body.String())
	}
}

func TestHandleCallback_RejectsBadState(t *testing.T) {
	handler := NewAuthHandler(&config.Config{}, nil)

	tests := []struct {
		name   string
		query  string
		cookie string
	}{
		{"NoCookie", "?state=abc&code=x", ""},
		{"Mismatch", "?state=abc&code=x", "def"},
		{"NoState", "?code=x", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/auth/discord/callback"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: StateCookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			handler.HandleCallback(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %v", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), "Invalid OAuth state") {
				t.Errorf("expected state error, got %q", rr.Body.String())
			}
		})
	}
}

func TestHandleLogin_Redirects(t *testing.T) {
	handler := NewAuthHandler(&config.Config{DiscordClientID: "client", DiscordRedirectURL: "http://localhost/cb"}, nil)

	login := func() (string, string) {
		req := httptest.NewRequest("GET", "/auth/discord/login", nil)
		rr := httptest.NewRecorder()
		handler.HandleLogin(rr, req)
		if rr.Code != http.StatusTemporaryRedirect {
			t.Fatalf("expected redirect, got %v", rr.Code)
		}
		loc, err := url.Parse(rr.Header().Get("Location"))
		if err != nil {
			t.Fatalf("bad redirect location: %v", err)
		}
		if got := loc.Scheme + "://" + loc.Host + loc.Path; got != DiscordAuthorizeEndpoint {
			t.Errorf("unexpected redirect target %q", got)
		}
		var cookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == StateCookieName {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatal("expected oauth_state cookie")
		}
		if !cookie.HttpOnly || cookie.MaxAge <= 0 {
			t.Errorf("state cookie should be short-lived and HttpOnly, got %+v", cookie)
		}
		return loc.Query().Get("state"), cookie.Value
	}

	state, cookieValue := login()
	if state == "" || state == "state" {
		t.Fatalf("expected a random state, got %q", state)
	}
	if state != cookieValue {
		t.Errorf("state %q does not match cookie %q", state, cookieValue)
	}
	if again, _ := login(); again == state {
		t.Errorf("expected a new state per login")
	}
}

func TestValidateAPIKey_LogsUsageWriteFailure(t *testing.T) {
	db := newTestDB(t)
	admin := models.Admin{DiscordID: "org"}
	db.Create(&admin)
	key := models.ScannerKey{AdminID: admin.ID, Key: "station-key", Name: "Door"}
	if err := db.Create(&key).Error; err != nil {
		t.Fatalf("failed to create key: %v", err)
	}
	db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		tx.AddError(errors.New("disk I/O error"))
	})

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	handler := NewAuthHandler(&config.Config{}, db)
	got, err := handler.ValidateAPIKey(context.Background(), "station-key")
	if err != nil {
		t.Fatalf("ValidateAPIKey returned error: %v", err)
	}
	if got.ID != key.ID {
		t.Errorf("expected key %d, got %d", key.ID, got.ID)
	}
	if !strings.Contains(buf.String(), "disk I/O error") {
		t.Errorf("expected the failed usage write to be logged, got %q", buf.String())
	}
}
