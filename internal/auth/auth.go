package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/checkin-api/internal/config"
	"github.com/gdg-garage/checkin-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"
	DiscordUserGuildsAPI     = "https://discord.com/api/users/@me/guilds"

	CookieName    = "auth_token"
	TokenDuration = 24 * time.Hour

	StateCookieName = "oauth_state"
	stateTTL        = 10 * time.Minute
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidAPIKey = errors.New("invalid api key")
	ErrExpiredAPIKey = errors.New("api key expired")
)

type AuthHandler struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	cfg         *config.Config
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "email", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		db:  db,
		cfg: cfg,
	}
}

// AuthInput carries the caller's credentials into huma operations. Admin
// operations read the session cookie; check-in also accepts a scanner key.
type AuthInput struct {
	Cookie string `header:"Cookie"`
	APIKey string `header:"X-API-KEY"`
}

// HandleLogin sends the browser to Discord with a fresh state, remembered in
// a short-lived cookie until the callback.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/auth/discord",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(StateCookieName)
	state := r.URL.Query().Get("state")
	if err != nil || stateCookie.Value == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: StateCookieName, Path: "/auth/discord", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(r.Context(), token)

	// Only members of the organising guild may administer events.
	if h.cfg.DiscordGuildID == "" {
		http.Error(w, "Access denied: no organiser guild configured.", http.StatusForbidden)
		return
	}
	guildsResp, err := client.Get(DiscordUserGuildsAPI)
	if err != nil {
		http.Error(w, "Failed to get user guilds", http.StatusInternalServerError)
		return
	}
	defer guildsResp.Body.Close()

	var guilds []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(guildsResp.Body).Decode(&guilds); err != nil {
		http.Error(w, "Failed to decode user guilds", http.StatusInternalServerError)
		return
	}

	isMember := false
	for _, g := range guilds {
		if g.ID == h.cfg.DiscordGuildID {
			isMember = true
			break
		}
	}
	if !isMember {
		http.Error(w, "Access denied: You are not a member of the required guild.", http.StatusForbidden)
		return
	}

	// Get User Info
	resp, err := client.Get(DiscordUserAPI)
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var discordUser struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&discordUser); err != nil {
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	var admin models.Admin
	if err := h.db.WithContext(r.Context()).FirstOrInit(&admin, models.Admin{DiscordID: discordUser.ID}).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	admin.Username = discordUser.Username
	admin.Email = discordUser.Email
	admin.Avatar = discordUser.Avatar

	if err := h.db.WithContext(r.Context()).Save(&admin).Error; err != nil {
		http.Error(w, "Failed to save admin", http.StatusInternalServerError)
		return
	}

	jwtToken, err := h.GenerateToken(admin.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, sessionCookie(jwtToken))
	w.Write([]byte(fmt.Sprintf("Welcome %s! You are logged in.", admin.Username)))
}

func (h *AuthHandler) GenerateToken(adminID uint) (string, error) {
	claims := jwt.MapClaims{
		"admin_id": adminID,
		"exp":      time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// ParseToken validates a session token and returns the admin id and expiry.
func (h *AuthHandler) ParseToken(tokenString string) (uint, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, time.Time{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, time.Time{}, ErrInvalidToken
	}
	adminID, ok := claims["admin_id"].(float64)
	if !ok || adminID <= 0 {
		return 0, time.Time{}, ErrInvalidToken
	}
	var exp time.Time
	if e, ok := claims["exp"].(float64); ok {
		exp = time.Unix(int64(e), 0)
	}
	return uint(adminID), exp, nil
}

// Authorize resolves the admin behind a raw Cookie header.
func (h *AuthHandler) Authorize(ctx context.Context, cookieHeader string) (uint, error) {
	token := cookieValue(cookieHeader)
	if token == "" {
		return 0, huma.Error401Unauthorized("Unauthorized: No token found")
	}
	adminID, _, err := h.ParseToken(token)
	if err != nil {
		return 0, huma.Error401Unauthorized("Unauthorized: Invalid token")
	}
	return adminID, nil
}

// Principal identifies who submitted a check-in.
type Principal struct {
	AdminID      uint
	ScannerKeyID uint
}

// AuthorizeScanner accepts a scanner API key or, failing that, an admin
// session.
func (h *AuthHandler) AuthorizeScanner(ctx context.Context, input AuthInput) (Principal, error) {
	if input.APIKey != "" {
		key, err := h.ValidateAPIKey(ctx, input.APIKey)
		if err == nil {
			return Principal{AdminID: key.AdminID, ScannerKeyID: key.ID}, nil
		}
		if errors.Is(err, ErrExpiredAPIKey) {
			return Principal{}, huma.Error401Unauthorized("Unauthorized: API Key expired")
		}
		if !errors.Is(err, ErrInvalidAPIKey) {
			return Principal{}, huma.Error503ServiceUnavailable("Failed to check API key")
		}
	}
	adminID, err := h.Authorize(ctx, input.Cookie)
	if err != nil {
		return Principal{}, err
	}
	return Principal{AdminID: adminID}, nil
}

// ValidateAPIKey looks up a scanner key, rejects expired ones and records
// its use.
func (h *AuthHandler) ValidateAPIKey(ctx context.Context, key string) (*models.ScannerKey, error) {
	var keyModel models.ScannerKey
	if err := h.db.WithContext(ctx).Where("key = ?", key).First(&keyModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}
	now := time.Now()
	if keyModel.ExpiresAt != nil && now.After(*keyModel.ExpiresAt) {
		return nil, ErrExpiredAPIKey
	}
	if err := h.db.WithContext(ctx).Model(&keyModel).Update("last_used_at", now).Error; err != nil {
		log.Printf("auth: recording use of scanner key %d failed: %v", keyModel.ID, err)
	}
	return &keyModel, nil
}

type MeOutput struct {
	Body struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeOutput, error) {
	adminID, err := h.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}

	var admin models.Admin
	if err := h.db.WithContext(ctx).First(&admin, adminID).Error; err != nil {
		return nil, huma.Error404NotFound("Admin not found")
	}

	out := &MeOutput{}
	out.Body.ID = admin.ID
	out.Body.Username = admin.Username
	out.Body.Email = admin.Email
	out.Body.Avatar = admin.Avatar
	return out, nil
}

func sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieValue(header string) string {
	if header == "" {
		return ""
	}
	r := http.Request{Header: http.Header{"Cookie": {header}}}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
