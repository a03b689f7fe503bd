// internal/api/auth/handlers.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/internal/api/apiutil"
	"github.com/matchdayhq/matchday/internal/api/authz"
	"github.com/matchdayhq/matchday/internal/config"
	appdb "github.com/matchdayhq/matchday/internal/db"
	"github.com/matchdayhq/matchday/internal/email"
	"github.com/matchdayhq/matchday/internal/ratelimit"
)

const (
	authQueryTimeout   = 5 * time.Second
	minPasswordLength  = 8
	defaultPhoneRegion = "US"
)

var (
	queries   *appdb.Queries
	appConfig *config.Config
	issuer    *TokenIssuer
	sender    email.Sender
	limiter   *ratelimit.Limiter
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, cfg *config.Config, tokenIssuer *TokenIssuer, emailSender email.Sender, loginLimiter *ratelimit.Limiter) {
	if database != nil {
		queries = database.Queries
	}
	appConfig = cfg
	issuer = tokenIssuer
	sender = emailSender
	limiter = loginLimiter
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	IsVerified bool   `json:"isVerified"`
	IsAdmin    bool   `json:"isAdmin"`
}

func userResponseFrom(u appdb.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		IsVerified: u.IsVerified,
		IsAdmin:    u.IsAdmin,
	}
}

// POST /api/v1/auth/register
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		apiutil.WriteError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if req.Username == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		apiutil.WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	phone := sql.NullString{}
	if strings.TrimSpace(req.Phone) != "" {
		normalized, err := normalizePhone(req.Phone)
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, "Invalid phone number")
			return
		}
		phone = sql.NullString{String: normalized, Valid: true}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	verificationToken := uuid.New().String()
	user, err := queries.CreateUser(ctx, appdb.CreateUserParams{
		Email:             req.Email,
		Username:          req.Username,
		PasswordHash:      hash,
		Phone:             phone,
		VerificationToken: verificationToken,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			apiutil.WriteError(w, http.StatusConflict, "Email or username already in use")
			return
		}
		logger.Error().Err(err).Msg("Failed to create user")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	baseURL := ""
	if appConfig != nil {
		baseURL = appConfig.App.BaseURL
	}
	email.SendVerification(r.Context(), sender, user.Email, user.Username, baseURL, verificationToken)

	logger.Info().Int64("user_id", user.ID).Msg("User registered")
	_ = apiutil.WriteJSON(w, http.StatusCreated, userResponseFrom(user))
}

// GET /api/v1/auth/verify?token=...
func HandleVerify(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Verification token is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	verified, err := queries.VerifyUserByToken(ctx, token)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to verify user")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !verified {
		apiutil.WriteError(w, http.StatusNotFound, "Verification token not found")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
}

// POST /api/v1/auth/login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil || issuer == nil {
		logger.Error().Msg("Auth handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	clientIP := ratelimit.GetClientIP(r, false)
	if limiter != nil {
		if result := limiter.CheckLogin(req.Email, clientIP); !result.Allowed {
			ratelimit.LogRateLimitExceeded("login", req.Email, clientIP, result.Reason)
			w.Header().Set("Retry-After", result.RetryAfter.Round(time.Second).String())
			apiutil.WriteError(w, http.StatusTooManyRequests, "Too many login attempts")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := queries.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.Error().Err(err).Msg("Failed to look up user")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Credential failures share a response so callers can't probe accounts.
	if errors.Is(err, sql.ErrNoRows) || !VerifyPassword(user.PasswordHash, req.Password) {
		if limiter != nil {
			limiter.RecordLoginFailure(req.Email, clientIP)
		}
		apiutil.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !user.IsActive {
		apiutil.WriteError(w, http.StatusForbidden, "Account deactivated")
		return
	}

	token, err := issuer.Issue(user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if limiter != nil {
		limiter.ResetLoginAttempts(req.Email)
	}

	logger.Info().Int64("user_id", user.ID).Msg("User logged in")
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userResponseFrom(user),
	})
}

// GET /api/v1/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, userResponse{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		IsVerified: user.IsVerified,
		IsAdmin:    user.IsAdmin,
	})
}

// normalizePhone parses an optional contact number into E.164.
func normalizePhone(raw string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", errors.New("invalid phone number")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
