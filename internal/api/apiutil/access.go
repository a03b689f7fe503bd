package apiutil

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/internal/api/authz"
)

// RequireVerifiedUser enforces the verified-email gate and writes the failure
// response itself. It returns nil when the caller may not proceed.
func RequireVerifiedUser(w http.ResponseWriter, r *http.Request) *authz.AuthUser {
	logger := log.Ctx(r.Context())
	user, err := authz.RequireVerified(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Warn().Msg("Access denied: unauthenticated")
			WriteError(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, authz.ErrUnverified):
			logger.Warn().Msg("Access denied: email not verified")
			WriteError(w, http.StatusForbidden, "Email verification required")
		default:
			logger.Error().Err(err).Msg("Access denied: error")
			WriteError(w, http.StatusInternalServerError, "Failed to authorize request")
		}
		return nil
	}
	return user
}

// RequireAdminUser enforces administrator access and writes the failure
// response itself. It returns nil when the caller may not proceed.
func RequireAdminUser(w http.ResponseWriter, r *http.Request) *authz.AuthUser {
	logger := log.Ctx(r.Context())
	user, err := authz.RequireAdmin(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Warn().Msg("Admin access denied: unauthenticated")
			WriteError(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, authz.ErrForbidden):
			logEvent := logger.Warn()
			if u := authz.UserFromContext(r.Context()); u != nil {
				logEvent = logEvent.Int64("user_id", u.ID)
			}
			logEvent.Msg("Admin access denied: forbidden")
			WriteError(w, http.StatusForbidden, "Forbidden")
		default:
			logger.Error().Err(err).Msg("Admin access denied: error")
			WriteError(w, http.StatusInternalServerError, "Failed to authorize request")
		}
		return nil
	}
	return user
}
