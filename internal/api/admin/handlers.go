// internal/api/admin/handlers.go
package admin

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/internal/api/apiutil"
	appdb "github.com/matchdayhq/matchday/internal/db"
)

const (
	adminQueryTimeout = 5 * time.Second
	userIDPathKey     = "id"
	teamIDPathKey     = "id"

	defaultPageSize = 25
	maxPageSize     = 100
)

var queries *appdb.Queries

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB) {
	if db == nil {
		return
	}
	queries = db.Queries
}

type userResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	IsVerified bool   `json:"isVerified"`
	IsAdmin    bool   `json:"isAdmin"`
	IsActive   bool   `json:"isActive"`
}

func userResponseFrom(u appdb.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		IsVerified: u.IsVerified,
		IsAdmin:    u.IsAdmin,
		IsActive:   u.IsActive,
	}
}

// GET /api/v1/admin/users?limit=&offset=
func HandleUserList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if apiutil.RequireAdminUser(w, r) == nil {
		return
	}

	limit := int64(defaultPageSize)
	offset := int64(0)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > maxPageSize {
			apiutil.WriteError(w, http.StatusBadRequest, "Limit must be between 1 and 100")
			return
		}
		limit = parsed
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			apiutil.WriteError(w, http.StatusBadRequest, "Offset must not be negative")
			return
		}
		offset = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	users, err := queries.ListUsers(ctx, appdb.ListUsersParams{Limit: limit, Offset: offset})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list users")
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponseFrom(u))
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"users":  out,
		"limit":  limit,
		"offset": offset,
	})
}

// POST /api/v1/admin/users/{id}/activate
func HandleUserActivate(w http.ResponseWriter, r *http.Request) {
	setUserActive(w, r, true)
}

// POST /api/v1/admin/users/{id}/deactivate
func HandleUserDeactivate(w http.ResponseWriter, r *http.Request) {
	setUserActive(w, r, false)
}

func setUserActive(w http.ResponseWriter, r *http.Request, active bool) {
	logger := log.Ctx(r.Context())

	admin := apiutil.RequireAdminUser(w, r)
	if admin == nil {
		return
	}

	userID, err := strconv.ParseInt(r.PathValue(userIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	if !active && userID == admin.ID {
		apiutil.WriteError(w, http.StatusBadRequest, "You cannot deactivate your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	user, err := queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load user")
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	if err := queries.SetUserActive(ctx, userID, active); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to update user status")
		http.Error(w, "Failed to update user status", http.StatusInternalServerError)
		return
	}

	user.IsActive = active
	logger.Info().
		Int64("user_id", userID).
		Bool("active", active).
		Int64("admin_id", admin.ID).
		Msg("User active status changed")
	_ = apiutil.WriteJSON(w, http.StatusOK, userResponseFrom(user))
}

// DELETE /api/v1/admin/teams/{id}
func HandleTeamDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	admin := apiutil.RequireAdminUser(w, r)
	if admin == nil {
		return
	}

	teamID, err := strconv.ParseInt(r.PathValue(teamIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	if _, err := queries.GetTeamByID(ctx, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Team not found")
			return
		}
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to load team")
		http.Error(w, "Failed to load team", http.StatusInternalServerError)
		return
	}

	if err := queries.DeleteTeam(ctx, teamID); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to delete team")
		http.Error(w, "Failed to delete team", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("team_id", teamID).Int64("admin_id", admin.ID).Msg("Team deleted by admin")
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Team deleted"})
}
