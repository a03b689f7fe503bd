// internal/api/teams/handlers.go
package teams

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/internal/api/apiutil"
	appdb "github.com/matchdayhq/matchday/internal/db"
)

const (
	teamQueryTimeout = 5 * time.Second
	teamIDPathKey    = "id"
	userIDPathKey    = "userId"

	RoleCaptain = "captain"
	RolePlayer  = "player"
)

var (
	database *appdb.DB
	queries  *appdb.Queries
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB) {
	if db == nil {
		return
	}
	database = db
	queries = db.Queries
}

type teamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type teamResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   int64  `json:"createdBy"`
}

type memberResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func teamResponseFrom(t appdb.Team) teamResponse {
	return teamResponse{ID: t.ID, Name: t.Name, Description: t.Description, CreatedBy: t.CreatedBy}
}

// POST /api/v1/teams
func HandleTeamCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	var req teamRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Team name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	var team appdb.Team
	err := database.RunInTx(ctx, func(tx *appdb.DB) error {
		var err error
		team, err = tx.Queries.CreateTeam(ctx, appdb.CreateTeamParams{
			Name:        req.Name,
			Description: req.Description,
			CreatedBy:   user.ID,
		})
		if err != nil {
			return err
		}
		return tx.Queries.AddTeamMember(ctx, appdb.AddTeamMemberParams{
			TeamID: team.ID,
			UserID: user.ID,
			Role:   RoleCaptain,
		})
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create team")
		http.Error(w, "Failed to create team", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("team_id", team.ID).Int64("user_id", user.ID).Msg("Team created")
	_ = apiutil.WriteJSON(w, http.StatusCreated, teamResponseFrom(team))
}

// GET /api/v1/teams
func HandleTeamList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	teams, err := queries.ListTeamsForUser(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list teams")
		http.Error(w, "Failed to list teams", http.StatusInternalServerError)
		return
	}

	out := make([]teamResponse, 0, len(teams))
	for _, t := range teams {
		out = append(out, teamResponseFrom(t))
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"teams": out})
}

// GET /api/v1/teams/{id}
func HandleTeamGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if apiutil.RequireVerifiedUser(w, r) == nil {
		return
	}

	teamID, err := teamIDFromPath(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	team, err := queries.GetTeamByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Team not found")
			return
		}
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to load team")
		http.Error(w, "Failed to load team", http.StatusInternalServerError)
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, teamResponseFrom(team))
}

// PUT /api/v1/teams/{id}
func HandleTeamUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	teamID, err := teamIDFromPath(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	var req teamRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Team name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	if !requireCaptain(ctx, w, logger, teamID, user.ID) {
		return
	}

	team, err := queries.UpdateTeam(ctx, appdb.UpdateTeamParams{
		ID:          teamID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Team not found")
			return
		}
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to update team")
		http.Error(w, "Failed to update team", http.StatusInternalServerError)
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, teamResponseFrom(team))
}

// DELETE /api/v1/teams/{id}
func HandleTeamDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	teamID, err := teamIDFromPath(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	// Admins may remove any team; otherwise captaincy is required.
	if !user.IsAdmin && !requireCaptain(ctx, w, logger, teamID, user.ID) {
		return
	}

	if err := queries.DeleteTeam(ctx, teamID); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to delete team")
		http.Error(w, "Failed to delete team", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("team_id", teamID).Int64("user_id", user.ID).Msg("Team deleted")
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Team deleted"})
}

// GET /api/v1/teams/{id}/members
func HandleTeamMembers(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if apiutil.RequireVerifiedUser(w, r) == nil {
		return
	}

	teamID, err := teamIDFromPath(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	members, err := queries.ListTeamMembers(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to list members")
		http.Error(w, "Failed to list members", http.StatusInternalServerError)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			UserID:   m.UserID,
			Username: m.Username,
			Email:    m.Email,
			Role:     m.Role,
		})
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"members": out})
}

// DELETE /api/v1/teams/{id}/members/{userId}
func HandleMemberRemove(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	teamID, err := teamIDFromPath(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team id")
		return
	}
	targetID, err := strconv.ParseInt(r.PathValue(userIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	// Members may leave on their own; removing anyone else takes captaincy.
	if targetID != user.ID && !requireCaptain(ctx, w, logger, teamID, user.ID) {
		return
	}

	if err := queries.RemoveTeamMember(ctx, teamID, targetID); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Int64("target_id", targetID).Msg("Failed to remove member")
		http.Error(w, "Failed to remove member", http.StatusInternalServerError)
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Member removed"})
}

// IsCaptain reports whether the user holds the captain role on the team.
func IsCaptain(ctx context.Context, q *appdb.Queries, teamID, userID int64) (bool, error) {
	member, err := q.GetTeamMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return member.Role == RoleCaptain, nil
}

func requireCaptain(ctx context.Context, w http.ResponseWriter, logger *zerolog.Logger, teamID, userID int64) bool {
	captain, err := IsCaptain(ctx, queries, teamID, userID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to check captaincy")
		http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
		return false
	}
	if !captain {
		logger.Warn().Int64("team_id", teamID).Int64("user_id", userID).Msg("Captain access denied")
		apiutil.WriteError(w, http.StatusForbidden, "Only the team captain may do this")
		return false
	}
	return true
}

func teamIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue(teamIDPathKey), 10, 64)
}
