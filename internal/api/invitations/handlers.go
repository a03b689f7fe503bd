// internal/api/invitations/handlers.go
//
// HTTP adapter over the invitation service. The plain routes translate
// outcome tags to HTTP status codes; the service/* routes return the
// service result verbatim in a 200 envelope for clients that branch on
// the success flag instead of the status code.
package invitations

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/internal/api/apiutil"
	"github.com/matchdayhq/matchday/internal/api/teams"
	"github.com/matchdayhq/matchday/internal/config"
	appdb "github.com/matchdayhq/matchday/internal/db"
	"github.com/matchdayhq/matchday/internal/email"
	"github.com/matchdayhq/matchday/internal/invitations"
)

const (
	invitationQueryTimeout = 5 * time.Second
	tokenPathKey           = "token"
	teamIDPathKey          = "teamId"
	invitationIDPathKey    = "invitationId"
)

var (
	queries   *appdb.Queries
	appConfig *config.Config
	service   *invitations.Service
	sender    email.Sender
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, cfg *config.Config, svc *invitations.Service, emailSender email.Sender) {
	if database != nil {
		queries = database.Queries
	}
	appConfig = cfg
	service = svc
	sender = emailSender
}

type sendRequest struct {
	TeamID int64  `json:"teamId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type invitationResponse struct {
	ID                int64     `json:"id"`
	Token             string    `json:"token"`
	TeamID            int64     `json:"teamId"`
	TeamName          string    `json:"teamName"`
	InvitedEmail      string    `json:"invitedEmail"`
	InvitedRole       string    `json:"invitedRole"`
	InvitedByUsername string    `json:"invitedByUsername"`
	Status            string    `json:"status"`
	ExpiresAt         time.Time `json:"expiresAt"`
	CreatedAt         time.Time `json:"createdAt"`
}

func invitationResponseFrom(inv appdb.TeamInvitation) invitationResponse {
	return invitationResponse{
		ID:                inv.ID,
		Token:             inv.Token,
		TeamID:            inv.TeamID,
		TeamName:          inv.TeamName,
		InvitedEmail:      inv.InvitedEmail,
		InvitedRole:       inv.InvitedRole,
		InvitedByUsername: inv.InvitedByUsername,
		Status:            inv.Status,
		ExpiresAt:         inv.ExpiresAt,
		CreatedAt:         inv.CreatedAt,
	}
}

// POST /api/v1/team-invitations/send
func HandleInvitationSend(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	var req sendRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.TeamID == 0 || req.Email == "" || !strings.Contains(req.Email, "@") {
		apiutil.WriteError(w, http.StatusBadRequest, "Team id and a valid email are required")
		return
	}
	if !invitations.ValidRole(req.Role) {
		apiutil.WriteError(w, http.StatusBadRequest, "Role must be captain or player")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	team, ok := loadTeam(ctx, w, r, req.TeamID)
	if !ok {
		return
	}
	if !requireCaptain(ctx, w, r, team.ID, user.ID) {
		return
	}

	// One live invitation per team and address.
	existing, err := queries.ListInvitationsByEmail(ctx, req.Email)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to check existing invitations")
		http.Error(w, "Failed to create invitation", http.StatusInternalServerError)
		return
	}
	for _, inv := range existing {
		if inv.TeamID == team.ID && inv.Status == string(invitations.StatusPending) {
			apiutil.WriteError(w, http.StatusConflict, "An invitation for this email is already pending")
			return
		}
	}

	expiresAt := time.Now().UTC().AddDate(0, 0, appConfig.Invitations.ExpiryDays)
	created, err := queries.CreateInvitation(ctx, appdb.CreateInvitationParams{
		Token:             uuid.NewString(),
		TeamID:            team.ID,
		TeamName:          team.Name,
		InvitedEmail:      req.Email,
		InvitedRole:       req.Role,
		InvitedByUsername: user.Username,
		ExpiresAt:         expiresAt,
	})
	if err != nil {
		logger.Error().Err(err).Int64("team_id", team.ID).Msg("Failed to create invitation")
		http.Error(w, "Failed to create invitation", http.StatusInternalServerError)
		return
	}

	email.SendInvitation(
		r.Context(), sender,
		created.InvitedEmail, created.TeamName, created.InvitedByUsername,
		created.InvitedRole, appConfig.App.BaseURL, created.Token, created.ExpiresAt,
	)

	logger.Info().
		Int64("invitation_id", created.ID).
		Int64("team_id", team.ID).
		Str("role", created.InvitedRole).
		Msg("Invitation sent")
	_ = apiutil.WriteJSON(w, http.StatusCreated, invitationResponseFrom(created))
}

// GET /api/v1/team-invitations/team/{teamId}
func HandleInvitationListByTeam(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	teamID, err := strconv.ParseInt(r.PathValue(teamIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	if !requireCaptain(ctx, w, r, teamID, user.ID) {
		return
	}

	list, err := queries.ListInvitationsByTeam(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to list invitations")
		http.Error(w, "Failed to list invitations", http.StatusInternalServerError)
		return
	}

	out := make([]invitationResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, invitationResponseFrom(inv))
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"invitations": out})
}

// GET /api/v1/team-invitations/my-invitations
func HandleMyInvitations(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	result := service.ListForEmail(ctx, user.Email)
	writeOutcome(w, result.Result, map[string]any{"invitations": result.Invitations})
}

// GET /api/v1/team-invitations/token/{token}
func HandleInvitationLookup(w http.ResponseWriter, r *http.Request) {
	if apiutil.RequireVerifiedUser(w, r) == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	result := service.GetByToken(ctx, r.PathValue(tokenPathKey))
	writeOutcome(w, result.Result, map[string]any{"invitation": result.Invitation})
}

// POST /api/v1/team-invitations/accept/{token}
func HandleInvitationAccept(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	result := service.Accept(ctx, r.PathValue(tokenPathKey), user.ID)
	writeOutcome(w, result.Result, acceptData(result))
}

// POST /api/v1/team-invitations/decline/{token}
func HandleInvitationDecline(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	result := service.Decline(ctx, r.PathValue(tokenPathKey), user.ID)
	writeOutcome(w, result.Result, map[string]any{"invitation": result.Invitation})
}

// DELETE /api/v1/team-invitations/{teamId}/{invitationId}
func HandleInvitationDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	teamID, err := strconv.ParseInt(r.PathValue(teamIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team id")
		return
	}
	invitationID, err := strconv.ParseInt(r.PathValue(invitationIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid invitation id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	if !requireCaptain(ctx, w, r, teamID, user.ID) {
		return
	}

	deleted, err := queries.DeleteInvitation(ctx, teamID, invitationID)
	if err != nil {
		logger.Error().Err(err).Int64("invitation_id", invitationID).Msg("Failed to delete invitation")
		http.Error(w, "Failed to delete invitation", http.StatusInternalServerError)
		return
	}
	if !deleted {
		apiutil.WriteError(w, http.StatusNotFound, "Invitation not found")
		return
	}

	logger.Info().Int64("invitation_id", invitationID).Int64("team_id", teamID).Msg("Invitation deleted")
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Invitation deleted"})
}

// Service variants: same operations, but the HTTP status is always 200 and
// the body carries the full result envelope.

// POST /api/v1/team-invitations/service/accept/{token}
func HandleServiceAccept(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	result := service.Accept(ctx, r.PathValue(tokenPathKey), user.ID)
	writeEnvelope(w, result.Result, acceptData(result))
}

// POST /api/v1/team-invitations/service/decline/{token}
func HandleServiceDecline(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	result := service.Decline(ctx, r.PathValue(tokenPathKey), user.ID)
	writeEnvelope(w, result.Result, map[string]any{"invitation": result.Invitation})
}

// GET /api/v1/team-invitations/service/token/{token}
func HandleServiceLookup(w http.ResponseWriter, r *http.Request) {
	if apiutil.RequireVerifiedUser(w, r) == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	result := service.GetByToken(ctx, r.PathValue(tokenPathKey))
	writeEnvelope(w, result.Result, map[string]any{"invitation": result.Invitation})
}

// GET /api/v1/team-invitations/service/my-invitations
func HandleServiceMyInvitations(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), invitationQueryTimeout)
	defer cancel()

	result := service.ListForEmail(ctx, user.Email)
	writeEnvelope(w, result.Result, map[string]any{"invitations": result.Invitations})
}

func acceptData(result invitations.AcceptResult) map[string]any {
	return map[string]any{
		"invitation": result.Invitation,
		"team":       result.Team,
		"user":       result.User,
	}
}

// writeOutcome maps an outcome tag to an HTTP status. Failure data is never
// leaked: failures carry the message only.
func writeOutcome(w http.ResponseWriter, result invitations.Result, data any) {
	if result.Success() {
		_ = apiutil.WriteJSON(w, http.StatusOK, apiutil.Envelope{
			Success: true,
			Message: result.Message,
			Data:    data,
		})
		return
	}
	apiutil.WriteError(w, statusForOutcome(result.Outcome), result.Message)
}

// writeEnvelope always answers 200 with the result envelope.
func writeEnvelope(w http.ResponseWriter, result invitations.Result, data any) {
	envelope := apiutil.Envelope{
		Success: result.Success(),
		Message: result.Message,
	}
	if result.Success() {
		envelope.Data = data
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, envelope)
}

func statusForOutcome(outcome invitations.Outcome) int {
	switch outcome {
	case invitations.OutcomeNotFound:
		return http.StatusNotFound
	case invitations.OutcomeUnexpected:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func loadTeam(ctx context.Context, w http.ResponseWriter, r *http.Request, teamID int64) (appdb.Team, bool) {
	logger := log.Ctx(r.Context())

	team, err := queries.GetTeamByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Team not found")
			return appdb.Team{}, false
		}
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to load team")
		http.Error(w, "Failed to load team", http.StatusInternalServerError)
		return appdb.Team{}, false
	}
	return team, true
}

func requireCaptain(ctx context.Context, w http.ResponseWriter, r *http.Request, teamID, userID int64) bool {
	logger := log.Ctx(r.Context())

	captain, err := teams.IsCaptain(ctx, queries, teamID, userID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to check captaincy")
		http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
		return false
	}
	if !captain {
		apiutil.WriteError(w, http.StatusForbidden, "Only the team captain may do this")
		return false
	}
	return true
}
