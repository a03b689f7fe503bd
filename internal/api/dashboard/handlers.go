// internal/api/dashboard/handlers.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/internal/api/apiutil"
	appdb "github.com/matchdayhq/matchday/internal/db"
	"github.com/matchdayhq/matchday/internal/invitations"
)

const (
	dashboardQueryTimeout = 5 * time.Second
	upcomingGamesShown    = 5
)

var (
	queries *appdb.Queries
	service *invitations.Service
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB, svc *invitations.Service) {
	if db != nil {
		queries = db.Queries
	}
	service = svc
}

type teamSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type upcomingGame struct {
	ID          int64  `json:"id"`
	TeamID      int64  `json:"teamId"`
	Opponent    string `json:"opponent"`
	ScheduledAt string `json:"scheduledAt"`
	Location    string `json:"location"`
	IsHome      bool   `json:"isHome"`
}

type dashboardResponse struct {
	Teams              []teamSummary  `json:"teams"`
	TeamCount          int            `json:"teamCount"`
	UpcomingGames      []upcomingGame `json:"upcomingGames"`
	PendingInvitations int            `json:"pendingInvitations"`
}

// GET /api/v1/dashboard
//
// One aggregate payload so the landing page needs a single round trip.
func HandleDashboard(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardQueryTimeout)
	defer cancel()

	teams, err := queries.ListTeamsWithRoleForUser(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to load teams")
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	games, err := queries.ListUpcomingGamesForUser(ctx, appdb.UpcomingGamesParams{
		UserID: user.ID,
		After:  time.Now().UTC(),
		Limit:  upcomingGamesShown,
	})
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to load upcoming games")
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	pending := 0
	listing := service.ListForEmail(ctx, user.Email)
	if listing.Success() {
		for _, inv := range listing.Invitations {
			if inv.Status == string(invitations.StatusPending) {
				pending++
			}
		}
	} else {
		// A dashboard without the invitation count is better than no dashboard.
		logger.Warn().Str("message", listing.Message).Msg("Failed to count pending invitations")
	}

	resp := dashboardResponse{
		Teams:              make([]teamSummary, 0, len(teams)),
		UpcomingGames:      make([]upcomingGame, 0, len(games)),
		PendingInvitations: pending,
	}
	for _, t := range teams {
		resp.Teams = append(resp.Teams, teamSummary{ID: t.ID, Name: t.Name, Role: t.Role})
	}
	resp.TeamCount = len(resp.Teams)
	for _, g := range games {
		resp.UpcomingGames = append(resp.UpcomingGames, upcomingGame{
			ID:          g.ID,
			TeamID:      g.TeamID,
			Opponent:    g.Opponent,
			ScheduledAt: g.ScheduledAt.UTC().Format(time.RFC3339),
			Location:    g.Location,
			IsHome:      g.IsHome,
		})
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, resp)
}
