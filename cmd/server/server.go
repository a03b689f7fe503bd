// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/matchdayhq/matchday/internal/api"
	"github.com/matchdayhq/matchday/internal/api/admin"
	"github.com/matchdayhq/matchday/internal/api/auth"
	"github.com/matchdayhq/matchday/internal/api/dashboard"
	"github.com/matchdayhq/matchday/internal/api/games"
	invitationsapi "github.com/matchdayhq/matchday/internal/api/invitations"
	"github.com/matchdayhq/matchday/internal/api/series"
	"github.com/matchdayhq/matchday/internal/api/teams"
	"github.com/matchdayhq/matchday/internal/config"
	"github.com/matchdayhq/matchday/internal/db"
)

func newServer(cfg *config.Config, database *db.DB, issuer *auth.TokenIssuer) *http.Server {
	router := http.NewServeMux()

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithAuth(database.Queries, issuer),
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth
	mux.HandleFunc("POST /api/v1/auth/register", auth.HandleRegister)
	mux.HandleFunc("GET /api/v1/auth/verify", auth.HandleVerify)
	mux.HandleFunc("POST /api/v1/auth/login", auth.HandleLogin)
	mux.HandleFunc("GET /api/v1/auth/me", auth.HandleMe)

	// Teams
	mux.HandleFunc("POST /api/v1/teams", teams.HandleTeamCreate)
	mux.HandleFunc("GET /api/v1/teams", teams.HandleTeamList)
	mux.HandleFunc("GET /api/v1/teams/{id}", teams.HandleTeamGet)
	mux.HandleFunc("PUT /api/v1/teams/{id}", teams.HandleTeamUpdate)
	mux.HandleFunc("DELETE /api/v1/teams/{id}", teams.HandleTeamDelete)
	mux.HandleFunc("GET /api/v1/teams/{id}/members", teams.HandleTeamMembers)
	mux.HandleFunc("DELETE /api/v1/teams/{id}/members/{userId}", teams.HandleMemberRemove)

	// Team invitations
	mux.HandleFunc("POST /api/v1/team-invitations/send", invitationsapi.HandleInvitationSend)
	mux.HandleFunc("GET /api/v1/team-invitations/team/{teamId}", invitationsapi.HandleInvitationListByTeam)
	mux.HandleFunc("GET /api/v1/team-invitations/my-invitations", invitationsapi.HandleMyInvitations)
	mux.HandleFunc("GET /api/v1/team-invitations/token/{token}", invitationsapi.HandleInvitationLookup)
	mux.HandleFunc("POST /api/v1/team-invitations/accept/{token}", invitationsapi.HandleInvitationAccept)
	mux.HandleFunc("POST /api/v1/team-invitations/decline/{token}", invitationsapi.HandleInvitationDecline)
	mux.HandleFunc("DELETE /api/v1/team-invitations/{teamId}/{invitationId}", invitationsapi.HandleInvitationDelete)

	// Team invitations, envelope variants
	mux.HandleFunc("POST /api/v1/team-invitations/service/accept/{token}", invitationsapi.HandleServiceAccept)
	mux.HandleFunc("POST /api/v1/team-invitations/service/decline/{token}", invitationsapi.HandleServiceDecline)
	mux.HandleFunc("GET /api/v1/team-invitations/service/token/{token}", invitationsapi.HandleServiceLookup)
	mux.HandleFunc("GET /api/v1/team-invitations/service/my-invitations", invitationsapi.HandleServiceMyInvitations)

	// Series
	mux.HandleFunc("POST /api/v1/series", series.HandleSeriesCreate)
	mux.HandleFunc("GET /api/v1/series", series.HandleSeriesList)
	mux.HandleFunc("GET /api/v1/series/{id}", series.HandleSeriesGet)
	mux.HandleFunc("PUT /api/v1/series/{id}", series.HandleSeriesUpdate)
	mux.HandleFunc("DELETE /api/v1/series/{id}", series.HandleSeriesDelete)

	// Games
	mux.HandleFunc("POST /api/v1/games", games.HandleGameCreate)
	mux.HandleFunc("GET /api/v1/games", games.HandleGameList)
	mux.HandleFunc("GET /api/v1/games/upcoming", games.HandleUpcomingGames)
	mux.HandleFunc("GET /api/v1/games/{id}", games.HandleGameGet)
	mux.HandleFunc("POST /api/v1/games/{id}/result", games.HandleGameResult)
	mux.HandleFunc("POST /api/v1/games/{id}/cancel", games.HandleGameCancel)

	// Admin
	mux.HandleFunc("GET /api/v1/admin/users", admin.HandleUserList)
	mux.HandleFunc("POST /api/v1/admin/users/{id}/activate", admin.HandleUserActivate)
	mux.HandleFunc("POST /api/v1/admin/users/{id}/deactivate", admin.HandleUserDeactivate)
	mux.HandleFunc("DELETE /api/v1/admin/teams/{id}", admin.HandleTeamDelete)

	// Dashboard
	mux.HandleFunc("GET /api/v1/dashboard", dashboard.HandleDashboard)
}
