// internal/api/games/handlers.go
package games

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/internal/api/apiutil"
	"github.com/matchdayhq/matchday/internal/api/teams"
	appdb "github.com/matchdayhq/matchday/internal/db"
)

const (
	gameQueryTimeout = 5 * time.Second
	gameIDPathKey    = "id"
	seriesIDQueryKey = "series_id"
)

var queries *appdb.Queries

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queries = database.Queries
}

type gameRequest struct {
	SeriesID    int64  `json:"seriesId"`
	Opponent    string `json:"opponent"`
	ScheduledAt string `json:"scheduledAt"`
	Location    string `json:"location"`
	IsHome      bool   `json:"isHome"`
}

type resultRequest struct {
	HomeScore int64 `json:"homeScore"`
	AwayScore int64 `json:"awayScore"`
}

type gameResponse struct {
	ID          int64  `json:"id"`
	SeriesID    int64  `json:"seriesId"`
	TeamID      int64  `json:"teamId"`
	Opponent    string `json:"opponent"`
	ScheduledAt string `json:"scheduledAt"`
	Location    string `json:"location"`
	IsHome      bool   `json:"isHome"`
	Status      string `json:"status"`
	HomeScore   *int64 `json:"homeScore,omitempty"`
	AwayScore   *int64 `json:"awayScore,omitempty"`
}

func gameResponseFrom(g appdb.Game) gameResponse {
	out := gameResponse{
		ID:          g.ID,
		SeriesID:    g.SeriesID,
		TeamID:      g.TeamID,
		Opponent:    g.Opponent,
		ScheduledAt: g.ScheduledAt.UTC().Format(time.RFC3339),
		Location:    g.Location,
		IsHome:      g.IsHome,
		Status:      g.Status,
	}
	if g.HomeScore.Valid {
		out.HomeScore = &g.HomeScore.Int64
	}
	if g.AwayScore.Valid {
		out.AwayScore = &g.AwayScore.Int64
	}
	return out
}

// POST /api/v1/games
func HandleGameCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	var req gameRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Opponent = strings.TrimSpace(req.Opponent)
	if req.SeriesID == 0 || req.Opponent == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Series id and opponent are required")
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid scheduled time, expected RFC 3339")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	series, err := queries.GetSeriesByID(ctx, req.SeriesID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Series not found")
			return
		}
		logger.Error().Err(err).Int64("series_id", req.SeriesID).Msg("Failed to load series")
		http.Error(w, "Failed to load series", http.StatusInternalServerError)
		return
	}

	if !requireCaptain(ctx, w, r, series.TeamID, user.ID) {
		return
	}

	created, err := queries.CreateGame(ctx, appdb.CreateGameParams{
		SeriesID:    series.ID,
		TeamID:      series.TeamID,
		Opponent:    req.Opponent,
		ScheduledAt: scheduledAt.UTC(),
		Location:    strings.TrimSpace(req.Location),
		IsHome:      req.IsHome,
	})
	if err != nil {
		logger.Error().Err(err).Int64("series_id", series.ID).Msg("Failed to create game")
		http.Error(w, "Failed to create game", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("game_id", created.ID).Int64("series_id", series.ID).Msg("Game created")
	_ = apiutil.WriteJSON(w, http.StatusCreated, gameResponseFrom(created))
}

// GET /api/v1/games?series_id=...
func HandleGameList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if apiutil.RequireVerifiedUser(w, r) == nil {
		return
	}

	seriesID, err := strconv.ParseInt(r.URL.Query().Get(seriesIDQueryKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "A valid series_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	list, err := queries.ListGamesBySeries(ctx, seriesID)
	if err != nil {
		logger.Error().Err(err).Int64("series_id", seriesID).Msg("Failed to list games")
		http.Error(w, "Failed to list games", http.StatusInternalServerError)
		return
	}

	out := make([]gameResponse, 0, len(list))
	for _, g := range list {
		out = append(out, gameResponseFrom(g))
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"games": out})
}

// GET /api/v1/games/{id}
func HandleGameGet(w http.ResponseWriter, r *http.Request) {
	if apiutil.RequireVerifiedUser(w, r) == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	game, ok := loadGame(ctx, w, r)
	if !ok {
		return
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, gameResponseFrom(game))
}

// POST /api/v1/games/{id}/result
func HandleGameResult(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	var req resultRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.HomeScore < 0 || req.AwayScore < 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "Scores cannot be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	game, ok := loadGame(ctx, w, r)
	if !ok {
		return
	}
	if !requireCaptain(ctx, w, r, game.TeamID, user.ID) {
		return
	}
	if game.Status != "scheduled" {
		apiutil.WriteError(w, http.StatusConflict, "Only a scheduled game can have a result recorded")
		return
	}

	updated, err := queries.RecordGameResult(ctx, appdb.RecordGameResultParams{
		ID:        game.ID,
		HomeScore: req.HomeScore,
		AwayScore: req.AwayScore,
	})
	if err != nil {
		logger.Error().Err(err).Int64("game_id", game.ID).Msg("Failed to record result")
		http.Error(w, "Failed to record result", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("game_id", game.ID).Msg("Game result recorded")
	_ = apiutil.WriteJSON(w, http.StatusOK, gameResponseFrom(updated))
}

// POST /api/v1/games/{id}/cancel
func HandleGameCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	game, ok := loadGame(ctx, w, r)
	if !ok {
		return
	}
	if !requireCaptain(ctx, w, r, game.TeamID, user.ID) {
		return
	}
	if game.Status != "scheduled" {
		apiutil.WriteError(w, http.StatusConflict, "Only a scheduled game can be canceled")
		return
	}

	updated, err := queries.CancelGame(ctx, game.ID)
	if err != nil {
		logger.Error().Err(err).Int64("game_id", game.ID).Msg("Failed to cancel game")
		http.Error(w, "Failed to cancel game", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("game_id", game.ID).Msg("Game canceled")
	_ = apiutil.WriteJSON(w, http.StatusOK, gameResponseFrom(updated))
}

// GET /api/v1/games/upcoming
func HandleUpcomingGames(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	limit := int64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > 100 {
			apiutil.WriteError(w, http.StatusBadRequest, "Limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	list, err := queries.ListUpcomingGamesForUser(ctx, appdb.UpcomingGamesParams{
		UserID: user.ID,
		After:  time.Now().UTC(),
		Limit:  limit,
	})
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list upcoming games")
		http.Error(w, "Failed to list upcoming games", http.StatusInternalServerError)
		return
	}

	out := make([]gameResponse, 0, len(list))
	for _, g := range list {
		out = append(out, gameResponseFrom(g))
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"games": out})
}

func loadGame(ctx context.Context, w http.ResponseWriter, r *http.Request) (appdb.Game, bool) {
	logger := log.Ctx(r.Context())

	gameID, err := strconv.ParseInt(r.PathValue(gameIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid game id")
		return appdb.Game{}, false
	}

	game, err := queries.GetGameByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Game not found")
			return appdb.Game{}, false
		}
		logger.Error().Err(err).Int64("game_id", gameID).Msg("Failed to load game")
		http.Error(w, "Failed to load game", http.StatusInternalServerError)
		return appdb.Game{}, false
	}
	return game, true
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
