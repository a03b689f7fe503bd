// internal/api/series/handlers.go
package series

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
	seriesQueryTimeout = 5 * time.Second
	seriesIDPathKey    = "id"
	teamIDQueryKey     = "team_id"
	seriesDateLayout   = "2006-01-02"
)

var queries *appdb.Queries

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queries = database.Queries
}

type seriesRequest struct {
	TeamID   int64  `json:"teamId"`
	Name     string `json:"name"`
	Opponent string `json:"opponent"`
	StartsOn string `json:"startsOn,omitempty"`
	EndsOn   string `json:"endsOn,omitempty"`
}

type seriesResponse struct {
	ID       int64  `json:"id"`
	TeamID   int64  `json:"teamId"`
	Name     string `json:"name"`
	Opponent string `json:"opponent"`
	StartsOn string `json:"startsOn,omitempty"`
	EndsOn   string `json:"endsOn,omitempty"`
}

func seriesResponseFrom(s appdb.GameSeries) seriesResponse {
	out := seriesResponse{
		ID:       s.ID,
		TeamID:   s.TeamID,
		Name:     s.Name,
		Opponent: s.Opponent,
	}
	if s.StartsOn.Valid {
		out.StartsOn = s.StartsOn.Time.Format(seriesDateLayout)
	}
	if s.EndsOn.Valid {
		out.EndsOn = s.EndsOn.Time.Format(seriesDateLayout)
	}
	return out
}

// POST /api/v1/series
func HandleSeriesCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	var req seriesRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.TeamID == 0 || req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Team id and series name are required")
		return
	}

	startsOn, err := parseOptionalDate(req.StartsOn)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid start date")
		return
	}
	endsOn, err := parseOptionalDate(req.EndsOn)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid end date")
		return
	}
	if startsOn.Valid && endsOn.Valid && endsOn.Time.Before(startsOn.Time) {
		apiutil.WriteError(w, http.StatusBadRequest, "Series cannot end before it starts")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), seriesQueryTimeout)
	defer cancel()

	captain, err := teams.IsCaptain(ctx, queries, req.TeamID, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", req.TeamID).Msg("Failed to check captaincy")
		http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
		return
	}
	if !captain {
		apiutil.WriteError(w, http.StatusForbidden, "Only the team captain may do this")
		return
	}

	created, err := queries.CreateSeries(ctx, appdb.CreateSeriesParams{
		TeamID:   req.TeamID,
		Name:     req.Name,
		Opponent: req.Opponent,
		StartsOn: startsOn,
		EndsOn:   endsOn,
	})
	if err != nil {
		logger.Error().Err(err).Int64("team_id", req.TeamID).Msg("Failed to create series")
		http.Error(w, "Failed to create series", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("series_id", created.ID).Int64("team_id", req.TeamID).Msg("Series created")
	_ = apiutil.WriteJSON(w, http.StatusCreated, seriesResponseFrom(created))
}

// GET /api/v1/series?team_id=...
func HandleSeriesList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if apiutil.RequireVerifiedUser(w, r) == nil {
		return
	}

	teamID, err := strconv.ParseInt(r.URL.Query().Get(teamIDQueryKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "A valid team_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), seriesQueryTimeout)
	defer cancel()

	list, err := queries.ListSeriesByTeam(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to list series")
		http.Error(w, "Failed to list series", http.StatusInternalServerError)
		return
	}

	out := make([]seriesResponse, 0, len(list))
	for _, s := range list {
		out = append(out, seriesResponseFrom(s))
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"series": out})
}

// GET /api/v1/series/{id}
func HandleSeriesGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if apiutil.RequireVerifiedUser(w, r) == nil {
		return
	}

	seriesID, err := strconv.ParseInt(r.PathValue(seriesIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid series id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), seriesQueryTimeout)
	defer cancel()

	found, err := queries.GetSeriesByID(ctx, seriesID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Series not found")
			return
		}
		logger.Error().Err(err).Int64("series_id", seriesID).Msg("Failed to load series")
		http.Error(w, "Failed to load series", http.StatusInternalServerError)
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, seriesResponseFrom(found))
}

// PUT /api/v1/series/{id}
func HandleSeriesUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	seriesID, err := strconv.ParseInt(r.PathValue(seriesIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid series id")
		return
	}

	var req seriesRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Series name is required")
		return
	}

	startsOn, err := parseOptionalDate(req.StartsOn)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid start date")
		return
	}
	endsOn, err := parseOptionalDate(req.EndsOn)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid end date")
		return
	}
	if startsOn.Valid && endsOn.Valid && endsOn.Time.Before(startsOn.Time) {
		apiutil.WriteError(w, http.StatusBadRequest, "Series cannot end before it starts")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), seriesQueryTimeout)
	defer cancel()

	found, err := queries.GetSeriesByID(ctx, seriesID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Series not found")
			return
		}
		logger.Error().Err(err).Int64("series_id", seriesID).Msg("Failed to load series")
		http.Error(w, "Failed to load series", http.StatusInternalServerError)
		return
	}

	captain, err := teams.IsCaptain(ctx, queries, found.TeamID, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", found.TeamID).Msg("Failed to check captaincy")
		http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
		return
	}
	if !captain {
		apiutil.WriteError(w, http.StatusForbidden, "Only the team captain may do this")
		return
	}

	updated, err := queries.UpdateSeries(ctx, appdb.UpdateSeriesParams{
		ID:       seriesID,
		Name:     req.Name,
		Opponent: req.Opponent,
		StartsOn: startsOn,
		EndsOn:   endsOn,
	})
	if err != nil {
		logger.Error().Err(err).Int64("series_id", seriesID).Msg("Failed to update series")
		http.Error(w, "Failed to update series", http.StatusInternalServerError)
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, seriesResponseFrom(updated))
}

// DELETE /api/v1/series/{id}
func HandleSeriesDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireVerifiedUser(w, r)
	if user == nil {
		return
	}

	seriesID, err := strconv.ParseInt(r.PathValue(seriesIDPathKey), 10, 64)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid series id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), seriesQueryTimeout)
	defer cancel()

	found, err := queries.GetSeriesByID(ctx, seriesID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Series not found")
			return
		}
		logger.Error().Err(err).Int64("series_id", seriesID).Msg("Failed to load series")
		http.Error(w, "Failed to load series", http.StatusInternalServerError)
		return
	}

	captain, err := teams.IsCaptain(ctx, queries, found.TeamID, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", found.TeamID).Msg("Failed to check captaincy")
		http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
		return
	}
	if !captain {
		apiutil.WriteError(w, http.StatusForbidden, "Only the team captain may do this")
		return
	}

	if err := queries.DeleteSeries(ctx, seriesID); err != nil {
		logger.Error().Err(err).Int64("series_id", seriesID).Msg("Failed to delete series")
		http.Error(w, "Failed to delete series", http.StatusInternalServerError)
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Series deleted"})
}

func parseOptionalDate(value string) (sql.NullTime, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullTime{}, nil
	}
	parsed, err := time.Parse(seriesDateLayout, value)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: parsed, Valid: true}, nil
}
