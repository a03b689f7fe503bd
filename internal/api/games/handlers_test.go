package games

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/matchdayhq/matchday/internal/api/authz"
	appdb "github.com/matchdayhq/matchday/internal/db"
	"github.com/matchdayhq/matchday/internal/testutil"
)

type gameTestEnv struct {
	database *appdb.DB
	mux      *http.ServeMux
	captain  *authz.AuthUser
	player   *authz.AuthUser
	teamID   int64
	seriesID int64
}

func newGameTestEnv(t *testing.T) *gameTestEnv {
	t.Helper()

	database := testutil.NewTestDB(t)
	InitHandlers(database)
	ctx := context.Background()

	captain, err := database.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Email: "captain@example.com", Username: "captain", PasswordHash: "x", VerificationToken: "t1",
	})
	if err != nil {
		t.Fatalf("create captain: %v", err)
	}
	player, err := database.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Email: "player@example.com", Username: "player", PasswordHash: "x", VerificationToken: "t2",
	})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}

	team, err := database.Queries.CreateTeam(ctx, appdb.CreateTeamParams{Name: "Rovers", CreatedBy: captain.ID})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	for userID, role := range map[int64]string{captain.ID: "captain", player.ID: "player"} {
		if err := database.Queries.AddTeamMember(ctx, appdb.AddTeamMemberParams{
			TeamID: team.ID, UserID: userID, Role: role,
		}); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	series, err := database.Queries.CreateSeries(ctx, appdb.CreateSeriesParams{
		TeamID: team.ID, Name: "Spring League", Opponent: "Various",
	})
	if err != nil {
		t.Fatalf("create series: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/games", HandleGameCreate)
	mux.HandleFunc("GET /api/v1/games", HandleGameList)
	mux.HandleFunc("GET /api/v1/games/upcoming", HandleUpcomingGames)
	mux.HandleFunc("GET /api/v1/games/{id}", HandleGameGet)
	mux.HandleFunc("POST /api/v1/games/{id}/result", HandleGameResult)
	mux.HandleFunc("POST /api/v1/games/{id}/cancel", HandleGameCancel)

	return &gameTestEnv{
		database: database,
		mux:      mux,
		captain:  &authz.AuthUser{ID: captain.ID, Email: captain.Email, Username: captain.Username, IsVerified: true},
		player:   &authz.AuthUser{ID: player.ID, Email: player.Email, Username: player.Username, IsVerified: true},
		teamID:   team.ID,
		seriesID: series.ID,
	}
}

func (env *gameTestEnv) do(t *testing.T, method, path string, body any, user *authz.AuthUser) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != nil {
		req = req.WithContext(authz.ContextWithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func (env *gameTestEnv) createGame(t *testing.T, scheduledAt time.Time) int64 {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/v1/games", map[string]any{
		"seriesId":    env.seriesID,
		"opponent":    "United",
		"scheduledAt": scheduledAt.Format(time.RFC3339),
		"location":    "City Park",
		"isHome":      true,
	}, env.captain)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create game: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode game: %v", err)
	}
	return resp.ID
}

func TestGameCreateRequiresCaptain(t *testing.T) {
	env := newGameTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/games", map[string]any{
		"seriesId":    env.seriesID,
		"opponent":    "United",
		"scheduledAt": time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339),
	}, env.player)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGameCreateRejectsBadTimestamp(t *testing.T) {
	env := newGameTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/games", map[string]any{
		"seriesId":    env.seriesID,
		"opponent":    "United",
		"scheduledAt": "next tuesday",
	}, env.captain)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGameResultTransitions(t *testing.T) {
	env := newGameTestEnv(t)
	gameID := env.createGame(t, time.Now().UTC().Add(48*time.Hour))
	path := "/api/v1/games/" + strconv.FormatInt(gameID, 10) + "/result"

	rec := env.do(t, http.MethodPost, path, map[string]int{"homeScore": 3, "awayScore": 1}, env.captain)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status    string `json:"status"`
		HomeScore *int64 `json:"homeScore"`
		AwayScore *int64 `json:"awayScore"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode game: %v", err)
	}
	if resp.Status != "played" {
		t.Fatalf("expected played status, got %q", resp.Status)
	}
	if resp.HomeScore == nil || *resp.HomeScore != 3 || resp.AwayScore == nil || *resp.AwayScore != 1 {
		t.Fatalf("unexpected scores %v/%v", resp.HomeScore, resp.AwayScore)
	}

	// A played game cannot be scored twice.
	rec = env.do(t, http.MethodPost, path, map[string]int{"homeScore": 9, "awayScore": 9}, env.captain)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeat result, got %d", rec.Code)
	}
}

func TestGameCancel(t *testing.T) {
	env := newGameTestEnv(t)
	gameID := env.createGame(t, time.Now().UTC().Add(48*time.Hour))
	path := "/api/v1/games/" + strconv.FormatInt(gameID, 10) + "/cancel"

	rec := env.do(t, http.MethodPost, path, nil, env.player)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-captain, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, path, nil, env.captain)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, path, nil, env.captain)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for canceling twice, got %d", rec.Code)
	}
}

func TestUpcomingGamesExcludesPastAndCanceled(t *testing.T) {
	env := newGameTestEnv(t)

	upcomingID := env.createGame(t, time.Now().UTC().Add(24*time.Hour))
	env.createGame(t, time.Now().UTC().Add(-24*time.Hour))
	canceledID := env.createGame(t, time.Now().UTC().Add(72*time.Hour))

	cancelPath := "/api/v1/games/" + strconv.FormatInt(canceledID, 10) + "/cancel"
	if rec := env.do(t, http.MethodPost, cancelPath, nil, env.captain); rec.Code != http.StatusOK {
		t.Fatalf("cancel game: expected 200, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/games/upcoming", nil, env.player)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Games []struct {
			ID int64 `json:"id"`
		} `json:"games"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode games: %v", err)
	}
	if len(resp.Games) != 1 || resp.Games[0].ID != upcomingID {
		t.Fatalf("expected only the upcoming scheduled game, got %+v", resp.Games)
	}
}

func TestGameGetNotFound(t *testing.T) {
	env := newGameTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/games/999", nil, env.player)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
