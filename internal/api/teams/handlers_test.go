package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/matchdayhq/matchday/internal/api/authz"
	appdb "github.com/matchdayhq/matchday/internal/db"
	"github.com/matchdayhq/matchday/internal/testutil"
)

type teamTestEnv struct {
	database *appdb.DB
	mux      *http.ServeMux
	alice    *authz.AuthUser
	bob      *authz.AuthUser
}

func newTeamTestEnv(t *testing.T) *teamTestEnv {
	t.Helper()

	database := testutil.NewTestDB(t)
	InitHandlers(database)
	ctx := context.Background()

	alice, err := database.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Email: "alice@example.com", Username: "alice", PasswordHash: "x", VerificationToken: "t1",
	})
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := database.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Email: "bob@example.com", Username: "bob", PasswordHash: "x", VerificationToken: "t2",
	})
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/teams", HandleTeamCreate)
	mux.HandleFunc("GET /api/v1/teams", HandleTeamList)
	mux.HandleFunc("GET /api/v1/teams/{id}", HandleTeamGet)
	mux.HandleFunc("PUT /api/v1/teams/{id}", HandleTeamUpdate)
	mux.HandleFunc("DELETE /api/v1/teams/{id}", HandleTeamDelete)
	mux.HandleFunc("GET /api/v1/teams/{id}/members", HandleTeamMembers)
	mux.HandleFunc("DELETE /api/v1/teams/{id}/members/{userId}", HandleMemberRemove)

	return &teamTestEnv{
		database: database,
		mux:      mux,
		alice:    &authz.AuthUser{ID: alice.ID, Email: alice.Email, Username: alice.Username, IsVerified: true},
		bob:      &authz.AuthUser{ID: bob.ID, Email: bob.Email, Username: bob.Username, IsVerified: true},
	}
}

func (env *teamTestEnv) do(t *testing.T, method, path string, body any, user *authz.AuthUser) *httptest.ResponseRecorder {
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

func (env *teamTestEnv) createTeam(t *testing.T, name string, user *authz.AuthUser) int64 {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/v1/teams", map[string]string{"name": name}, user)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create team: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode team: %v", err)
	}
	return resp.ID
}

func TestTeamCreateMakesCreatorCaptain(t *testing.T) {
	env := newTeamTestEnv(t)
	teamID := env.createTeam(t, "Rovers", env.alice)

	member, err := env.database.Queries.GetTeamMember(context.Background(), teamID, env.alice.ID)
	if err != nil {
		t.Fatalf("expected membership row: %v", err)
	}
	if member.Role != RoleCaptain {
		t.Fatalf("expected captain role, got %q", member.Role)
	}
}

func TestTeamCreateRequiresName(t *testing.T) {
	env := newTeamTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/teams", map[string]string{"name": "   "}, env.alice)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTeamUpdateCaptainOnly(t *testing.T) {
	env := newTeamTestEnv(t)
	teamID := env.createTeam(t, "Rovers", env.alice)
	path := "/api/v1/teams/" + strconv.FormatInt(teamID, 10)

	rec := env.do(t, http.MethodPut, path, map[string]string{"name": "Hijacked"}, env.bob)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-captain, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, path, map[string]string{"name": "Rovers FC"}, env.alice)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for captain, got %d: %s", rec.Code, rec.Body.String())
	}

	team, err := env.database.Queries.GetTeamByID(context.Background(), teamID)
	if err != nil {
		t.Fatalf("load team: %v", err)
	}
	if team.Name != "Rovers FC" {
		t.Fatalf("expected renamed team, got %q", team.Name)
	}
}

func TestTeamListScopedToMember(t *testing.T) {
	env := newTeamTestEnv(t)
	env.createTeam(t, "Alice United", env.alice)
	env.createTeam(t, "Bob City", env.bob)

	rec := env.do(t, http.MethodGet, "/api/v1/teams", nil, env.alice)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Teams []struct {
			Name string `json:"name"`
		} `json:"teams"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode teams: %v", err)
	}
	if len(resp.Teams) != 1 || resp.Teams[0].Name != "Alice United" {
		t.Fatalf("expected only alice's team, got %+v", resp.Teams)
	}
}

func TestMemberRemoveSelfLeave(t *testing.T) {
	env := newTeamTestEnv(t)
	teamID := env.createTeam(t, "Rovers", env.alice)
	ctx := context.Background()

	if err := env.database.Queries.AddTeamMember(ctx, appdb.AddTeamMemberParams{
		TeamID: teamID, UserID: env.bob.ID, Role: RolePlayer,
	}); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	path := "/api/v1/teams/" + strconv.FormatInt(teamID, 10) +
		"/members/" + strconv.FormatInt(env.bob.ID, 10)
	rec := env.do(t, http.MethodDelete, path, nil, env.bob)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for self-leave, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := env.database.Queries.GetTeamMember(ctx, teamID, env.bob.ID); err == nil {
		t.Fatal("expected membership row to be removed")
	}
}

func TestMemberRemoveByNonCaptainForbidden(t *testing.T) {
	env := newTeamTestEnv(t)
	teamID := env.createTeam(t, "Rovers", env.alice)

	if err := env.database.Queries.AddTeamMember(context.Background(), appdb.AddTeamMemberParams{
		TeamID: teamID, UserID: env.bob.ID, Role: RolePlayer,
	}); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	// Bob tries to remove the captain.
	path := "/api/v1/teams/" + strconv.FormatInt(teamID, 10) +
		"/members/" + strconv.FormatInt(env.alice.ID, 10)
	rec := env.do(t, http.MethodDelete, path, nil, env.bob)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestTeamMembersRoster(t *testing.T) {
	env := newTeamTestEnv(t)
	teamID := env.createTeam(t, "Rovers", env.alice)

	if err := env.database.Queries.AddTeamMember(context.Background(), appdb.AddTeamMemberParams{
		TeamID: teamID, UserID: env.bob.ID, Role: RolePlayer,
	}); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	path := "/api/v1/teams/" + strconv.FormatInt(teamID, 10) + "/members"
	rec := env.do(t, http.MethodGet, path, nil, env.bob)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Members []memberResponse `json:"members"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode members: %v", err)
	}
	if len(resp.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(resp.Members))
	}
}

func TestDuplicateMembershipRejected(t *testing.T) {
	env := newTeamTestEnv(t)
	teamID := env.createTeam(t, "Rovers", env.alice)
	ctx := context.Background()

	err := env.database.Queries.AddTeamMember(ctx, appdb.AddTeamMemberParams{
		TeamID: teamID, UserID: env.alice.ID, Role: RolePlayer,
	})
	if err == nil {
		t.Fatal("expected duplicate membership insert to fail")
	}
}
