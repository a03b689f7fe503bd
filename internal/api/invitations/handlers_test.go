package invitations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/matchdayhq/matchday/internal/api/authz"
	"github.com/matchdayhq/matchday/internal/config"
	appdb "github.com/matchdayhq/matchday/internal/db"
	"github.com/matchdayhq/matchday/internal/invitations"
	"github.com/matchdayhq/matchday/internal/testutil"
)

type testEnv struct {
	database *appdb.DB
	mux      *http.ServeMux
	captain  *authz.AuthUser
	invitee  *authz.AuthUser
	teamID   int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := testutil.NewTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.App.BaseURL = "http://localhost:8080"
	cfg.Invitations.ExpiryDays = 7

	svc := invitations.NewService(
		invitations.NewSQLStore(database.Queries),
		invitations.NewSQLDirectory(database.Queries),
		invitations.NewSQLIdentity(database.Queries),
	)
	InitHandlers(database, cfg, svc, nil)

	captainRow, err := database.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Email:             "alice@example.com",
		Username:          "alice",
		PasswordHash:      "x",
		VerificationToken: "tok-alice",
	})
	if err != nil {
		t.Fatalf("create captain: %v", err)
	}
	inviteeRow, err := database.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Email:             "bob@x.com",
		Username:          "bob",
		PasswordHash:      "x",
		VerificationToken: "tok-bob",
	})
	if err != nil {
		t.Fatalf("create invitee: %v", err)
	}

	team, err := database.Queries.CreateTeam(ctx, appdb.CreateTeamParams{
		Name:      "Rovers",
		CreatedBy: captainRow.ID,
	})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if err := database.Queries.AddTeamMember(ctx, appdb.AddTeamMemberParams{
		TeamID: team.ID,
		UserID: captainRow.ID,
		Role:   "captain",
	}); err != nil {
		t.Fatalf("add captain member: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/team-invitations/send", HandleInvitationSend)
	mux.HandleFunc("GET /api/v1/team-invitations/team/{teamId}", HandleInvitationListByTeam)
	mux.HandleFunc("GET /api/v1/team-invitations/my-invitations", HandleMyInvitations)
	mux.HandleFunc("GET /api/v1/team-invitations/token/{token}", HandleInvitationLookup)
	mux.HandleFunc("POST /api/v1/team-invitations/accept/{token}", HandleInvitationAccept)
	mux.HandleFunc("POST /api/v1/team-invitations/decline/{token}", HandleInvitationDecline)
	mux.HandleFunc("DELETE /api/v1/team-invitations/{teamId}/{invitationId}", HandleInvitationDelete)
	mux.HandleFunc("POST /api/v1/team-invitations/service/accept/{token}", HandleServiceAccept)
	mux.HandleFunc("GET /api/v1/team-invitations/service/token/{token}", HandleServiceLookup)

	return &testEnv{
		database: database,
		mux:      mux,
		captain: &authz.AuthUser{
			ID: captainRow.ID, Email: captainRow.Email, Username: captainRow.Username, IsVerified: true,
		},
		invitee: &authz.AuthUser{
			ID: inviteeRow.ID, Email: inviteeRow.Email, Username: inviteeRow.Username, IsVerified: true,
		},
		teamID: team.ID,
	}
}

func (env *testEnv) do(t *testing.T, method, path string, body any, user *authz.AuthUser) *httptest.ResponseRecorder {
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

func (env *testEnv) seedInvitation(t *testing.T, token, email string, expiresAt time.Time) appdb.TeamInvitation {
	t.Helper()

	inv, err := env.database.Queries.CreateInvitation(context.Background(), appdb.CreateInvitationParams{
		Token:             token,
		TeamID:            env.teamID,
		TeamName:          "Rovers",
		InvitedEmail:      email,
		InvitedRole:       "player",
		InvitedByUsername: "alice",
		ExpiresAt:         expiresAt,
	})
	if err != nil {
		t.Fatalf("seed invitation: %v", err)
	}
	return inv
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestSendInvitation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/send", map[string]any{
		"teamId": env.teamID,
		"email":  "bob@x.com",
		"role":   "player",
	}, env.captain)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["status"] != "pending" {
		t.Fatalf("expected pending status, got %v", body["status"])
	}
	if body["token"] == "" || body["token"] == nil {
		t.Fatal("expected a generated token")
	}
	if body["teamName"] != "Rovers" {
		t.Fatalf("expected denormalized team name, got %v", body["teamName"])
	}
	if body["invitedByUsername"] != "alice" {
		t.Fatalf("expected inviter username, got %v", body["invitedByUsername"])
	}
}

func TestSendInvitationRequiresCaptain(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/send", map[string]any{
		"teamId": env.teamID,
		"email":  "bob@x.com",
		"role":   "player",
	}, env.invitee)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestSendInvitationRejectsBadRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/send", map[string]any{
		"teamId": env.teamID,
		"email":  "bob@x.com",
		"role":   "coach",
	}, env.captain)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSendInvitationDuplicatePending(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/send", map[string]any{
		"teamId": env.teamID,
		"email":  "bob@x.com",
		"role":   "player",
	}, env.captain)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAcceptInvitation(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/accept/abc123", nil, env.invitee)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %v", body)
	}
	if body["message"] != "Invitation accepted successfully" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	data := body["data"].(map[string]any)
	inv := data["invitation"].(map[string]any)
	if inv["status"] != "accepted" {
		t.Fatalf("expected accepted status, got %v", inv["status"])
	}
	if _, present := inv["invitedEmail"]; present {
		t.Fatal("expected invited email to be omitted from accept response")
	}

	member, err := env.database.Queries.GetTeamMember(context.Background(), env.teamID, env.invitee.ID)
	if err != nil {
		t.Fatalf("expected membership row: %v", err)
	}
	if member.Role != "player" {
		t.Fatalf("expected invited role on membership, got %q", member.Role)
	}
}

func TestAcceptInvitationUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/accept/nope", nil, env.invitee)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Invitation not found" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestAcceptInvitationWrongUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "someoneelse@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/accept/abc123", nil, env.invitee)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "You are not authorized to accept this invitation" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	if _, err := env.database.Queries.GetTeamMember(context.Background(), env.teamID, env.invitee.ID); err == nil {
		t.Fatal("expected no membership row after unauthorized accept")
	}
}

func TestAcceptInvitationExpired(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(-time.Hour))

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/accept/abc123", nil, env.invitee)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Invitation has expired" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	// The lazy flip persisted.
	inv, err := env.database.Queries.GetInvitationByToken(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("get invitation: %v", err)
	}
	if inv.Status != "expired" {
		t.Fatalf("expected persisted expired status, got %q", inv.Status)
	}
}

func TestAcceptInvitationRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/accept/abc123", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDeclineInvitation(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/decline/abc123", nil, env.invitee)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["message"] != "Invitation declined successfully" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	if _, err := env.database.Queries.GetTeamMember(context.Background(), env.teamID, env.invitee.ID); err == nil {
		t.Fatal("expected no membership row after decline")
	}
}

func TestLookupInvitationIncludesEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodGet, "/api/v1/team-invitations/token/abc123", nil, env.invitee)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	inv := data["invitation"].(map[string]any)
	if inv["invitedEmail"] != "bob@x.com" {
		t.Fatalf("expected invited email in lookup, got %v", inv["invitedEmail"])
	}
}

func TestLookupInvitationRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodGet, "/api/v1/team-invitations/token/abc123", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "invitedEmail") {
		t.Fatal("unauthenticated lookup must not leak the invitation")
	}
}

func TestLookupInvitationNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/team-invitations/token/nope", nil, env.invitee)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMyInvitationsFiltersByEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "mine-1", "bob@x.com", time.Now().UTC().Add(24*time.Hour))
	env.seedInvitation(t, "mine-2", "bob@x.com", time.Now().UTC().Add(24*time.Hour))
	env.seedInvitation(t, "other", "carol@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodGet, "/api/v1/team-invitations/my-invitations", nil, env.invitee)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["message"] != "Found 2 invitations" {
		t.Fatalf("unexpected message %v", body["message"])
	}
	data := body["data"].(map[string]any)
	list := data["invitations"].([]any)
	if len(list) != 2 {
		t.Fatalf("expected 2 invitations, got %d", len(list))
	}
}

func TestListByTeamRequiresCaptain(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodGet, "/api/v1/team-invitations/team/1", nil, env.invitee)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/team-invitations/team/1", nil, env.captain)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	list := body["invitations"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 invitation, got %d", len(list))
	}
}

func TestDeleteInvitation(t *testing.T) {
	env := newTestEnv(t)
	inv := env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	path := "/api/v1/team-invitations/1/" + strconv.FormatInt(inv.ID, 10)
	rec := env.do(t, http.MethodDelete, path, nil, env.captain)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, path, nil, env.captain)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestServiceAcceptAlwaysAnswers200(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/team-invitations/service/accept/nope", nil, env.invitee)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 envelope, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("expected failed envelope, got %v", body)
	}
	if body["message"] != "Invitation not found" {
		t.Fatalf("unexpected message %v", body["message"])
	}
	if _, present := body["data"]; present {
		t.Fatal("expected no data on failed envelope")
	}
}

func TestServiceLookupSuccessEnvelope(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodGet, "/api/v1/team-invitations/service/token/abc123", nil, env.invitee)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %v", body)
	}
	if body["message"] != "Invitation retrieved successfully" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestServiceLookupRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvitation(t, "abc123", "bob@x.com", time.Now().UTC().Add(24*time.Hour))

	rec := env.do(t, http.MethodGet, "/api/v1/team-invitations/service/token/abc123", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
