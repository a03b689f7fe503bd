// internal/invitations/service.go
package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Service resolves invitations by token. It holds no state of its own beyond
// the injected collaborators and a clock.
type Service struct {
	store     Store
	directory Directory
	identity  Identity
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, directory Directory, identity Identity, opts ...Option) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		identity:  identity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accept resolves an invitation as accepted on behalf of actingUserID.
// Checks run strictly in order; each failure short-circuits, and nothing is
// written before the first failing check. The one exception is lazy expiry:
// discovering a stale pending invitation flips it to expired before failing.
func (s *Service) Accept(ctx context.Context, token string, actingUserID int64) AcceptResult {
	inv, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return AcceptResult{Result: unexpected(err)}
	}
	if inv == nil {
		return AcceptResult{Result: fail(OutcomeNotFound, msgInvitationNotFound)}
	}

	if inv.Status != StatusPending {
		return AcceptResult{Result: fail(OutcomeInvalidState, msgInvalidState(inv.Status))}
	}

	expired, err := s.checkAndExpire(ctx, inv)
	if err != nil {
		return AcceptResult{Result: unexpected(err)}
	}
	if expired {
		return AcceptResult{Result: fail(OutcomeExpired, msgInvitationExpired)}
	}

	user, err := s.identity.UserByID(ctx, actingUserID)
	if err != nil {
		return AcceptResult{Result: unexpected(err)}
	}
	if user == nil {
		return AcceptResult{Result: fail(OutcomeNotFound, msgUserNotFound)}
	}

	// Authorization is a case-sensitive exact match on the invited email.
	if user.Email != inv.InvitedEmail {
		return AcceptResult{Result: fail(OutcomeUnauthorized, msgUnauthorized)}
	}

	member, err := s.directory.IsMember(ctx, inv.TeamID, actingUserID)
	if err != nil {
		return AcceptResult{Result: unexpected(err)}
	}
	if member {
		return AcceptResult{Result: fail(OutcomeConflict, msgAlreadyMember)}
	}

	team, err := s.directory.TeamByID(ctx, inv.TeamID)
	if err != nil {
		return AcceptResult{Result: unexpected(err)}
	}
	if team == nil {
		return AcceptResult{Result: fail(OutcomeNotFound, msgTeamNotFound)}
	}

	// Membership is written before the status flip. A retried accept then
	// hits the membership conflict check instead of re-flipping an already
	// accepted invitation. There is no compensating transaction between the
	// two writes; a failure in between leaves the member added with the
	// invitation still pending, surfaced as a conflict on retry.
	if err := s.directory.AddMember(ctx, inv.TeamID, actingUserID, inv.InvitedRole); err != nil {
		if errors.Is(err, ErrDuplicateMember) {
			return AcceptResult{Result: fail(OutcomeConflict, msgAlreadyMember)}
		}
		return AcceptResult{Result: unexpected(err)}
	}

	ok, err := s.store.UpdateStatusFrom(ctx, token, StatusPending, StatusAccepted)
	if err != nil {
		return AcceptResult{Result: unexpected(err)}
	}
	if !ok {
		// Lost the transition race; report whatever status won.
		return AcceptResult{Result: s.currentStateFailure(ctx, token)}
	}

	log.Ctx(ctx).Info().
		Str("token", token).
		Int64("team_id", inv.TeamID).
		Int64("user_id", actingUserID).
		Str("role", inv.InvitedRole).
		Msg("Invitation accepted")

	return AcceptResult{
		Result:     Result{Outcome: OutcomeOK, Message: "Invitation accepted successfully"},
		Invitation: viewOf(inv, StatusAccepted, false),
		Team:       &TeamView{ID: team.ID, Name: team.Name, Description: team.Description},
		User:       &UserView{ID: user.ID, Username: user.Username, Email: user.Email},
	}
}

// Decline resolves an invitation as declined on behalf of actingUserID.
// Unlike Accept, Decline does not re-check expires_at: a pending invitation
// past its deadline can still be declined until something else flips it.
func (s *Service) Decline(ctx context.Context, token string, actingUserID int64) DeclineResult {
	inv, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return DeclineResult{Result: unexpected(err)}
	}
	if inv == nil {
		return DeclineResult{Result: fail(OutcomeNotFound, msgInvitationNotFound)}
	}

	if inv.Status != StatusPending {
		return DeclineResult{Result: fail(OutcomeInvalidState, msgInvalidState(inv.Status))}
	}

	user, err := s.identity.UserByID(ctx, actingUserID)
	if err != nil {
		return DeclineResult{Result: unexpected(err)}
	}
	if user == nil {
		return DeclineResult{Result: fail(OutcomeNotFound, msgUserNotFound)}
	}

	if user.Email != inv.InvitedEmail {
		return DeclineResult{Result: fail(OutcomeUnauthorized, msgUnauthorized)}
	}

	ok, err := s.store.UpdateStatusFrom(ctx, token, StatusPending, StatusDeclined)
	if err != nil {
		return DeclineResult{Result: unexpected(err)}
	}
	if !ok {
		return DeclineResult{Result: s.currentStateFailure(ctx, token)}
	}

	log.Ctx(ctx).Info().
		Str("token", token).
		Int64("team_id", inv.TeamID).
		Int64("user_id", actingUserID).
		Msg("Invitation declined")

	return DeclineResult{
		Result:     Result{Outcome: OutcomeOK, Message: "Invitation declined successfully"},
		Invitation: viewOf(inv, StatusDeclined, false),
	}
}

// GetByToken returns the invitation view, flipping a stale pending invitation
// to expired on first read. Terminal invitations read back successfully with
// their current status.
func (s *Service) GetByToken(ctx context.Context, token string) LookupResult {
	inv, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return LookupResult{Result: unexpected(err)}
	}
	if inv == nil {
		return LookupResult{Result: fail(OutcomeNotFound, msgInvitationNotFound)}
	}

	if inv.Status == StatusPending {
		expired, err := s.checkAndExpire(ctx, inv)
		if err != nil {
			return LookupResult{Result: unexpected(err)}
		}
		if expired {
			return LookupResult{Result: fail(OutcomeExpired, msgInvitationExpired)}
		}
	}

	return LookupResult{
		Result:     Result{Outcome: OutcomeOK, Message: "Invitation retrieved successfully"},
		Invitation: viewOf(inv, inv.Status, true),
	}
}

// ListForEmail returns every invitation addressed to email, in any status.
// An empty list is not an error.
func (s *Service) ListForEmail(ctx context.Context, email string) ListResult {
	invs, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return ListResult{Result: unexpected(err)}
	}

	views := make([]InvitationView, 0, len(invs))
	for i := range invs {
		views = append(views, *viewOf(&invs[i], invs[i].Status, true))
	}

	return ListResult{
		Result:      Result{Outcome: OutcomeOK, Message: fmt.Sprintf("Found %d invitations", len(views))},
		Invitations: views,
	}
}

// checkAndExpire is the lazy expiry step: if the pending invitation's deadline
// has passed, it transitions the row to expired and reports true. The
// transition is conditional, so a concurrent resolution cannot be overwritten;
// either way the invitation is expired as far as the caller is concerned.
func (s *Service) checkAndExpire(ctx context.Context, inv *Invitation) (bool, error) {
	if inv.Status != StatusPending || !inv.ExpiresAt.Before(s.now()) {
		return false, nil
	}

	if _, err := s.store.UpdateStatusFrom(ctx, inv.Token, StatusPending, StatusExpired); err != nil {
		return false, err
	}
	inv.Status = StatusExpired

	log.Ctx(ctx).Info().
		Str("token", inv.Token).
		Time("expires_at", inv.ExpiresAt).
		Msg("Invitation expired on access")

	return true, nil
}

// currentStateFailure re-reads the invitation after a lost conditional update
// and reports the winning status.
func (s *Service) currentStateFailure(ctx context.Context, token string) Result {
	inv, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return unexpected(err)
	}
	if inv == nil {
		return fail(OutcomeNotFound, msgInvitationNotFound)
	}
	return fail(OutcomeInvalidState, msgInvalidState(inv.Status))
}
