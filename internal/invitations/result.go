// internal/invitations/result.go
package invitations

import (
	"fmt"
	"time"
)

// Outcome tags a resolution result. Failures are returned as data, never as
// errors: lower-layer failures are downgraded to OutcomeUnexpected and the
// HTTP adapter decides status codes from the tag alone.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeInvalidState
	OutcomeExpired
	OutcomeUnauthorized
	OutcomeConflict
	OutcomeUnexpected
)

const (
	msgInvitationNotFound = "Invitation not found"
	msgInvitationExpired  = "Invitation has expired"
	msgUserNotFound       = "User not found"
	msgTeamNotFound       = "Team not found"
	msgAlreadyMember      = "You are already a member of this team"
	msgUnknownError       = "Unknown error occurred"

	// Accept and decline answer the addressee check identically.
	msgUnauthorized = "You are not authorized to accept this invitation"
)

func msgInvalidState(status Status) string {
	return fmt.Sprintf("Invitation is no longer valid. Current status: %s", status)
}

// Result is the common half of every operation result.
type Result struct {
	Outcome Outcome
	Message string
}

// Success reports whether the operation resolved without failure.
func (r Result) Success() bool { return r.Outcome == OutcomeOK }

func fail(outcome Outcome, message string) Result {
	return Result{Outcome: outcome, Message: message}
}

func unexpected(err error) Result {
	message := msgUnknownError
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return Result{Outcome: OutcomeUnexpected, Message: message}
}

// InvitationView is the externally visible shape of an invitation.
// InvitedEmail is populated on lookups but omitted from accept and decline
// responses.
type InvitationView struct {
	Token             string    `json:"token"`
	TeamID            int64     `json:"teamId"`
	TeamName          string    `json:"teamName"`
	InvitedEmail      string    `json:"invitedEmail,omitempty"`
	InvitedRole       string    `json:"invitedRole"`
	InvitedByUsername string    `json:"invitedByUsername"`
	Status            string    `json:"status"`
	ExpiresAt         time.Time `json:"expiresAt"`
	CreatedAt         time.Time `json:"createdAt"`
}

type TeamView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AcceptResult struct {
	Result
	Invitation *InvitationView
	Team       *TeamView
	User       *UserView
}

type DeclineResult struct {
	Result
	Invitation *InvitationView
}

type LookupResult struct {
	Result
	Invitation *InvitationView
}

type ListResult struct {
	Result
	Invitations []InvitationView
}

// viewOf maps an invitation to its external shape. The status override lets
// resolutions report the post-transition state without a re-read.
func viewOf(inv *Invitation, status Status, includeEmail bool) *InvitationView {
	view := &InvitationView{
		Token:             inv.Token,
		TeamID:            inv.TeamID,
		TeamName:          inv.TeamName,
		InvitedRole:       inv.InvitedRole,
		InvitedByUsername: inv.InvitedByUsername,
		Status:            string(status),
		ExpiresAt:         inv.ExpiresAt,
		CreatedAt:         inv.CreatedAt,
	}
	if includeEmail {
		view.InvitedEmail = inv.InvitedEmail
	}
	return view
}
