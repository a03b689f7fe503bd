// internal/invitations/invitation.go

// Package invitations implements the team invitation lifecycle: offers are
// created pending, transmitted by opaque token, and resolved exactly once to
// accepted, declined, or expired. The service is the single authority for
// resolving an invitation and owns the authorization, freshness, and
// duplicate-membership rules that span the store and the team directory.
package invitations

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of an invitation. Transitions are monotonic:
// pending may move to any terminal state, terminal states never change.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusDeclined || s == StatusExpired
}

// Invitation is the store's view of one offer. The token is the only external
// handle; the numeric row id never leaves the data layer.
type Invitation struct {
	Token             string
	TeamID            int64
	TeamName          string
	InvitedEmail      string
	InvitedRole       string
	InvitedByUsername string
	Status            Status
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

// Team is the directory's team summary.
type Team struct {
	ID          int64
	Name        string
	Description string
}

// User is the identity provider's user summary.
type User struct {
	ID       int64
	Username string
	Email    string
}

// ErrDuplicateMember is returned by Directory.AddMember when a membership row
// already exists for the (team, user) pair.
var ErrDuplicateMember = errors.New("user is already a team member")

// Store is the durable record of invitation offers keyed by token.
// FindByToken returns (nil, nil) when no row matches.
type Store interface {
	FindByToken(ctx context.Context, token string) (*Invitation, error)
	FindByEmail(ctx context.Context, email string) ([]Invitation, error)
	// UpdateStatusFrom performs a compare-and-swap status transition and
	// reports whether the row was still in the expected source status.
	UpdateStatusFrom(ctx context.Context, token string, from, to Status) (bool, error)
}

// Directory owns Team and TeamMember records.
// TeamByID returns (nil, nil) when the team does not exist.
type Directory interface {
	TeamByID(ctx context.Context, id int64) (*Team, error)
	IsMember(ctx context.Context, teamID, userID int64) (bool, error)
	AddMember(ctx context.Context, teamID, userID int64, role string) error
}

// Identity resolves an acting user id to a user record.
// UserByID returns (nil, nil) when the user does not exist.
type Identity interface {
	UserByID(ctx context.Context, id int64) (*User, error)
}

// ValidRole reports whether the role may be offered in an invitation.
func ValidRole(role string) bool {
	switch role {
	case "captain", "player":
		return true
	}
	return false
}
