// internal/invitations/store_sql.go
package invitations

import (
	"context"
	"database/sql"
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"

	appdb "github.com/matchdayhq/matchday/internal/db"
)

// SQLStore adapts the database query layer to the Store contract.
type SQLStore struct {
	queries *appdb.Queries
}

func NewSQLStore(queries *appdb.Queries) *SQLStore {
	return &SQLStore{queries: queries}
}

func (s *SQLStore) FindByToken(ctx context.Context, token string) (*Invitation, error) {
	row, err := s.queries.GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	inv := invitationFromRow(row)
	return &inv, nil
}

func (s *SQLStore) FindByEmail(ctx context.Context, email string) ([]Invitation, error) {
	rows, err := s.queries.ListInvitationsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	invs := make([]Invitation, 0, len(rows))
	for _, row := range rows {
		invs = append(invs, invitationFromRow(row))
	}
	return invs, nil
}

func (s *SQLStore) UpdateStatusFrom(ctx context.Context, token string, from, to Status) (bool, error) {
	return s.queries.UpdateInvitationStatusFrom(ctx, token, string(from), string(to))
}

func invitationFromRow(row appdb.TeamInvitation) Invitation {
	return Invitation{
		Token:             row.Token,
		TeamID:            row.TeamID,
		TeamName:          row.TeamName,
		InvitedEmail:      row.InvitedEmail,
		InvitedRole:       row.InvitedRole,
		InvitedByUsername: row.InvitedByUsername,
		Status:            Status(row.Status),
		ExpiresAt:         row.ExpiresAt,
		CreatedAt:         row.CreatedAt,
	}
}

// SQLDirectory adapts the database query layer to the Directory contract.
type SQLDirectory struct {
	queries *appdb.Queries
}

func NewSQLDirectory(queries *appdb.Queries) *SQLDirectory {
	return &SQLDirectory{queries: queries}
}

func (d *SQLDirectory) TeamByID(ctx context.Context, id int64) (*Team, error) {
	row, err := d.queries.GetTeamByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &Team{ID: row.ID, Name: row.Name, Description: row.Description}, nil
}

func (d *SQLDirectory) IsMember(ctx context.Context, teamID, userID int64) (bool, error) {
	return d.queries.IsTeamMember(ctx, teamID, userID)
}

func (d *SQLDirectory) AddMember(ctx context.Context, teamID, userID int64, role string) error {
	err := d.queries.AddTeamMember(ctx, appdb.AddTeamMemberParams{
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	})
	if isUniqueViolation(err) {
		return ErrDuplicateMember
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// SQLIdentity adapts the database query layer to the Identity contract.
type SQLIdentity struct {
	queries *appdb.Queries
}

func NewSQLIdentity(queries *appdb.Queries) *SQLIdentity {
	return &SQLIdentity{queries: queries}
}

func (i *SQLIdentity) UserByID(ctx context.Context, id int64) (*User, error) {
	row, err := i.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &User{ID: row.ID, Username: row.Username, Email: row.Email}, nil
}
