// internal/db/invitations.go
package db

import (
	"context"
	"database/sql"
	"time"
)

type TeamInvitation struct {
	ID                int64
	Token             string
	TeamID            int64
	TeamName          string
	InvitedEmail      string
	InvitedRole       string
	InvitedByUsername string
	Status            string
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

const invitationColumns = `id, token, team_id, team_name, invited_email, invited_role, invited_by_username, status, expires_at, created_at`

func scanInvitation(row *sql.Row) (TeamInvitation, error) {
	var inv TeamInvitation
	err := row.Scan(
		&inv.ID, &inv.Token, &inv.TeamID, &inv.TeamName, &inv.InvitedEmail,
		&inv.InvitedRole, &inv.InvitedByUsername, &inv.Status, &inv.ExpiresAt, &inv.CreatedAt,
	)
	return inv, err
}

type CreateInvitationParams struct {
	Token             string
	TeamID            int64
	TeamName          string
	InvitedEmail      string
	InvitedRole       string
	InvitedByUsername string
	ExpiresAt         time.Time
}

func (q *Queries) CreateInvitation(ctx context.Context, arg CreateInvitationParams) (TeamInvitation, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO team_invitations
			(token, team_id, team_name, invited_email, invited_role, invited_by_username, status, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)
		RETURNING `+invitationColumns,
		arg.Token, arg.TeamID, arg.TeamName, arg.InvitedEmail,
		arg.InvitedRole, arg.InvitedByUsername, arg.ExpiresAt,
	)
	return scanInvitation(row)
}

func (q *Queries) GetInvitationByToken(ctx context.Context, token string) (TeamInvitation, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM team_invitations WHERE token = ?`,
		token,
	)
	return scanInvitation(row)
}

func (q *Queries) GetInvitationByID(ctx context.Context, id int64) (TeamInvitation, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM team_invitations WHERE id = ?`,
		id,
	)
	return scanInvitation(row)
}

// UpdateInvitationStatusFrom transitions an invitation between two statuses as
// a single conditional update. It reports whether the row was in the expected
// source status, so concurrent resolutions of the same token cannot both win.
func (q *Queries) UpdateInvitationStatusFrom(ctx context.Context, token, from, to string) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE team_invitations SET status = ?
		WHERE token = ? AND status = ?`,
		to, token, from,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (q *Queries) ListInvitationsByEmail(ctx context.Context, email string) ([]TeamInvitation, error) {
	return q.listInvitations(ctx, `
		SELECT `+invitationColumns+` FROM team_invitations
		WHERE invited_email = ?
		ORDER BY created_at DESC`,
		email,
	)
}

func (q *Queries) ListInvitationsByTeam(ctx context.Context, teamID int64) ([]TeamInvitation, error) {
	return q.listInvitations(ctx, `
		SELECT `+invitationColumns+` FROM team_invitations
		WHERE team_id = ?
		ORDER BY created_at DESC`,
		teamID,
	)
}

func (q *Queries) DeleteInvitation(ctx context.Context, teamID, id int64) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		DELETE FROM team_invitations WHERE id = ? AND team_id = ?`,
		id, teamID,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// PurgeTerminalInvitations deletes accepted, declined, and expired invitations
// created before the cutoff. Pending rows are never purged; expiry itself stays
// lazy on the read path.
func (q *Queries) PurgeTerminalInvitations(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		DELETE FROM team_invitations
		WHERE status IN ('accepted', 'declined', 'expired') AND created_at < ?`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) listInvitations(ctx context.Context, query string, args ...any) ([]TeamInvitation, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []TeamInvitation
	for rows.Next() {
		var inv TeamInvitation
		if err := rows.Scan(
			&inv.ID, &inv.Token, &inv.TeamID, &inv.TeamName, &inv.InvitedEmail,
			&inv.InvitedRole, &inv.InvitedByUsername, &inv.Status, &inv.ExpiresAt, &inv.CreatedAt,
		); err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}
