// internal/db/teams.go
package db

import (
	"context"
	"database/sql"
	"time"
)

type Team struct {
	ID          int64
	Name        string
	Description string
	CreatedBy   int64
	CreatedAt   time.Time
}

type TeamMember struct {
	ID       int64
	TeamID   int64
	UserID   int64
	Role     string
	JoinedAt time.Time
}

// TeamMemberDetail joins membership rows with user identity for rosters.
type TeamMemberDetail struct {
	TeamMember
	Username string
	Email    string
}

const teamColumns = `id, name, description, created_by, created_at`

func scanTeam(row *sql.Row) (Team, error) {
	var t Team
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedBy, &t.CreatedAt)
	return t, err
}

type CreateTeamParams struct {
	Name        string
	Description string
	CreatedBy   int64
}

func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) (Team, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO teams (name, description, created_by)
		VALUES (?, ?, ?)
		RETURNING `+teamColumns,
		arg.Name, arg.Description, arg.CreatedBy,
	)
	return scanTeam(row)
}

func (q *Queries) GetTeamByID(ctx context.Context, id int64) (Team, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id)
	return scanTeam(row)
}

type UpdateTeamParams struct {
	ID          int64
	Name        string
	Description string
}

func (q *Queries) UpdateTeam(ctx context.Context, arg UpdateTeamParams) (Team, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE teams SET name = ?, description = ?
		WHERE id = ?
		RETURNING `+teamColumns,
		arg.Name, arg.Description, arg.ID,
	)
	return scanTeam(row)
}

func (q *Queries) DeleteTeam(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	return err
}

func (q *Queries) ListTeamsForUser(ctx context.Context, userID int64) ([]Team, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.created_by, t.created_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = ?
		ORDER BY t.name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// TeamWithRole is a team joined with the querying user's membership role.
type TeamWithRole struct {
	Team
	Role string
}

func (q *Queries) ListTeamsWithRoleForUser(ctx context.Context, userID int64) ([]TeamWithRole, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.created_by, t.created_at, m.role
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = ?
		ORDER BY t.name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []TeamWithRole
	for rows.Next() {
		var t TeamWithRole
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedBy, &t.CreatedAt, &t.Role); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

type AddTeamMemberParams struct {
	TeamID int64
	UserID int64
	Role   string
}

func (q *Queries) AddTeamMember(ctx context.Context, arg AddTeamMemberParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES (?, ?, ?)`,
		arg.TeamID, arg.UserID, arg.Role,
	)
	return err
}

func (q *Queries) RemoveTeamMember(ctx context.Context, teamID, userID int64) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM team_members WHERE team_id = ? AND user_id = ?`,
		teamID, userID,
	)
	return err
}

func (q *Queries) GetTeamMember(ctx context.Context, teamID, userID int64) (TeamMember, error) {
	var m TeamMember
	err := q.db.QueryRowContext(ctx, `
		SELECT id, team_id, user_id, role, joined_at
		FROM team_members
		WHERE team_id = ? AND user_id = ?`,
		teamID, userID,
	).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	return m, err
}

func (q *Queries) IsTeamMember(ctx context.Context, teamID, userID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM team_members WHERE team_id = ? AND user_id = ?
		)`,
		teamID, userID,
	).Scan(&exists)
	return exists, err
}

func (q *Queries) ListTeamMembers(ctx context.Context, teamID int64) ([]TeamMemberDetail, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT m.id, m.team_id, m.user_id, m.role, m.joined_at, u.username, u.email
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = ?
		ORDER BY m.role, u.username`,
		teamID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []TeamMemberDetail
	for rows.Next() {
		var m TeamMemberDetail
		if err := rows.Scan(
			&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt, &m.Username, &m.Email,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
