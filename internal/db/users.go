// internal/db/users.go
package db

import (
	"context"
	"database/sql"
	"time"
)

type User struct {
	ID                int64
	Email             string
	Username          string
	PasswordHash      string
	Phone             sql.NullString
	IsVerified        bool
	IsAdmin           bool
	IsActive          bool
	VerificationToken sql.NullString
	CreatedAt         time.Time
}

const userColumns = `id, email, username, password_hash, phone, is_verified, is_admin, is_active, verification_token, created_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Phone,
		&u.IsVerified, &u.IsAdmin, &u.IsActive, &u.VerificationToken, &u.CreatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	Email             string
	Username          string
	PasswordHash      string
	Phone             sql.NullString
	VerificationToken string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, password_hash, phone, verification_token)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Email, arg.Username, arg.PasswordHash, arg.Phone, arg.VerificationToken,
	)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// VerifyUserByToken marks the user holding the verification token as verified
// and clears the token. It reports whether a matching user existed.
func (q *Queries) VerifyUserByToken(ctx context.Context, token string) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE users
		SET is_verified = 1, verification_token = NULL
		WHERE verification_token = ?`,
		token,
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

func (q *Queries) SetUserActive(ctx context.Context, id int64, active bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id)
	return err
}

func (q *Queries) SetUserAdmin(ctx context.Context, id int64, admin bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET is_admin = ? WHERE id = ?`, admin, id)
	return err
}

type ListUsersParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY id
		LIMIT ? OFFSET ?`,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Phone,
			&u.IsVerified, &u.IsAdmin, &u.IsActive, &u.VerificationToken, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
