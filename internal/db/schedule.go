// internal/db/schedule.go
package db

import (
	"context"
	"database/sql"
	"time"
)

type GameSeries struct {
	ID        int64
	TeamID    int64
	Name      string
	Opponent  string
	StartsOn  sql.NullTime
	EndsOn    sql.NullTime
	CreatedAt time.Time
}

type Game struct {
	ID          int64
	SeriesID    int64
	TeamID      int64
	Opponent    string
	ScheduledAt time.Time
	Location    string
	IsHome      bool
	Status      string
	HomeScore   sql.NullInt64
	AwayScore   sql.NullInt64
	CreatedAt   time.Time
}

const seriesColumns = `id, team_id, name, opponent, starts_on, ends_on, created_at`
const gameColumns = `id, series_id, team_id, opponent, scheduled_at, location, is_home, status, home_score, away_score, created_at`

func scanSeries(row *sql.Row) (GameSeries, error) {
	var s GameSeries
	err := row.Scan(&s.ID, &s.TeamID, &s.Name, &s.Opponent, &s.StartsOn, &s.EndsOn, &s.CreatedAt)
	return s, err
}

func scanGameRow(row *sql.Row) (Game, error) {
	var g Game
	err := row.Scan(
		&g.ID, &g.SeriesID, &g.TeamID, &g.Opponent, &g.ScheduledAt,
		&g.Location, &g.IsHome, &g.Status, &g.HomeScore, &g.AwayScore, &g.CreatedAt,
	)
	return g, err
}

type CreateSeriesParams struct {
	TeamID   int64
	Name     string
	Opponent string
	StartsOn sql.NullTime
	EndsOn   sql.NullTime
}

func (q *Queries) CreateSeries(ctx context.Context, arg CreateSeriesParams) (GameSeries, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO game_series (team_id, name, opponent, starts_on, ends_on)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+seriesColumns,
		arg.TeamID, arg.Name, arg.Opponent, arg.StartsOn, arg.EndsOn,
	)
	return scanSeries(row)
}

func (q *Queries) GetSeriesByID(ctx context.Context, id int64) (GameSeries, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM game_series WHERE id = ?`, id)
	return scanSeries(row)
}

func (q *Queries) ListSeriesByTeam(ctx context.Context, teamID int64) ([]GameSeries, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+seriesColumns+` FROM game_series
		WHERE team_id = ?
		ORDER BY created_at DESC`,
		teamID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []GameSeries
	for rows.Next() {
		var s GameSeries
		if err := rows.Scan(&s.ID, &s.TeamID, &s.Name, &s.Opponent, &s.StartsOn, &s.EndsOn, &s.CreatedAt); err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, rows.Err()
}

type UpdateSeriesParams struct {
	ID       int64
	Name     string
	Opponent string
	StartsOn sql.NullTime
	EndsOn   sql.NullTime
}

func (q *Queries) UpdateSeries(ctx context.Context, arg UpdateSeriesParams) (GameSeries, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE game_series
		SET name = ?, opponent = ?, starts_on = ?, ends_on = ?
		WHERE id = ?
		RETURNING `+seriesColumns,
		arg.Name, arg.Opponent, arg.StartsOn, arg.EndsOn, arg.ID,
	)
	return scanSeries(row)
}

func (q *Queries) DeleteSeries(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM game_series WHERE id = ?`, id)
	return err
}

type CreateGameParams struct {
	SeriesID    int64
	TeamID      int64
	Opponent    string
	ScheduledAt time.Time
	Location    string
	IsHome      bool
}

func (q *Queries) CreateGame(ctx context.Context, arg CreateGameParams) (Game, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO games (series_id, team_id, opponent, scheduled_at, location, is_home)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+gameColumns,
		arg.SeriesID, arg.TeamID, arg.Opponent, arg.ScheduledAt, arg.Location, arg.IsHome,
	)
	return scanGameRow(row)
}

func (q *Queries) GetGameByID(ctx context.Context, id int64) (Game, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	return scanGameRow(row)
}

func (q *Queries) ListGamesBySeries(ctx context.Context, seriesID int64) ([]Game, error) {
	return q.listGames(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE series_id = ?
		ORDER BY scheduled_at`,
		seriesID,
	)
}

type UpcomingGamesParams struct {
	UserID int64
	After  time.Time
	Limit  int64
}

// ListUpcomingGamesForUser returns scheduled games across all teams the user
// belongs to, soonest first.
func (q *Queries) ListUpcomingGamesForUser(ctx context.Context, arg UpcomingGamesParams) ([]Game, error) {
	return q.listGames(ctx, `
		SELECT g.id, g.series_id, g.team_id, g.opponent, g.scheduled_at,
		       g.location, g.is_home, g.status, g.home_score, g.away_score, g.created_at
		FROM games g
		JOIN team_members m ON m.team_id = g.team_id
		WHERE m.user_id = ? AND g.status = 'scheduled' AND g.scheduled_at > ?
		ORDER BY g.scheduled_at
		LIMIT ?`,
		arg.UserID, arg.After, arg.Limit,
	)
}

type RecordGameResultParams struct {
	ID        int64
	HomeScore int64
	AwayScore int64
}

func (q *Queries) RecordGameResult(ctx context.Context, arg RecordGameResultParams) (Game, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE games
		SET status = 'played', home_score = ?, away_score = ?
		WHERE id = ?
		RETURNING `+gameColumns,
		arg.HomeScore, arg.AwayScore, arg.ID,
	)
	return scanGameRow(row)
}

func (q *Queries) CancelGame(ctx context.Context, id int64) (Game, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE games SET status = 'canceled'
		WHERE id = ?
		RETURNING `+gameColumns,
		id,
	)
	return scanGameRow(row)
}

func (q *Queries) listGames(ctx context.Context, query string, args ...any) ([]Game, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(
			&g.ID, &g.SeriesID, &g.TeamID, &g.Opponent, &g.ScheduledAt,
			&g.Location, &g.IsHome, &g.Status, &g.HomeScore, &g.AwayScore, &g.CreatedAt,
		); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
