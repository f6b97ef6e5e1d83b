package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobbylite/enrollhub/internal/core"
)

// PostgresArchive appends finalized-for-decision access requests to a single
// denormalized table.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS access_requests (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	group_id     TEXT NOT NULL,
	group_name   TEXT NOT NULL DEFAULT '',
	requested_at TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL,
	status       TEXT NOT NULL
)`

func NewPostgresArchive(ctx context.Context, dsn string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring access_requests table: %w", err)
	}
	return &PostgresArchive{pool: pool}, nil
}

func (a *PostgresArchive) Append(ctx context.Context, req core.AccessRequest) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO access_requests
			(id, user_id, first_name, last_name, group_id, group_name, requested_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.UserID, req.FirstName, req.LastName,
		req.GroupID, req.GroupName, req.RequestedAt, req.ExpiresAt, string(req.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting access request %s: %w", req.ID, err)
	}
	return nil
}

func (a *PostgresArchive) List(ctx context.Context) ([]core.AccessRequest, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT id, user_id, first_name, last_name, group_id, group_name, requested_at, expires_at, status
		FROM access_requests
		ORDER BY requested_at`)
	if err != nil {
		return nil, fmt.Errorf("querying access requests: %w", err)
	}
	defer rows.Close()

	var out []core.AccessRequest
	for rows.Next() {
		var req core.AccessRequest
		var status string
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.FirstName, &req.LastName,
			&req.GroupID, &req.GroupName, &req.RequestedAt, &req.ExpiresAt, &status,
		); err != nil {
			return nil, fmt.Errorf("scanning access request row: %w", err)
		}
		req.Status = core.RequestStatus(status)
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating access request rows: %w", err)
	}
	return out, nil
}

func (a *PostgresArchive) Close() {
	a.pool.Close()
}
