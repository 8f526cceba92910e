// Package repository implements the persistence-layer queries the
// time-series validator needs for its database-dedup step.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PostgresDedupRepository implements validation.DedupRepository against
// a Postgres primary store via pgx.
type PostgresDedupRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDedupRepository wraps an existing connection pool.
func NewPostgresDedupRepository(pool *pgxpool.Pool) *PostgresDedupRepository {
	return &PostgresDedupRepository{pool: pool}
}

// ResolveInstrumentID looks up an instrument's integer id by symbol.
// Absence is reported via found=false, which callers treat as "not a
// duplicate."
func (r *PostgresDedupRepository) ResolveInstrumentID(ctx context.Context, symbol string) (int32, bool, error) {
	var id int32
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM instrument WHERE symbol = $1`, symbol).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

// ExistingTimestamps queries table for timestamps already present for
// instrumentID within [start, end].
func (r *PostgresDedupRepository) ExistingTimestamps(ctx context.Context, table string, instrumentID int32, start, end int64) (map[int64]bool, error) {
	query := `SELECT time FROM ` + sanitizeTable(table) + ` WHERE instrument_id = $1 AND time BETWEEN $2 AND $3 ORDER BY time`
	rows, err := r.pool.Query(ctx, query, instrumentID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[int64]bool)
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		existing[ts] = true
	}
	return existing, rows.Err()
}

// sanitizeTable restricts table names to the two the validator writes
// to, since the table name cannot be a bind parameter in the
// underlying SQL.
func sanitizeTable(table string) string {
	switch table {
	case "minute_bar", "tick":
		return table
	default:
		return "minute_bar"
	}
}
