package exposure

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL exposure repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// LoadLog retrieves all stored entries, oldest first.
func (r *PostgresRepository) LoadLog(ctx context.Context) ([]LogEntry, error) {
	query := `
		SELECT day, aqi, duration_minutes, location, risk_level
		FROM exposure_log
		ORDER BY day ASC, location ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.Date, &e.AQI, &e.Duration, &e.Location, &e.RiskLevel); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveLog replaces the stored log in a single transaction.
func (r *PostgresRepository) SaveLog(ctx context.Context, entries []LogEntry) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM exposure_log`); err != nil {
			return err
		}

		query := `
			INSERT INTO exposure_log (day, aqi, duration_minutes, location, risk_level)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, e := range entries {
			if _, err := tx.Exec(ctx, query, e.Date, e.AQI, e.Duration, e.Location, e.RiskLevel); err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
