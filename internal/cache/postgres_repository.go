package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerohealth/aerohealth/internal/airquality"
)

// PostgresRepository is a PostgreSQL implementation of Repository. The slot
// lives in a single fixed row so writes stay atomic upserts.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL cache repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save overwrites the slot.
func (r *PostgresRepository) Save(ctx context.Context, snapshot *Snapshot) error {
	readingJSON, err := json.Marshal(snapshot.AirQuality)
	if err != nil {
		return err
	}
	historicalJSON, err := json.Marshal(snapshot.Historical)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cache_snapshot (id, reading, historical, location, created_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			reading = EXCLUDED.reading,
			historical = EXCLUDED.historical,
			location = EXCLUDED.location,
			created_at = EXCLUDED.created_at
	`

	_, err = r.pool.Exec(ctx, query, readingJSON, historicalJSON, snapshot.Location, snapshot.Timestamp)
	return err
}

// Load returns the stored snapshot, or ErrEmpty.
func (r *PostgresRepository) Load(ctx context.Context) (*Snapshot, error) {
	query := `
		SELECT reading, historical, location, created_at
		FROM cache_snapshot
		WHERE id = 1
	`

	var (
		snapshot       Snapshot
		readingJSON    []byte
		historicalJSON []byte
	)

	err := r.pool.QueryRow(ctx, query).Scan(
		&readingJSON,
		&historicalJSON,
		&snapshot.Location,
		&snapshot.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmpty
		}
		return nil, err
	}

	if err := json.Unmarshal(readingJSON, &snapshot.AirQuality); err != nil {
		return nil, err
	}
	if len(historicalJSON) > 0 {
		if err := json.Unmarshal(historicalJSON, &snapshot.Historical); err != nil {
			return nil, err
		}
	}
	if snapshot.Historical == nil {
		snapshot.Historical = []airquality.HistoricalSample{}
	}

	return &snapshot, nil
}
