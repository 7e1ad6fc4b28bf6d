package repository

import (
	"context"
	"errors"
	"fmt"

	dbcontracts "cantiere/contracts/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
    CREATE TABLE IF NOT EXISTS schedule_slots (
        slot_key   TEXT PRIMARY KEY,
        payload    JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )
`

// PostgresSlotRepository stores snapshots in the schedule_slots table.
type PostgresSlotRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSlotRepository(db *pgxpool.Pool) *PostgresSlotRepository {
	return &PostgresSlotRepository{db: db}
}

func (r *PostgresSlotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schedule_slots: %w", err)
	}
	return nil
}

// Get returns the full row, or nil when the key is absent.
func (r *PostgresSlotRepository) Get(ctx context.Context, key string) (*dbcontracts.ScheduleSlot, error) {
	query := `
        SELECT slot_key, payload, updated_at
        FROM schedule_slots
        WHERE slot_key = $1
    `
	var slot dbcontracts.ScheduleSlot
	err := r.db.QueryRow(ctx, query, key).Scan(&slot.SlotKey, &slot.Payload, &slot.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query slot %s: %w", key, err)
	}
	return &slot, nil
}

func (r *PostgresSlotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	slot, err := r.Get(ctx, key)
	if err != nil || slot == nil {
		return nil, err
	}
	return slot.Payload, nil
}

func (r *PostgresSlotRepository) Save(ctx context.Context, key string, value []byte) error {
	query := `
        INSERT INTO schedule_slots (slot_key, payload, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (slot_key)
        DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
    `
	if _, err := r.db.Exec(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("failed to upsert slot %s: %w", key, err)
	}
	return nil
}

func (r *PostgresSlotRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM schedule_slots WHERE slot_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

func (r *PostgresSlotRepository) Ping(ctx context.Context) error { return r.db.Ping(ctx) }
func (r *PostgresSlotRepository) Driver() string                 { return DriverPostgres }

func (r *PostgresSlotRepository) Close() error {
	r.db.Close()
	return nil
}
