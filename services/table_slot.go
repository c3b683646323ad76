package services

import (
	"context"
	"errors"

	"table-order/cart"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSlotStore keeps cart slots in the table_slots table.
type PGSlotStore struct {
	pool *pgxpool.Pool
}

func NewPGSlotStore(pool *pgxpool.Pool) *PGSlotStore {
	return &PGSlotStore{pool: pool}
}

func (s *PGSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM table_slots WHERE slot_key = $1`,
		key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cart.ErrSlotEmpty
	}
	return value, err
}

// Put stores value under key, replacing any previous value.
func (s *PGSlotStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO table_slots (slot_key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot_key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = now()`,
		key, value,
	)
	return err
}

func (s *PGSlotStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM table_slots WHERE slot_key = $1`, key)
	return err
}
