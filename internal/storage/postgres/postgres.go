package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Storage хранит постоянные данные клиента в Postgres.
// Несколько терминалов (киоски) могут делить одну базу: записи разделяются
// по профилю.
type Storage struct {
	pool    *pgxpool.Pool
	profile string
}

const schema = `
CREATE TABLE IF NOT EXISTS local_storage (
	profile    TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (profile, key)
)
`

func NewStorage(ctx context.Context, dsn, profile string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err = pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create local_storage table: %w", err)
	}

	return &Storage{pool: pool, profile: profile}, nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	query := `
	SELECT value FROM local_storage WHERE profile = $1 AND key = $2
	`

	var value string
	err := s.pool.QueryRow(ctx, query, s.profile, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO local_storage (profile, key, value) VALUES ($1, $2, $3)
	ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query, s.profile, key, value)
	return err
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	query := `
	DELETE FROM local_storage WHERE profile = $1 AND key = $2
	`

	_, err := s.pool.Exec(ctx, query, s.profile, key)
	return err
}

func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := `
	SELECT key FROM local_storage WHERE profile = $1 AND starts_with(key, $2) ORDER BY key
	`

	rows, err := s.pool.Query(ctx, query, s.profile, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *Storage) Close() {
	s.pool.Close()
}
