package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, domain string) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM settings WHERE domain = $1`, domain)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()
	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			name  string
			value []byte
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, domain, name string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (domain, name, value) VALUES ($1, $2, $3)
		ON CONFLICT (domain, name) DO UPDATE SET value = EXCLUDED.value`,
		domain, name, []byte(value))
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}
