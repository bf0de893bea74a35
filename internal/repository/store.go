// Package repository is the off-chain store: a mutable Postgres-backed
// record store holding users, batch master records, full compositions, and
// reference standards. The ledger remains the source of truth for custody;
// this store carries everything too large or too mutable to anchor on-chain.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pharmatrust/drugtrace/internal/config"
)

// ErrDuplicate is returned when an insert violates a unique constraint
// (batchId, drugName, or walletAddress).
var ErrDuplicate = errors.New("repository: record already exists")

const pqUniqueViolation = "23505"

// Store wraps the shared database handle.
type Store struct {
	db *sql.DB
}

// NewStore opens the Postgres connection described by the config.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for repositories sharing the connection
// pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			wallet_address TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			name TEXT NOT NULL,
			api_key_hash TEXT NOT NULL,
			is_registered BOOLEAN NOT NULL DEFAULT TRUE,
			registration_timestamp TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS batches (
			batch_id TEXT PRIMARY KEY,
			drug_name TEXT NOT NULL,
			composition_hash TEXT NOT NULL,
			manufacturer TEXT NOT NULL,
			current_owner TEXT NOT NULL,
			manufacture_date BIGINT NOT NULL,
			expiry_date BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS compositions (
			batch_id TEXT PRIMARY KEY,
			drug_name TEXT NOT NULL,
			full_composition JSONB NOT NULL,
			composition_hash TEXT NOT NULL,
			manufacturer TEXT NOT NULL,
			manufacture_date BIGINT NOT NULL,
			expiry_date BIGINT NOT NULL,
			registration_timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS reference_standards (
			drug_name TEXT PRIMARY KEY,
			standard_composition JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS certificates (
			id UUID PRIMARY KEY,
			batch_id TEXT NOT NULL REFERENCES batches(batch_id),
			file_name TEXT NOT NULL,
			size BIGINT NOT NULL,
			checksum TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			uploaded_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_manufacturer ON batches(manufacturer)`,
		`CREATE INDEX IF NOT EXISTS idx_compositions_expiry ON compositions(expiry_date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether the error is a Postgres duplicate-key
// failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
