package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/marketops-be/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// Storage is the PostgreSQL-backed entity store for batches, jobs, tasks and
// action type reference data.
//
// Every job and batch status write in this package goes through a conditional
// UPDATE with an expected-prior-status predicate and a RowsAffected check.
// A direct unconditional status UPDATE anywhere else is a correctness bug.
type Storage struct {
	db      *sqlx.DB
	logger  *slog.Logger
	atCache actionTypeCache
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
