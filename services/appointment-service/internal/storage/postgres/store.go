// Package postgres is the production storage backend built on a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/visitbook/libs/db"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	pool *db.Pool
}

var _ storage.Store = (*Store)(nil)

func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(storage.Repo) error) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&repo{tx: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return db.ReadyCheck(s.pool)(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type repo struct {
	tx pgx.Tx
}

var _ storage.Repo = (*repo)(nil)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", storage.ErrConflict, err)
	}
	return err
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
