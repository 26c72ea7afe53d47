package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/foresturquhart/indexhook/hooks"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	Pool *pgxpool.Pool
	dsn  string
}

// TxFunc runs inside a transaction. Commit hooks registered on scope fire
// only if the transaction commits.
type TxFunc func(ctx context.Context, tx pgx.Tx, scope *hooks.Scope) error

func NewPostgres(dsn string) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create postgres connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to postgres: %w", err)
	}

	return &Postgres{
		Pool: pool,
		dsn:  dsn,
	}, nil
}

func (d *Postgres) Close() {
	d.Pool.Close()
}

func (d *Postgres) Migrate() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("unable to load embedded migrations: %v", err)
	}

	db, err := sql.Open("pgx", d.dsn)
	if err != nil {
		return fmt.Errorf("unable to open migration connection: %w", err)
	}
	defer db.Close()

	instance, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("unable to create migration instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", instance)
	if err != nil {
		return fmt.Errorf("could not initialize migration: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("unable to migrate: %w", err)
	}

	return nil
}

// RunInTx begins a transaction, runs fn and commits. The scope handed to fn
// is committed after the database commit succeeds and discarded otherwise.
// Errors from commit hooks are logged and do not fail the call, since the
// data is already committed.
func (d *Postgres) RunInTx(ctx context.Context, fn TxFunc) error {
	return runInTx(ctx, d.Pool, fn)
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func runInTx(ctx context.Context, db beginner, fn TxFunc) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	scope := hooks.NewScope()

	defer func() {
		if p := recover(); p != nil {
			scope.Rollback()
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				log.Error().Err(rollbackErr).Msg("Failed to roll back transaction after panic")
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx, scope); err != nil {
		scope.Rollback()
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			log.Error().Err(rollbackErr).Msg("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		scope.Rollback()
		return fmt.Errorf("error committing transaction: %w", err)
	}

	if err := scope.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("Commit hooks failed after transaction committed")
	}

	return nil
}
