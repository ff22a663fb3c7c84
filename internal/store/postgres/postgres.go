// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already opened database without running migrations.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateDomain(ctx context.Context, d *model.Domain) error {
	return queryCreateDomain(ctx, s.db, d)
}

func (s *PostgresStore) GetDomainBySlug(ctx context.Context, slug string) (*model.Domain, error) {
	return queryGetDomainBySlug(ctx, s.db, slug)
}

func (s *PostgresStore) ListDomains(ctx context.Context, limit, offset int) ([]*model.Domain, error) {
	return queryListDomains(ctx, s.db, limit, offset)
}

func (s *PostgresStore) DeleteDomain(ctx context.Context, slug string) error {
	return queryDeleteDomain(ctx, s.db, slug)
}

func (s *PostgresStore) CreateConfig(ctx context.Context, c *model.Config) error {
	return queryCreateConfig(ctx, s.db, c)
}

func (s *PostgresStore) GetConfig(ctx context.Context, domainID, key string) (*model.Config, error) {
	return queryGetConfig(ctx, s.db, domainID, key)
}

func (s *PostgresStore) ListConfigs(ctx context.Context, domainID string, limit, offset int) ([]*model.Config, error) {
	return queryListConfigs(ctx, s.db, domainID, limit, offset)
}

func (s *PostgresStore) DeleteConfig(ctx context.Context, id string) error {
	return queryDeleteConfig(ctx, s.db, id)
}

// CreateVersion appends v in its own transaction. The UNIQUE(config_id, idx)
// constraint backs up the row lock; a collision is retried once.
func (s *PostgresStore) CreateVersion(ctx context.Context, v *model.Version) error {
	create := func(tx executor) error {
		return queryCreateVersion(ctx, tx, v)
	}
	err := s.runInTransaction(ctx, create)
	if errors.Is(err, store.ErrAlreadyExists) {
		err = s.runInTransaction(ctx, create)
	}
	return err
}

func (s *PostgresStore) GetVersion(ctx context.Context, configID string, index int64) (*model.Version, error) {
	return queryGetVersion(ctx, s.db, configID, index)
}

func (s *PostgresStore) GetCurrentVersion(ctx context.Context, configID string) (*model.Version, error) {
	return queryGetCurrentVersion(ctx, s.db, configID)
}

func (s *PostgresStore) ListVersions(ctx context.Context, configID string, limit, offset int) ([]*model.Version, error) {
	return queryListVersions(ctx, s.db, configID, limit, offset)
}

// runInTransaction begins a database transaction, calls fn with it, and
// commits on success or rolls back on error.
func (s *PostgresStore) runInTransaction(ctx context.Context, fn func(tx executor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("commit transaction", err, store.ErrNotFound)
	}
	return nil
}
