// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/store"
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

// NewWithDB wraps an already-open database without running migrations.
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

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreatePreset(ctx context.Context, preset *model.Preset) error {
	return queryCreatePreset(ctx, s.db, preset)
}

func (s *PostgresStore) GetPreset(ctx context.Context, id, viewerID string) (*model.Preset, error) {
	return queryGetPreset(ctx, s.db, id, viewerID)
}

func (s *PostgresStore) ListPresets(ctx context.Context, filter model.PresetFilter) ([]*model.Preset, error) {
	return queryListPresets(ctx, s.db, filter)
}

func (s *PostgresStore) ListAllPresets(ctx context.Context) ([]*model.Preset, error) {
	return queryListAllPresets(ctx, s.db)
}

// SetVisibility runs the owner check and the update under one row lock.
func (s *PostgresStore) SetVisibility(ctx context.Context, id, callerID string, visibility model.Visibility) (bool, error) {
	var changed bool
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		changed, err = tx.SetVisibility(ctx, id, callerID, visibility)
		return err
	})
	return changed, err
}

// SoftDeletePreset runs the owner check and the update under one row lock.
func (s *PostgresStore) SoftDeletePreset(ctx context.Context, id, callerID string) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.SoftDeletePreset(ctx, id, callerID)
	})
}

// ToggleReaction executes the toggle procedure in its own transaction.
func (s *PostgresStore) ToggleReaction(ctx context.Context, userID, presetID string, symbol model.Symbol) (*model.ToggleResult, error) {
	var res *model.ToggleResult
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		res, err = tx.ToggleReaction(ctx, userID, presetID, symbol)
		return err
	})
	return res, err
}

func (s *PostgresStore) GetReaction(ctx context.Context, userID, presetID string) (*model.Reaction, error) {
	return queryGetReaction(ctx, s.db, userID, presetID)
}

func (s *PostgresStore) ListAllReactions(ctx context.Context) ([]*model.Reaction, error) {
	return queryListAllReactions(ctx, s.db)
}

func (s *PostgresStore) FindCountDrift(ctx context.Context) ([]model.CountDrift, error) {
	return queryFindCountDrift(ctx, s.db)
}

// RepairReactionCounts recomputes one preset's counts under the same row
// lock the toggle procedure takes.
func (s *PostgresStore) RepairReactionCounts(ctx context.Context, presetID string) (model.ReactionCounts, error) {
	var counts model.ReactionCounts
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		counts, err = tx.RepairReactionCounts(ctx, presetID)
		return err
	})
	return counts, err
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvents(ctx context.Context, presetID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.db, presetID)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transient(fmt.Errorf("begin transaction: %w", err))
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.Transient(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreatePreset(ctx context.Context, preset *model.Preset) error {
	return queryCreatePreset(ctx, s.tx, preset)
}

func (s *txStore) GetPreset(ctx context.Context, id, viewerID string) (*model.Preset, error) {
	return queryGetPreset(ctx, s.tx, id, viewerID)
}

func (s *txStore) ListPresets(ctx context.Context, filter model.PresetFilter) ([]*model.Preset, error) {
	return queryListPresets(ctx, s.tx, filter)
}

func (s *txStore) ListAllPresets(ctx context.Context) ([]*model.Preset, error) {
	return queryListAllPresets(ctx, s.tx)
}

func (s *txStore) SetVisibility(ctx context.Context, id, callerID string, visibility model.Visibility) (bool, error) {
	return querySetVisibility(ctx, s.tx, id, callerID, visibility)
}

func (s *txStore) SoftDeletePreset(ctx context.Context, id, callerID string) error {
	return querySoftDeletePreset(ctx, s.tx, id, callerID)
}

func (s *txStore) ToggleReaction(ctx context.Context, userID, presetID string, symbol model.Symbol) (*model.ToggleResult, error) {
	return queryToggleReaction(ctx, s.tx, userID, presetID, symbol)
}

func (s *txStore) GetReaction(ctx context.Context, userID, presetID string) (*model.Reaction, error) {
	return queryGetReaction(ctx, s.tx, userID, presetID)
}

func (s *txStore) ListAllReactions(ctx context.Context) ([]*model.Reaction, error) {
	return queryListAllReactions(ctx, s.tx)
}

func (s *txStore) FindCountDrift(ctx context.Context) ([]model.CountDrift, error) {
	return queryFindCountDrift(ctx, s.tx)
}

func (s *txStore) RepairReactionCounts(ctx context.Context, presetID string) (model.ReactionCounts, error) {
	return queryRepairReactionCounts(ctx, s.tx, presetID)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) GetEvents(ctx context.Context, presetID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.tx, presetID)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
