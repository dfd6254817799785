package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bcnelson/dyndns/internal/domain"
	"github.com/bcnelson/dyndns/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DefaultQueryTimeout bounds every statement when no timeout is configured.
const DefaultQueryTimeout = 5 * time.Second

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store and brings the schema up to date.
func New(driver, dsn string, queryTimeout time.Duration) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetLogger(logrus.WithField("component", "migrations"))
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	return &Store{
		db:      db,
		timeout: queryTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// exec runs a single-row mutation and maps zero affected rows to domain.ErrNotFound.
func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ============================================
// Hosts
// ============================================

func (s *Store) GetHost(ctx context.Context, name string) (*domain.HostRecord, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var host domain.HostRecord
	err := s.db.GetContext(ctx, &host,
		`SELECT name, address, last_updated, last_touched FROM hosts WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &host, true, nil
}

func (s *Store) InsertHost(ctx context.Context, name, address string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hosts (name, address, last_updated, last_touched)
		 VALUES ($1, $2, $3, $4)`,
		name, address, now, now)
	return wrapUniqueError(err)
}

func (s *Store) UpdateHostAddress(ctx context.Context, name, address string) error {
	now := s.now()
	return s.exec(ctx,
		`UPDATE hosts SET address = $1, last_updated = $2, last_touched = $3 WHERE name = $4`,
		address, now, now, name)
}

func (s *Store) TouchHost(ctx context.Context, name string) error {
	return s.exec(ctx,
		`UPDATE hosts SET last_touched = $1 WHERE name = $2`, s.now(), name)
}

func (s *Store) ListHosts(ctx context.Context) ([]*domain.HostRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var hosts []*domain.HostRecord
	err := s.db.SelectContext(ctx, &hosts,
		`SELECT name, address, last_updated, last_touched FROM hosts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return hosts, nil
}
