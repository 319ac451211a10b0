// Package pg implements the auth and item stores on PostgreSQL. It is the
// single authoritative store for tokens, rules and identities: revocation
// committed here is visible to every check ordered after it.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"sentra.org/internal/auth"
	"sentra.org/internal/items"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store exposes the persistence interfaces over one connection pool.
type Store struct {
	db *sql.DB
}

var _ auth.Store = (*Store)(nil)

// Open connects to PostgreSQL using the pgx stdlib driver.
func Open(dsn string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle (used by tests with sqlmock).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw handle for readiness probes.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() auth.UserStore       { return &userStore{db: s.db} }
func (s *Store) Roles() auth.RoleStore       { return &roleStore{db: s.db} }
func (s *Store) Elements() auth.ElementStore { return &elementStore{db: s.db} }
func (s *Store) Rules() auth.RuleStore       { return &ruleStore{db: s.db} }
func (s *Store) Tokens() auth.TokenStore     { return &tokenStore{db: s.db} }

// Items returns the item store.
func (s *Store) Items() items.Store { return &itemStore{db: s.db} }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func mapConstraintErr(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return auth.ErrConflict
		case pgErrForeignKeyViolation:
			return auth.ErrNotFound
		}
	}
	return err
}
