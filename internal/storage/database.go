package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/lectern/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// pragmas are applied by the driver to every pooled connection.
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// SubjectRepository stores subjects. Every method is scoped to an owner.
type SubjectRepository interface {
	InsertSubject(ctx context.Context, subject *domain.Subject) error
	ListSubjects(ctx context.Context, owner string) ([]domain.Subject, error)
	FindSubjectByName(ctx context.Context, owner, name string) (*domain.Subject, error)
	DeleteSubject(ctx context.Context, owner string, id int64) error
}

// CardRepository stores generated cards. Every method is scoped to an owner.
type CardRepository interface {
	GetOrCreateCard(ctx context.Context, card *domain.Card) (bool, error)
	ListCards(ctx context.Context, owner string) ([]domain.Card, error)
	DeleteCard(ctx context.Context, owner string, id int64) error
	DeleteCardsByOwner(ctx context.Context, owner string) (int64, error)
}

// UserRepository stores accounts.
type UserRepository interface {
	InsertUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Repository is the subject and card store used by the services. RunInTx
// runs fn against a repository bound to a single transaction, committing
// when fn returns nil.
type Repository interface {
	SubjectRepository
	CardRepository
	RunInTx(ctx context.Context, fn func(Repository) error) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB represents a wrapper around the SQL database connection. A DB returned
// by RunInTx is bound to the transaction and has no pool of its own.
type DB struct {
	conn *sql.DB
	q    queryer
}

var (
	_ Repository     = (*DB)(nil)
	_ UserRepository = (*DB)(nil)
)

// Open creates a new database connection and ensures the schema is up to date.
func Open(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: conn, q: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return nil
	}
	return db.conn.PingContext(ctx)
}

// RunInTx implements Repository. Nested calls reuse the outer transaction.
func (db *DB) RunInTx(ctx context.Context, fn func(Repository) error) error {
	if db.conn == nil {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&DB{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
