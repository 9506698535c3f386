package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
)

const userColumns = `id, username, email, password_hash, created_at`

func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User
	var createdAt string
	if err := scanner.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}

// InsertUser inserts a new account. A taken username fails with
// ErrAlreadyExists.
func (db *DB) InsertUser(ctx context.Context, user *domain.User) error {
	_, err := db.q.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.AlreadyExistsf("username %q is taken", user.Username)
		}
		return fmt.Errorf("failed to insert user %s: %w", user.Username, err)
	}
	return nil
}

// FindUserByID retrieves an account by ID.
func (db *DB) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return db.findUser(row, id)
}

// FindUserByUsername retrieves an account by username.
func (db *DB) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return db.findUser(row, username)
}

func (db *DB) findUser(row *sql.Row, ref string) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NotFoundf("user %s not found", ref)
		}
		return nil, fmt.Errorf("failed to find user %s: %w", ref, err)
	}
	return u, nil
}
