package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
)

const subjectColumns = `id, owner_id, name, colour, days`

func scanSubject(scanner interface{ Scan(dest ...any) error }) (*domain.Subject, error) {
	var s domain.Subject
	var colour, days string
	if err := scanner.Scan(&s.ID, &s.Owner, &s.Name, &colour, &days); err != nil {
		return nil, err
	}
	s.Colour = domain.Colour(colour)

	set, err := domain.DecodeDaySet(days)
	if err != nil {
		return nil, err
	}
	s.Days = set
	return &s, nil
}

// InsertSubject inserts a subject and sets its ID. A second subject with
// the same name or colour for the owner fails with ErrAlreadyExists.
func (db *DB) InsertSubject(ctx context.Context, subject *domain.Subject) error {
	res, err := db.q.ExecContext(ctx, `
		INSERT INTO subjects (owner_id, name, colour, days)
		VALUES (?, ?, ?, ?)
	`,
		subject.Owner,
		subject.Name,
		string(subject.Colour),
		subject.Days.Encode(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "subjects.colour") {
				return domainerrors.AlreadyExistsf("colour %s is already used by another subject", subject.Colour.Name())
			}
			return domainerrors.AlreadyExistsf("a subject named %q already exists", subject.Name)
		}
		return fmt.Errorf("failed to insert subject %q: %w", subject.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for subject %q: %w", subject.Name, err)
	}
	subject.ID = id
	return nil
}

// ListSubjects returns the owner's subjects ordered by name.
func (db *DB) ListSubjects(ctx context.Context, owner string) ([]domain.Subject, error) {
	rows, err := db.q.QueryContext(ctx, `
		SELECT `+subjectColumns+`
		FROM subjects WHERE owner_id = ?
		ORDER BY name COLLATE NOCASE, id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects for %s: %w", owner, err)
	}
	defer rows.Close()

	var subjects []domain.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject row: %w", err)
		}
		subjects = append(subjects, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subjects for %s: %w", owner, err)
	}
	return subjects, nil
}

// FindSubjectByName retrieves one of the owner's subjects by name.
func (db *DB) FindSubjectByName(ctx context.Context, owner, name string) (*domain.Subject, error) {
	row := db.q.QueryRowContext(ctx, `
		SELECT `+subjectColumns+`
		FROM subjects WHERE owner_id = ? AND name = ?
	`, owner, name)

	s, err := scanSubject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NotFoundf("subject %q not found", name)
		}
		return nil, fmt.Errorf("failed to find subject %q: %w", name, err)
	}
	return s, nil
}

// DeleteSubject removes a subject. Its cards go with it through the
// ON DELETE CASCADE foreign key.
func (db *DB) DeleteSubject(ctx context.Context, owner string, id int64) error {
	res, err := db.q.ExecContext(ctx, `
		DELETE FROM subjects
		WHERE id = ? AND owner_id = ?
	`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete subject %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted subjects: %w", err)
	}
	if n == 0 {
		return domainerrors.NotFoundf("subject %d not found", id)
	}
	return nil
}
