package storage

import (
	"context"
	"fmt"

	"github.com/conorfennell/lectern/internal/cardkey"
	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
)

// GetOrCreateCard inserts a card unless one with the same identity
// (owner, subject, title, points, date) already exists. Either way the
// card's ID is set. It reports whether a row was created.
func (db *DB) GetOrCreateCard(ctx context.Context, card *domain.Card) (bool, error) {
	key := cardkey.Key(*card)

	res, err := db.q.ExecContext(ctx, `
		INSERT INTO cards (card_key, owner_id, subject_id, title, points, due_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_key) DO NOTHING
	`,
		key,
		card.Owner,
		card.SubjectID,
		card.Title,
		card.Points,
		card.Date.Format(domain.DateLayout),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert card %q: %w", card.Title, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count inserted cards: %w", err)
	}
	if n == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("failed to get last insert ID for card %q: %w", card.Title, err)
		}
		card.ID = id
		return true, nil
	}

	if err := db.q.QueryRowContext(ctx, `SELECT id FROM cards WHERE card_key = ?`, key).Scan(&card.ID); err != nil {
		return false, fmt.Errorf("failed to find existing card %q: %w", card.Title, err)
	}
	return false, nil
}

// ListCards returns all of the owner's cards ordered by due date, then ID.
func (db *DB) ListCards(ctx context.Context, owner string) ([]domain.Card, error) {
	rows, err := db.q.QueryContext(ctx, `
		SELECT c.id, c.owner_id, c.subject_id, s.name, s.colour, c.title, c.points, c.due_date
		FROM cards c
		JOIN subjects s ON s.id = c.subject_id
		WHERE c.owner_id = ?
		ORDER BY c.due_date, c.id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards for %s: %w", owner, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		var colour, due string
		if err := rows.Scan(&c.ID, &c.Owner, &c.SubjectID, &c.SubjectName, &colour, &c.Title, &c.Points, &due); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		c.SubjectColour = domain.Colour(colour)
		if c.Date, err = domain.ParseDate(due); err != nil {
			return nil, fmt.Errorf("failed to parse due date of card %d: %w", c.ID, err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards for %s: %w", owner, err)
	}
	return cards, nil
}

// DeleteCard removes one of the owner's cards. Cards of other owners are
// reported as not found.
func (db *DB) DeleteCard(ctx context.Context, owner string, id int64) error {
	res, err := db.q.ExecContext(ctx, `
		DELETE FROM cards
		WHERE id = ? AND owner_id = ?
	`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted cards: %w", err)
	}
	if n == 0 {
		return domainerrors.NotFoundf("card %d not found", id)
	}
	return nil
}

// DeleteCardsByOwner removes every card the owner has and returns how many
// were deleted.
func (db *DB) DeleteCardsByOwner(ctx context.Context, owner string) (int64, error) {
	res, err := db.q.ExecContext(ctx, `DELETE FROM cards WHERE owner_id = ?`, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cards for %s: %w", owner, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted cards for %s: %w", owner, err)
	}
	return n, nil
}
