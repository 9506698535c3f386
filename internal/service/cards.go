package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
	"github.com/conorfennell/lectern/internal/storage"
)

// Due is the set of cards sharing the earliest due date.
type Due struct {
	Cards     []domain.Card
	Date      time.Time
	DaysUntil int // negative when overdue
}

// Cards answers card queries and deletions for an owner.
type Cards struct {
	repo   storage.CardRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewCards creates a Cards service. now supplies "today" for NextDue.
func NewCards(repo storage.CardRepository, now func() time.Time, logger *slog.Logger) *Cards {
	if now == nil {
		now = time.Now
	}
	return &Cards{repo: repo, now: now, logger: logger}
}

// List returns all of the owner's cards by due date.
func (c *Cards) List(ctx context.Context, owner string) ([]domain.Card, error) {
	cards, err := c.repo.ListCards(ctx, owner)
	if err != nil {
		return nil, domainerrors.Persistence(err)
	}
	return cards, nil
}

// NextDue returns the owner's cards due on the earliest date. ok is false
// when the owner has no cards.
func (c *Cards) NextDue(ctx context.Context, owner string) (Due, bool, error) {
	cards, err := c.List(ctx, owner)
	if err != nil {
		return Due{}, false, err
	}
	due, ok := NextDue(cards, c.now())
	return due, ok, nil
}

// Delete removes one card, typically once it has been reviewed.
func (c *Cards) Delete(ctx context.Context, owner string, id int64) error {
	if err := c.repo.DeleteCard(ctx, owner, id); err != nil {
		return domainerrors.Persistence(err)
	}
	c.logger.Debug("card deleted", "owner", owner, "card_id", id)
	return nil
}

// NextDue selects every card sharing the earliest due date. The input is
// sorted by (date, id) first, so store ordering does not matter.
func NextDue(cards []domain.Card, today time.Time) (Due, bool) {
	if len(cards) == 0 {
		return Due{}, false
	}

	sorted := slices.Clone(cards)
	slices.SortStableFunc(sorted, func(a, b domain.Card) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	first := sorted[0].Date
	n := 1
	for n < len(sorted) && sorted[n].Date.Equal(first) {
		n++
	}

	return Due{
		Cards:     sorted[:n:n],
		Date:      first,
		DaysUntil: domain.DaysBetween(today, first),
	}, true
}
