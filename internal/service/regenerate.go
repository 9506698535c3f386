package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
	"github.com/conorfennell/lectern/internal/schedule"
	"github.com/conorfennell/lectern/internal/storage"
)

// Result summarises one regeneration run.
type Result struct {
	Deleted  int64
	Subjects int
	Cards    int
}

// Regenerator replaces all of an owner's cards with a fresh schedule for
// every one of their subjects.
type Regenerator struct {
	repo   storage.Repository
	logger *slog.Logger

	locks sync.Map // owner -> *sync.Mutex
}

// NewRegenerator creates a Regenerator.
func NewRegenerator(repo storage.Repository, logger *slog.Logger) *Regenerator {
	return &Regenerator{repo: repo, logger: logger}
}

// Regenerate validates the term dates, then deletes every card the owner
// has and generates new ones from their subjects. Invalid dates return a
// validation error before anything is touched. The delete and the inserts
// share one transaction, and runs for the same owner are serialised.
func (r *Regenerator) Regenerate(ctx context.Context, owner, commence, midsemBreak string) (Result, error) {
	term, err := ParseTerm(commence, midsemBreak)
	if err != nil {
		return Result{}, err
	}
	return r.RegenerateTerm(ctx, owner, term)
}

// RegenerateTerm is Regenerate for an already validated term.
func (r *Regenerator) RegenerateTerm(ctx context.Context, owner string, term schedule.Term) (Result, error) {
	unlock := r.lock(owner)
	defer unlock()

	var res Result
	err := r.repo.RunInTx(ctx, func(repo storage.Repository) error {
		res = Result{}

		deleted, err := repo.DeleteCardsByOwner(ctx, owner)
		if err != nil {
			return err
		}
		res.Deleted = deleted

		subjects, err := repo.ListSubjects(ctx, owner)
		if err != nil {
			return err
		}
		res.Subjects = len(subjects)

		for _, subject := range subjects {
			for _, draft := range schedule.Generate(subject, term) {
				card := domain.Card{
					Owner:         owner,
					SubjectID:     subject.ID,
					SubjectName:   subject.Name,
					SubjectColour: subject.Colour,
					Title:         draft.Title,
					Points:        draft.Points,
					Date:          draft.Date,
				}
				created, err := repo.GetOrCreateCard(ctx, &card)
				if err != nil {
					return err
				}
				if created {
					res.Cards++
				}
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("card regeneration failed", "owner", owner, "error", err)
		return Result{}, domainerrors.Persistence(err)
	}

	r.logger.Info("cards regenerated",
		"owner", owner,
		"commence", term.Commence.Format(domain.DateLayout),
		"midsem_break", term.MidsemBreak.Format(domain.DateLayout),
		"deleted", res.Deleted,
		"subjects", res.Subjects,
		"cards", res.Cards,
	)
	return res, nil
}

func (r *Regenerator) lock(owner string) func() {
	v, _ := r.locks.LoadOrStore(owner, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
