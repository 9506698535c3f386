package service

import (
	"strings"

	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
	"github.com/conorfennell/lectern/internal/schedule"
)

// ParseTerm parses the commencement and break dates of a create-cards
// request (YYYY-MM-DD). It returns ErrMissingFields, ErrInvalidDate or
// ErrInvalidDateOrder.
func ParseTerm(commence, midsemBreak string) (schedule.Term, error) {
	commence = strings.TrimSpace(commence)
	midsemBreak = strings.TrimSpace(midsemBreak)
	if commence == "" || midsemBreak == "" {
		return schedule.Term{}, domainerrors.ErrMissingFields
	}

	start, err := domain.ParseDate(commence)
	if err != nil {
		return schedule.Term{}, domainerrors.ErrInvalidDate.WithCause(err)
	}
	brk, err := domain.ParseDate(midsemBreak)
	if err != nil {
		return schedule.Term{}, domainerrors.ErrInvalidDate.WithCause(err)
	}

	if !brk.After(start) {
		return schedule.Term{}, domainerrors.ErrInvalidDateOrder
	}
	return schedule.Term{Commence: start, MidsemBreak: brk}, nil
}
