package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
	"github.com/conorfennell/lectern/internal/storage"
	"github.com/conorfennell/lectern/internal/validation"
)

// SubjectInput is the new-subject form.
type SubjectInput struct {
	Name   string `form:"name" validate:"required,max=50"`
	Colour string `form:"colour" validate:"required,oneof=red orange yellow green blue indigo violet"`
	Days   []int  `form:"days" validate:"min=1,dive,gte=0,lte=4"`
}

// Subjects manages an owner's subjects.
type Subjects struct {
	repo     storage.SubjectRepository
	validate *validation.Validator
	logger   *slog.Logger
}

// NewSubjects creates a Subjects service.
func NewSubjects(repo storage.SubjectRepository, v *validation.Validator, logger *slog.Logger) *Subjects {
	return &Subjects{repo: repo, validate: v, logger: logger}
}

// Create validates the input and stores a new subject. Markup in the name
// is stripped before validation, so a name made only of tags is missing.
func (s *Subjects) Create(ctx context.Context, owner string, in SubjectInput) (*domain.Subject, error) {
	in.Name = s.validate.CleanText(in.Name)
	in.Colour = strings.ToLower(strings.TrimSpace(in.Colour))
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	days := make([]domain.Weekday, 0, len(in.Days))
	for _, d := range in.Days {
		days = append(days, domain.Weekday(d))
	}

	subject := &domain.Subject{
		Owner:  owner,
		Name:   in.Name,
		Colour: domain.Colour(in.Colour),
		Days:   domain.NewDaySet(days...),
	}
	if err := s.repo.InsertSubject(ctx, subject); err != nil {
		return nil, domainerrors.Persistence(err)
	}

	s.logger.Info("subject created",
		"owner", owner,
		"subject", subject.Name,
		"colour", subject.Colour,
		"days", subject.Days.String(),
	)
	return subject, nil
}

// List returns the owner's subjects ordered by name.
func (s *Subjects) List(ctx context.Context, owner string) ([]domain.Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx, owner)
	if err != nil {
		return nil, domainerrors.Persistence(err)
	}
	return subjects, nil
}

// Get looks a subject up by name.
func (s *Subjects) Get(ctx context.Context, owner, name string) (*domain.Subject, error) {
	subject, err := s.repo.FindSubjectByName(ctx, owner, name)
	if err != nil {
		return nil, domainerrors.Persistence(err)
	}
	return subject, nil
}

// Delete removes the named subject together with all of its cards.
func (s *Subjects) Delete(ctx context.Context, owner, name string) error {
	subject, err := s.Get(ctx, owner, name)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSubject(ctx, owner, subject.ID); err != nil {
		return domainerrors.Persistence(err)
	}
	s.logger.Info("subject deleted", "owner", owner, "subject", subject.Name)
	return nil
}
