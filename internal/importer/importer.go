// Package importer creates subjects from timetable files on disk or in a
// git repository.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
	"github.com/conorfennell/lectern/internal/gitsource"
	"github.com/conorfennell/lectern/internal/parser"
	"github.com/conorfennell/lectern/internal/service"
)

// SubjectCreator is the part of service.Subjects the importer needs.
type SubjectCreator interface {
	Create(ctx context.Context, owner string, in service.SubjectInput) (*domain.Subject, error)
}

// Report summarises an import run.
type Report struct {
	Files   int
	Created int
	Skipped int
	Errors  []error
}

// Importer reads timetables and creates their subjects for one owner.
type Importer struct {
	subjects SubjectCreator
	reposDir string
	logger   *slog.Logger
}

// New creates an Importer. Remote repositories are checked out under
// reposDir.
func New(subjects SubjectCreator, reposDir string, logger *slog.Logger) *Importer {
	return &Importer{subjects: subjects, reposDir: reposDir, logger: logger}
}

// Import reads every timetable at source, a file, a directory or a git
// URL, and creates the subjects it lists for owner. Subjects that already
// exist are skipped. Problems with single entries are collected in the
// report; only failures that stop the whole run are returned.
func (im *Importer) Import(ctx context.Context, owner, source string) (Report, error) {
	path := source
	if gitsource.IsGitURL(source) {
		local, err := gitsource.LocalPath(im.reposDir, source)
		if err != nil {
			return Report{}, err
		}
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return Report{}, fmt.Errorf("failed to create repos directory: %w", err)
		}
		if err := gitsource.Sync(ctx, im.logger, source, local); err != nil {
			return Report{}, err
		}
		path = local
	}

	info, err := os.Stat(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read timetable source: %w", err)
	}

	var report Report
	if !info.IsDir() {
		err = im.importFile(ctx, owner, path, &report)
	} else {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if !parser.Supported(p) {
				return nil
			}
			return im.importFile(ctx, owner, p, &report)
		})
	}
	if err != nil {
		return report, err
	}

	im.logger.Info("timetable import complete",
		"owner", owner,
		"source", source,
		"files", report.Files,
		"created", report.Created,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
	)
	for _, e := range report.Errors {
		im.logger.Warn("timetable entry not imported", "error", e)
	}
	return report, nil
}

func (im *Importer) importFile(ctx context.Context, owner, path string, report *Report) error {
	entries, err := parser.ParseFile(path)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, err))
		return nil
	}
	report.Files++

	for _, entry := range entries {
		days, err := entry.Weekdays()
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("%s:%d: %w", path, entry.Line, err))
			continue
		}

		subject, err := im.subjects.Create(ctx, owner, service.SubjectInput{
			Name:   entry.Name,
			Colour: entry.Colour,
			Days:   days,
		})
		switch {
		case err == nil:
			report.Created++
			im.logger.Debug("subject imported", "subject", subject.Name, "file", path)
		case errors.Is(err, domainerrors.ErrAlreadyExists):
			report.Skipped++
			im.logger.Info("subject skipped", "subject", entry.Name, "reason", err.Error())
		case errors.Is(err, domainerrors.ErrValidation):
			report.Errors = append(report.Errors, fmt.Errorf("%s:%d: %w", path, entry.Line, err))
		default:
			return err
		}
	}
	return nil
}
