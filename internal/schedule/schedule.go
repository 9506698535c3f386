package schedule

import (
	"time"

	"github.com/conorfennell/lectern/internal/domain"
)

// TermWeeks is the number of teaching weeks in a semester.
const TermWeeks = 12

// Tier is a fixed review delay after a lecture and the points it is worth.
type Tier struct {
	Delay  int // days after the lecture
	Points int
}

// Tiers are applied, in order, to every lecture occurrence.
var Tiers = [...]Tier{
	{Delay: 1, Points: 10},
	{Delay: 7, Points: 5},
	{Delay: 28, Points: 2},
}

// Term holds the semester boundaries for one generation run.
// MidsemBreak is the first day of the break week and must be after Commence.
type Term struct {
	Commence    time.Time
	MidsemBreak time.Time
}

// Generate enumerates every lecture of subject across the term and returns
// one draft per lecture and tier. It has no side effects.
//
// Lecture numbers come from a single counter that advances once per lecture,
// so a subject meeting D days a week is numbered 1 through 12*D. The week
// after the first anchor date on or past the break is skipped exactly once.
func Generate(subject domain.Subject, term Term) []domain.Draft {
	if len(subject.Days) == 0 {
		return nil
	}

	drafts := make([]domain.Draft, 0, TermWeeks*len(subject.Days)*len(Tiers))
	weekDate := domain.Truncate(term.Commence)
	midsemBreak := domain.Truncate(term.MidsemBreak)
	lecture := 1
	skippedBreak := false

	for week := 0; week < TermWeeks; week++ {
		for _, day := range subject.Days {
			held := weekDate.AddDate(0, 0, int(day))
			title := domain.LectureTitle(subject.Name, lecture)
			for _, tier := range Tiers {
				drafts = append(drafts, domain.Draft{
					Title:       title,
					SubjectName: subject.Name,
					Points:      tier.Points,
					Date:        held.AddDate(0, 0, tier.Delay),
				})
			}
			lecture++
		}

		weekDate = weekDate.AddDate(0, 0, 7)
		if !skippedBreak && !weekDate.Before(midsemBreak) {
			weekDate = weekDate.AddDate(0, 0, 7)
			skippedBreak = true
		}
	}

	return drafts
}
