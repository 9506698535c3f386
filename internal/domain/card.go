package domain

import (
	"fmt"
	"time"
)

// Card is a persisted review task for one lecture and one delay tier.
type Card struct {
	ID            int64
	Owner         string
	SubjectID     int64
	SubjectName   string
	SubjectColour Colour
	Title         string
	Points        int
	Date          time.Time
}

// Draft is a card produced by the scheduler before it is persisted.
type Draft struct {
	Title       string
	SubjectName string
	Points      int
	Date        time.Time
}

// LectureTitle formats the title shared by every card of a lecture.
func LectureTitle(subject string, lecture int) string {
	return fmt.Sprintf("%s Lecture %d", subject, lecture)
}
