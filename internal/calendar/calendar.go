// Package calendar renders review cards as an iCalendar feed so the
// schedule can be subscribed to from a calendar app.
package calendar

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/conorfennell/lectern/internal/domain"
)

const productID = "-//lectern//review cards//EN"

// Build returns a calendar with one all-day event per card.
func Build(name string, cards []domain.Card, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(name)

	for _, card := range cards {
		event := cal.AddEvent(EventID(card.ID))
		event.SetDtStampTime(stamp)
		event.SetSummary(card.Title)
		event.SetDescription(fmt.Sprintf("%d points · %s", card.Points, card.SubjectName))
		event.SetAllDayStartAt(card.Date)
		event.SetAllDayEndAt(card.Date.AddDate(0, 0, 1))
		if card.SubjectColour.Valid() {
			event.SetColor(card.SubjectColour.Name())
		}
		event.SetTimeTransparency(ical.TransparencyTransparent)
	}
	return cal
}

// Write serialises the calendar for cards to w.
func Write(w io.Writer, name string, cards []domain.Card, stamp time.Time) error {
	if err := Build(name, cards, stamp).SerializeTo(w); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}

// EventID is the stable UID of a card's event.
func EventID(cardID int64) string {
	return fmt.Sprintf("card-%d@lectern", cardID)
}
