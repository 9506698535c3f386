package cardkey

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conorfennell/lectern/internal/domain"
)

func testCard() domain.Card {
	return domain.Card{
		Owner:     "user-1",
		SubjectID: 42,
		Title:     "Algorithms Lecture 3",
		Points:    5,
		Date:      domain.Date(2024, 2, 20),
	}
}

func TestNormalize(t *testing.T) {
	card := testCard()
	card.Title = "  Algorithms Lecture 3 \r\n"

	assert.Equal(t, "user-1\n42\nAlgorithms Lecture 3\n5\n2024-02-20", Normalize(card))
}

func TestKey(t *testing.T) {
	t.Run("stable for the same identity", func(t *testing.T) {
		a := testCard()
		b := testCard()
		b.ID = 99
		b.SubjectName = "ignored"

		assert.Equal(t, Key(a), Key(b))
		assert.Len(t, Key(a), 64)
	})

	t.Run("differs per identifying field", func(t *testing.T) {
		base := Key(testCard())
		mutations := map[string]func(*domain.Card){
			"owner":   func(c *domain.Card) { c.Owner = "user-2" },
			"subject": func(c *domain.Card) { c.SubjectID = 43 },
			"title":   func(c *domain.Card) { c.Title = "Algorithms Lecture 4" },
			"points":  func(c *domain.Card) { c.Points = 2 },
			"date":    func(c *domain.Card) { c.Date = domain.Date(2024, 2, 21) },
		}
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				card := testCard()
				mutate(&card)
				assert.NotEqual(t, base, Key(card))
			})
		}
	})
}
