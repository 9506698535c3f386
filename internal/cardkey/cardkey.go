package cardkey

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/conorfennell/lectern/internal/domain"
)

// Normalize joins the fields that identify a card, one per line:
// owner, subject ID, title, points and due date. The title is trimmed and
// its line endings normalised so that cosmetic differences do not create a
// second card.
func Normalize(card domain.Card) string {
	title := strings.TrimSpace(strings.ReplaceAll(card.Title, "\r\n", "\n"))

	return strings.Join([]string{
		card.Owner,
		strconv.FormatInt(card.SubjectID, 10),
		title,
		strconv.Itoa(card.Points),
		card.Date.Format(domain.DateLayout),
	}, "\n")
}

// Key returns the SHA-256 hash of the normalised card identity as a hex
// string. Two cards with the same key are the same card.
func Key(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return fmt.Sprintf("%x", sum)
}
