package domain

import "time"

// User is an account that owns subjects and cards.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
