// Package auth hashes passwords and issues session tokens.
package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/conorfennell/lectern/internal/id"
)

const (
	tokenIssuer   = "lectern"
	tokenAudience = "lectern-web"
	keyHexSize    = 64
)

// Sessions issues and verifies PASETO v4.local session tokens whose
// subject is the user ID.
type Sessions struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
	now func() time.Time
}

// NewSessions creates a session issuer. An empty keyHex generates a random
// key, so issued sessions only live as long as the process.
func NewSessions(keyHex string, ttl time.Duration) (*Sessions, error) {
	var key paseto.V4SymmetricKey
	if keyHex == "" {
		key = paseto.NewV4SymmetricKey()
	} else {
		if len(keyHex) != keyHexSize {
			return nil, fmt.Errorf("session key must be %d hex characters, got %d", keyHexSize, len(keyHex))
		}
		k, err := paseto.V4SymmetricKeyFromHex(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid session key: %w", err)
		}
		key = k
	}
	return &Sessions{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL is how long issued sessions stay valid.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Issue creates an encrypted token for userID and returns it with its
// expiry time.
func (s *Sessions) Issue(userID string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	tokenID, err := id.Generate("sess")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token ID: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(userID)
	token.SetJti(tokenID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)

	return token.V4Encrypt(s.key, nil), expires, nil
}

// Verify decrypts a token and returns the user ID it was issued for.
func (s *Sessions) Verify(tokenString string) (string, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}

	userID, err := token.GetSubject()
	if err != nil || userID == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return userID, nil
}
