package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserID(t *testing.T) {
	a, b := NewUserID(), NewUserID()

	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		got, err := Generate("sess")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "sess-"))
		assert.Len(t, got, len("sess-")+21)
		assert.False(t, seen[got], "duplicate id %s", got)
		seen[got] = true
	}
}
