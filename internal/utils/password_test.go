package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong-pass"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "s3cret-pass"))
}

func TestHashPasswordSalts(t *testing.T) {
	a, err := HashPassword("same-input", 4)
	require.NoError(t, err)
	b, err := HashPassword("same-input", 4)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := RandomHex(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
