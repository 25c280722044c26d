package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret-password")
	require.NoError(t, err)

	require.True(t, VerifyPassword(hash, "secret-password"))
	require.False(t, VerifyPassword(hash, "incorrect"))
}

func TestHashPasswordRejectsShortPasswords(t *testing.T) {
	_, err := HashPassword("short")
	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestGenerateToken(t *testing.T) {
	first, err := GenerateToken(32)
	require.NoError(t, err)
	second, err := GenerateToken(32)
	require.NoError(t, err)

	require.NotEmpty(t, first)
	require.NotEqual(t, first, second)
}

func TestHashTokenMatches(t *testing.T) {
	digest := HashToken("invite-token")

	require.Len(t, digest, 64)
	require.True(t, TokenMatches("invite-token", digest))
	require.False(t, TokenMatches("other-token", digest))
}
