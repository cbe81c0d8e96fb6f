package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("GoodPass1!")
	require.NoError(t, err)
	require.NotEqual(t, "GoodPass1!", hash)

	require.True(t, VerifyPassword(hash, "GoodPass1!"))
	require.False(t, VerifyPassword(hash, "GoodPass1?"))
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	require.False(t, VerifyPassword("not-a-bcrypt-digest", "whatever"))
	require.False(t, VerifyPassword("", "whatever"))
}

func TestGenerateTokenLengthAndUniqueness(t *testing.T) {
	first, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestDeriveSocialSecretDeterministic(t *testing.T) {
	a := DeriveSocialSecret("google", "subject-123")
	b := DeriveSocialSecret("google", "subject-123")
	require.Equal(t, a, b)

	require.NotEqual(t, a, DeriveSocialSecret("google", "subject-124"))
	require.NotEqual(t, a, DeriveSocialSecret("facebook", "subject-123"))
}
