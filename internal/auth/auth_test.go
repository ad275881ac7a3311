package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignParseRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSigner(Config{Secret: "test-secret", TokenTTL: time.Hour})

	token, expiresAt, err := s.Sign(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.After(time.Now()))

	userID, err := s.Parse(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)
}

func TestParseExpiredToken(t *testing.T) {
	t.Parallel()

	s := NewSigner(Config{Secret: "test-secret", TokenTTL: -time.Minute})

	token, _, err := s.Sign(42)
	require.NoError(t, err)

	_, err = s.Parse(token)
	require.Equal(t, ErrInvalidToken, err)
}

func TestParseWrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewSigner(Config{Secret: "one", TokenTTL: time.Hour})
	verifier := NewSigner(Config{Secret: "another", TokenTTL: time.Hour})

	token, _, err := issuer.Sign(42)
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	require.Equal(t, ErrInvalidToken, err)
}

func TestParseGarbage(t *testing.T) {
	t.Parallel()

	s := NewSigner(Config{Secret: "test-secret", TokenTTL: time.Hour})

	_, err := s.Parse("not-a-token")
	require.Equal(t, ErrInvalidToken, err)
}

func TestHashCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", hash)

	require.True(t, CheckPassword(hash, "hunter22"))
	require.False(t, CheckPassword(hash, "hunter23"))
}
