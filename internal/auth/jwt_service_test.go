package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestIssueAndValidate(t *testing.T) {
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "estatehub",
		AccessTokenTTL: time.Hour,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	issued, err := svc.Issue("user-123", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "Bearer", issued.TokenType)
	require.Equal(t, current.Add(time.Hour), issued.ExpiresAt)

	claims, err := svc.Validate(issued.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "user-123", claims.Subject)

	current = current.Add(2 * time.Hour)
	_, err = svc.Validate(issued.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "super-secret", Issuer: "estatehub"})
	require.NoError(t, err)

	other, err := NewJWTService(JWTConfig{Secret: "other-secret", Issuer: "estatehub"})
	require.NoError(t, err)
	issued, err := other.Issue("u", "u@example.com")
	require.NoError(t, err)
	_, err = svc.Validate(issued.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTService(JWTConfig{Secret: "super-secret", Issuer: "elsewhere"})
	require.NoError(t, err)
	issued, err = wrongIssuer.Issue("u", "u@example.com")
	require.NoError(t, err)
	_, err = svc.Validate(issued.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	noEmail := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           "u",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "estatehub"},
	})
	signed, err := noEmail.SignedString([]byte("super-secret"))
	require.NoError(t, err)
	_, err = svc.Validate(signed)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = svc.Issue("", "x@example.com")
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc.def")
	require.True(t, ok)
	require.Equal(t, "abc.def", token)

	_, ok = BearerToken("Basic abc")
	require.False(t, ok)
	_, ok = BearerToken("Bearer ")
	require.False(t, ok)
}
