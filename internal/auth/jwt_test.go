package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_IssueAndParseAdmin(t *testing.T) {
	s := NewSigner("s3cret", "drugbox")

	tok, err := s.Issue("ops@example.com", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := s.ParseAdmin(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestSigner_RejectsNonAdmin(t *testing.T) {
	s := NewSigner("s3cret", "drugbox")
	tok, err := s.Issue("nurse", "viewer", time.Hour)
	require.NoError(t, err)

	_, err = s.Parse(tok)
	require.NoError(t, err)

	_, err = s.ParseAdmin(tok)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSigner_RejectsBadTokens(t *testing.T) {
	s := NewSigner("s3cret", "drugbox")

	expired, err := s.Issue("a", RoleAdmin, -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewSigner("different", "drugbox").Issue("a", RoleAdmin, time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewSigner("s3cret", "someone-else").Issue("a", RoleAdmin, time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "drugbox"},
		Role:             RoleAdmin,
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "drugbox",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAdmin,
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not.a.jwt",
		"empty":        "",
		"expired":      expired,
		"other key":    otherKey,
		"other issuer": otherIssuer,
		"no expiry":    noExpiry,
		"wrong alg":    hs512,
	} {
		_, err := s.ParseAdmin(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}
