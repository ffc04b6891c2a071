package jwt

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestSignParseRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := New("secret", time.Hour, WithClock(clock.Now))

	token, issued, err := s.Sign("u1", "editor", []string{"create:articles"})
	require.NoError(t, err)

	parsed, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", parsed.UserID)
	assert.Equal(t, "editor", parsed.Role)
	assert.Equal(t, []string{"create:articles"}, parsed.Permissions)
	assert.Equal(t, issued.ID, parsed.ID)
	assert.Equal(t, issued.IssuedAtTime(), parsed.IssuedAtTime())
	assert.Equal(t, issued.ExpiresAtTime(), parsed.ExpiresAtTime())
	assert.Equal(t, clock.t.Add(time.Hour), parsed.ExpiresAtTime())
}

func TestParseExpiryBoundary(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := New("secret", time.Minute, WithClock(clock.Now))

	token, issued, err := s.Sign("u1", "viewer", nil)
	require.NoError(t, err)

	clock.t = issued.ExpiresAtTime()
	_, err = s.Parse(token)
	assert.NoError(t, err, "token must be valid at exactly exp")

	clock.t = issued.ExpiresAtTime().Add(time.Second)
	_, err = s.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseRejectsInvalidTokens(t *testing.T) {
	s := New("secret", time.Hour)
	token, _, err := s.Sign("u1", "admin", nil)
	require.NoError(t, err)

	other := New("other-secret", time.Hour)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tampered := token[:len(token)-2] + "xx"
	_, err = s.Parse(tampered)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = s.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	none := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, &Claims{
		UserID: "u1",
		Role:   "admin",
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Parse(unsigned)
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}

func TestParseRequiresSubject(t *testing.T) {
	s := New("secret", time.Hour)
	token, _, err := s.Sign("", "viewer", nil)
	require.NoError(t, err)

	_, err = s.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
