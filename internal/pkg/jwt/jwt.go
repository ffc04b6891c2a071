package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSecret = "qalam-news-secret-change-me"

var (
	// ErrTokenExpired is returned when the current time is past the token's expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers signature, algorithm and structure failures.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the JWT payload.
type Claims struct {
	UserID      string   `json:"uid"`
	Role        string   `json:"role"`
	Permissions []string `json:"perms"`
	jwtlib.RegisteredClaims
}

// IssuedAtTime returns iat in UTC at second precision.
func (c *Claims) IssuedAtTime() time.Time { return numericTime(c.IssuedAt) }

// ExpiresAtTime returns exp in UTC at second precision.
func (c *Claims) ExpiresAtTime() time.Time { return numericTime(c.ExpiresAt) }

// Signer signs and verifies HS256 tokens with a fixed lifetime.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides the time source used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// New creates a Signer. An empty secret falls back to the development default.
func New(secret string, ttl time.Duration, opts ...Option) *Signer {
	if secret == "" {
		secret = defaultSecret
	}
	s := &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the token lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign creates a signed token for the given identity.
func (s *Signer) Sign(userID, role string, permissions []string) (string, *Claims, error) {
	now := s.now().Truncate(time.Second)
	claims := &Claims{
		UserID:      userID,
		Role:        role,
		Permissions: append([]string{}, permissions...),
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse validates a token string and returns the claims.
// Expiry is checked here rather than by the library so that a token stays valid
// up to and including its exp second.
func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing required claims", ErrTokenInvalid)
	}
	if s.now().After(claims.ExpiresAtTime()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func numericTime(d *jwtlib.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return time.Unix(d.Unix(), 0).UTC()
}
