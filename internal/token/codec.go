// Package token issues and verifies the signed bearer tokens used by the
// session layer. Tokens are self-contained: verification proves only that a
// token was validly issued and has not time-expired. Revocation checks are
// the caller's responsibility.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type discriminates access tokens from refresh tokens.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

var (
	// ErrMalformed indicates a structurally invalid token or a signature
	// mismatch.
	ErrMalformed = errors.New("token: malformed")
	// ErrExpired indicates the token is past its expiry beyond the
	// configured leeway.
	ErrExpired = errors.New("token: expired")
	// ErrWrongType indicates a valid token presented for the wrong purpose,
	// e.g. a refresh token on an authenticated request.
	ErrWrongType = errors.New("token: wrong type")
)

// Claims is the wire payload: sub, type, iat, exp and jti.
type Claims struct {
	TokenType Type `json:"type"`
	jwt.RegisteredClaims
}

// Payload is the verified content returned to callers.
type Payload struct {
	Subject   string
	Type      Type
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies tokens with a single symmetric secret and HS256.
type Codec struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithLeeway overrides the clock-skew tolerance applied during verification.
func WithLeeway(d time.Duration) Option {
	return func(c *Codec) {
		if d >= 0 {
			c.leeway = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec. The secret must be non-empty.
func NewCodec(secret, issuer string, opts ...Option) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token: secret is required")
	}
	c := &Codec{
		secret: []byte(secret),
		issuer: issuer,
		leeway: 5 * time.Second,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token of the given type for subject, valid for ttl. A fresh
// jti is generated per token; it is the revocation key.
func (c *Codec) Issue(subject string, typ Type, ttl time.Duration) (string, Payload, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", Payload{}, errors.New("token: subject is required")
	}
	if ttl <= 0 {
		return "", Payload{}, errors.New("token: ttl must be positive")
	}

	now := c.now().UTC()
	payload := Payload{
		Subject:   subject,
		Type:      typ,
		JTI:       uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	claims := Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(payload.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(payload.ExpiresAt),
			ID:        payload.JTI,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", Payload{}, err
	}
	return signed, payload, nil
}

// Verify checks signature, structure and expiry, and that the token carries
// the expected type. Expiry is checked against the injected clock with the
// configured leeway.
func (c *Codec) Verify(raw string, expected Type) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, ErrMalformed
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrMalformed
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Payload{}, ErrExpired
		}
		return Payload{}, ErrMalformed
	}
	if claims.Subject == "" || claims.ID == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return Payload{}, ErrMalformed
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return Payload{}, ErrMalformed
	}
	if claims.TokenType != expected {
		return Payload{}, ErrWrongType
	}
	return Payload{
		Subject:   claims.Subject,
		Type:      claims.TokenType,
		JTI:       claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
