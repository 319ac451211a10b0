package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sentra.org/internal/token"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Sessions orchestrates the token pair lifecycle: login, refresh, logout and
// account deactivation. It owns no token state itself; the codec proves
// issuance and the store tracks revocation.
type Sessions struct {
	codec *token.Codec
	store Store
	now   func() time.Time

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// SessionOption configures Sessions.
type SessionOption func(*Sessions)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) SessionOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) SessionOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) SessionOption {
	return func(s *Sessions) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewSessions constructs the session service.
func NewSessions(codec *token.Codec, store Store, opts ...SessionOption) *Sessions {
	s := &Sessions{
		codec:      codec,
		store:      store,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidationError carries field-level detail for malformed requests.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// RegisterInput is the self-service registration payload.
type RegisterInput struct {
	Email           string
	FirstName       string
	MiddleName      string
	LastName        string
	Password        string
	PasswordConfirm string
}

// Register creates a new active identity. Weak or mismatched passwords fail
// with field-level detail; a duplicate email fails with ErrConflict.
func (s *Sessions) Register(ctx context.Context, in RegisterInput) (*User, error) {
	fields := map[string]string{}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		fields["email"] = "valid email is required"
	}
	if len(in.Password) < MinPasswordLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	if in.Password != in.PasswordConfirm {
		fields["password2"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		MiddleName:   strings.TrimSpace(in.MiddleName),
		LastName:     strings.TrimSpace(in.LastName),
		Active:       true,
		PasswordHash: hash,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LoginResult is the issued token pair plus the authenticated user.
type LoginResult struct {
	User             *User
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Login authenticates credentials and issues a fresh token pair. A missing
// identity, an inactive identity and a password mismatch all collapse into
// the same ErrUnauthorized.
func (s *Sessions) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return LoginResult{}, ErrUnauthorized
	}
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrUnauthorized
		}
		return LoginResult{}, err
	}
	if !user.Active {
		return LoginResult{}, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrUnauthorized
	}

	access, accessPayload, err := s.codec.Issue(user.ID, token.TypeAccess, s.accessTTL)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, refreshPayload, err := s.codec.Issue(user.ID, token.TypeRefresh, s.refreshTTL)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.Tokens().RecordRefreshIssued(ctx, refreshPayload.JTI, user.ID, refreshPayload.ExpiresAt); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		User:             user,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessPayload.ExpiresAt,
		RefreshExpiresAt: refreshPayload.ExpiresAt,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated; its record must exist and be
// non-revoked, and the subject must still be active. An absent record fails
// closed.
func (s *Sessions) Refresh(ctx context.Context, refreshRaw string) (string, time.Time, error) {
	payload, err := s.codec.Verify(refreshRaw, token.TypeRefresh)
	if err != nil {
		return "", time.Time{}, ErrUnauthorized
	}
	record, err := s.store.Tokens().FindRefresh(ctx, payload.JTI)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, ErrUnauthorized
		}
		return "", time.Time{}, err
	}
	if record.Revoked || s.now().After(record.ExpiresAt) {
		return "", time.Time{}, ErrUnauthorized
	}

	user, err := s.store.Users().Find(ctx, payload.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, ErrUnauthorized
		}
		return "", time.Time{}, err
	}
	if !user.Active {
		return "", time.Time{}, ErrUnauthorized
	}

	access, accessPayload, err := s.codec.Issue(user.ID, token.TypeAccess, s.accessTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return access, accessPayload.ExpiresAt, nil
}

// Logout ends the presented session. The access token is blacklisted
// best-effort: a malformed or already-expired token is tolerated, logout
// never fails for a dead session. With an explicit refresh token only that
// record is revoked; without one every live refresh record of the user is.
func (s *Sessions) Logout(ctx context.Context, userID, accessRaw, refreshRaw string) error {
	s.blacklistAccess(ctx, userID, accessRaw)

	if refreshRaw != "" {
		payload, err := s.codec.Verify(refreshRaw, token.TypeRefresh)
		if err != nil {
			return nil
		}
		return s.store.Tokens().RevokeRefresh(ctx, payload.JTI, userID)
	}
	return s.store.Tokens().RevokeAllRefresh(ctx, userID)
}

// Deactivate blacklists the presented access token, revokes all refresh
// records and flips the identity inactive, atomically. Afterwards login
// fails for these credentials; reactivation is an external administrative
// action.
func (s *Sessions) Deactivate(ctx context.Context, userID, accessRaw string) error {
	var entry *RevokedAccessToken
	if payload, err := s.codec.Verify(accessRaw, token.TypeAccess); err == nil {
		entry = &RevokedAccessToken{
			JTI:       payload.JTI,
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
			ExpiresAt: payload.ExpiresAt,
		}
	}
	return s.store.Users().Deactivate(ctx, userID, entry)
}

// Authenticate is the request-time check run on every authenticated call:
// decode as access token, reject blacklisted jtis, reject missing or
// inactive subjects, and resolve the principal's roles.
func (s *Sessions) Authenticate(ctx context.Context, accessRaw string) (Principal, error) {
	payload, err := s.codec.Verify(accessRaw, token.TypeAccess)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	blacklisted, err := s.store.Tokens().IsAccessBlacklisted(ctx, payload.JTI)
	if err != nil {
		return Principal{}, err
	}
	if blacklisted {
		return Principal{}, ErrUnauthorized
	}
	user, err := s.store.Users().Find(ctx, payload.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	if !user.Active {
		return Principal{}, ErrUnauthorized
	}
	roles, err := s.store.Users().Roles(ctx, user.ID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{User: user, Roles: roles}, nil
}

func (s *Sessions) blacklistAccess(ctx context.Context, userID, accessRaw string) {
	payload, err := s.codec.Verify(accessRaw, token.TypeAccess)
	if err != nil {
		return
	}
	_ = s.store.Tokens().BlacklistAccess(ctx, &RevokedAccessToken{
		JTI:       payload.JTI,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: payload.ExpiresAt,
	})
}
