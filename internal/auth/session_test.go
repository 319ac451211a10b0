package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentra.org/internal/auth"
	"sentra.org/internal/store/memory"
	"sentra.org/internal/token"
)

func newTestSessions(t *testing.T, store auth.Store, opts ...auth.SessionOption) *auth.Sessions {
	t.Helper()
	codec, err := token.NewCodec("session-test-secret", "sentra-test")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return auth.NewSessions(codec, store, opts...)
}

func registerActiveUser(t *testing.T, s *auth.Sessions, email string) *auth.User {
	t.Helper()
	u, err := s.Register(context.Background(), auth.RegisterInput{
		Email:           email,
		FirstName:       "Test",
		LastName:        "User",
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestRegisterValidation(t *testing.T) {
	s := newTestSessions(t, memory.NewStore())

	_, err := s.Register(context.Background(), auth.RegisterInput{
		Email:           "not-an-email",
		Password:        "short",
		PasswordConfirm: "different",
	})
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	var verr *auth.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	for _, field := range []string{"email", "password", "password2"} {
		if verr.Fields[field] == "" {
			t.Fatalf("expected detail for field %q: %v", field, verr.Fields)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestSessions(t, memory.NewStore())
	registerActiveUser(t, s, "dup@example.com")

	_, err := s.Register(context.Background(), auth.RegisterInput{
		Email:           "dup@example.com",
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestLoginIssuesTokenPairAndRecordsRefresh(t *testing.T) {
	store := memory.NewStore()
	s := newTestSessions(t, store)
	registerActiveUser(t, s, "alice@example.com")

	res, err := s.Login(context.Background(), "Alice@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if !res.RefreshExpiresAt.After(res.AccessExpiresAt) {
		t.Fatal("refresh must outlive access")
	}
	// The refresh record was persisted non-revoked: the token is usable.
	if _, _, err := s.Refresh(context.Background(), res.RefreshToken); err != nil {
		t.Fatalf("fresh refresh token must work: %v", err)
	}
}

func TestLoginFailuresCollapse(t *testing.T) {
	store := memory.NewStore()
	s := newTestSessions(t, store)
	u := registerActiveUser(t, s, "bob@example.com")
	ctx := context.Background()

	if _, err := s.Login(ctx, "missing@example.com", "whatever"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("missing user: expected ErrUnauthorized, got %v", err)
	}
	if _, err := s.Login(ctx, "bob@example.com", "wrong-password"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("bad password: expected ErrUnauthorized, got %v", err)
	}
	if err := s.Deactivate(ctx, u.ID, ""); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := s.Login(ctx, "bob@example.com", "correct-horse"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("inactive user: expected ErrUnauthorized, got %v", err)
	}
}

func TestRefreshHappyPath(t *testing.T) {
	s := newTestSessions(t, memory.NewStore())
	registerActiveUser(t, s, "carol@example.com")
	ctx := context.Background()

	res, err := s.Login(ctx, "carol@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	access, exp, err := s.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if access == "" || !exp.After(time.Now()) {
		t.Fatal("expected fresh access token")
	}
	// Non-rotating: the same refresh token stays usable.
	if _, _, err := s.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	s := newTestSessions(t, memory.NewStore())
	registerActiveUser(t, s, "dave@example.com")
	ctx := context.Background()

	res, err := s.Login(ctx, "dave@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, _, err := s.Refresh(ctx, res.AccessToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong token type, got %v", err)
	}
}

func TestRefreshFailsClosedWithoutRecord(t *testing.T) {
	// Two session services share one codec but not one store: the second
	// store never saw the refresh record, so a cryptographically valid
	// token must still be refused.
	codec, err := token.NewCodec("session-test-secret", "sentra-test")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	issuing := auth.NewSessions(codec, memory.NewStore())
	recordless := auth.NewSessions(codec, memory.NewStore())
	registerActiveUser(t, issuing, "erin@example.com")
	ctx := context.Background()

	res, err := issuing.Login(ctx, "erin@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, _, err := recordless.Refresh(ctx, res.RefreshToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected fail-closed on absent record, got %v", err)
	}
}

func TestRevokedRefreshStaysDead(t *testing.T) {
	store := memory.NewStore()
	s := newTestSessions(t, store)
	u := registerActiveUser(t, s, "frank@example.com")
	ctx := context.Background()

	res, err := s.Login(ctx, "frank@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := s.Logout(ctx, u.ID, res.AccessToken, res.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	// Not yet time-expired, still must be refused.
	if _, _, err := s.Refresh(ctx, res.RefreshToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for revoked refresh, got %v", err)
	}
}

func TestLogoutWithExplicitRefreshLeavesOtherSessions(t *testing.T) {
	store := memory.NewStore()
	s := newTestSessions(t, store)
	u := registerActiveUser(t, s, "gwen@example.com")
	ctx := context.Background()

	first, err := s.Login(ctx, "gwen@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := s.Login(ctx, "gwen@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := s.Logout(ctx, u.ID, first.AccessToken, first.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, _, err := s.Refresh(ctx, first.RefreshToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("logged-out session must not refresh, got %v", err)
	}
	if _, _, err := s.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("concurrent session must stay valid, got %v", err)
	}
	// The logged-out access token is now blacklisted.
	if _, err := s.Authenticate(ctx, first.AccessToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected blacklisted access token to fail, got %v", err)
	}
	if _, err := s.Authenticate(ctx, second.AccessToken); err != nil {
		t.Fatalf("second access token must still authenticate: %v", err)
	}
}

func TestLogoutWithoutRefreshRevokesEverything(t *testing.T) {
	store := memory.NewStore()
	s := newTestSessions(t, store)
	u := registerActiveUser(t, s, "hank@example.com")
	ctx := context.Background()

	first, err := s.Login(ctx, "hank@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := s.Login(ctx, "hank@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := s.Logout(ctx, u.ID, first.AccessToken, ""); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	for _, refresh := range []string{first.RefreshToken, second.RefreshToken} {
		if _, _, err := s.Refresh(ctx, refresh); !errors.Is(err, auth.ErrUnauthorized) {
			t.Fatalf("logout-everywhere must revoke all refresh tokens, got %v", err)
		}
	}
}

func TestLogoutToleratesDeadAccessToken(t *testing.T) {
	store := memory.NewStore()
	s := newTestSessions(t, store)
	u := registerActiveUser(t, s, "iris@example.com")

	if err := s.Logout(context.Background(), u.ID, "garbage-token", ""); err != nil {
		t.Fatalf("logout must never fail for a dead session: %v", err)
	}
}

func TestDeactivateCascades(t *testing.T) {
	store := memory.NewStore()
	s := newTestSessions(t, store)
	u := registerActiveUser(t, s, "judy@example.com")
	ctx := context.Background()

	res, err := s.Login(ctx, "judy@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := s.Deactivate(ctx, u.ID, res.AccessToken); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	if _, err := s.Authenticate(ctx, res.AccessToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("deactivated user's access token must fail, got %v", err)
	}
	if _, _, err := s.Refresh(ctx, res.RefreshToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("deactivated user's refresh must fail, got %v", err)
	}
	if _, err := s.Login(ctx, "judy@example.com", "correct-horse"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("login after deactivation must fail, got %v", err)
	}
}

func TestAuthenticateResolvesRoles(t *testing.T) {
	store := memory.NewStore()
	s := newTestSessions(t, store)
	u := registerActiveUser(t, s, "kate@example.com")
	ctx := context.Background()

	admin := &auth.Role{Name: "admin"}
	if err := store.Roles().Create(ctx, admin); err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := store.Users().AssignRole(ctx, u.ID, admin.ID); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	res, err := s.Login(ctx, "kate@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	p, err := s.Authenticate(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.User.ID != u.ID {
		t.Fatalf("wrong principal: %s", p.User.ID)
	}
	if !p.IsAdmin() {
		t.Fatal("expected admin principal")
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	s := newTestSessions(t, memory.NewStore())
	registerActiveUser(t, s, "leo@example.com")
	ctx := context.Background()

	res, err := s.Login(ctx, "leo@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := s.Authenticate(ctx, res.RefreshToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("refresh token on an authenticated call must fail, got %v", err)
	}
}

func TestExpiredAccessTokenFailsAuthentication(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	current := now
	codec, err := token.NewCodec("session-test-secret", "sentra-test",
		token.WithClock(func() time.Time { return current }))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	s := auth.NewSessions(codec, store, auth.WithClock(func() time.Time { return current }))
	registerActiveUser(t, s, "mia@example.com")
	ctx := context.Background()

	res, err := s.Login(ctx, "mia@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	current = now.Add(31 * time.Minute)
	if _, err := s.Authenticate(ctx, res.AccessToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expired access must fail, got %v", err)
	}
	// The refresh token is still within its 7 day window.
	if _, _, err := s.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("refresh must survive access expiry: %v", err)
	}
}
