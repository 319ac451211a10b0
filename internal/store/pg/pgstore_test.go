package pg

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"sentra.org/internal/auth"
)

// passthroughConverter falls back to passing values through unchanged when
// the default converter rejects them (e.g. []string, which the real pgx
// driver accepts but sqlmock's default converter does not).
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v any) (driver.Value, error) {
	if converted, err := driver.DefaultParameterConverter.ConvertValue(v); err == nil {
		return converted, nil
	}
	return driver.Value(v), nil
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthroughConverter{}))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestRecordRefreshIssuedIdempotent(t *testing.T) {
	store, mock := newMockStore(t)
	exp := time.Now().Add(time.Hour)

	mock.ExpectExec("insert into refresh_tokens").
		WithArgs("jti-1", "user-1", exp).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into refresh_tokens").
		WithArgs("jti-1", "user-1", exp).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Tokens().RecordRefreshIssued(context.Background(), "jti-1", "user-1", exp); err != nil {
		t.Fatalf("RecordRefreshIssued: %v", err)
	}
	if err := store.Tokens().RecordRefreshIssued(context.Background(), "jti-1", "user-1", exp); err != nil {
		t.Fatalf("RecordRefreshIssued again: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindRefreshAbsent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select jti, user_id, created_at, expires_at, revoked").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"jti", "user_id", "created_at", "expires_at", "revoked", "replaced_by"}))

	_, err := store.Tokens().FindRefresh(context.Background(), "missing")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindRefreshReturnsRecord(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Now().Add(-time.Minute)
	exp := time.Now().Add(time.Hour)

	mock.ExpectQuery("select jti, user_id, created_at, expires_at, revoked").
		WithArgs("jti-2").
		WillReturnRows(sqlmock.NewRows([]string{"jti", "user_id", "created_at", "expires_at", "revoked", "replaced_by"}).
			AddRow("jti-2", "user-1", created, exp, true, ""))

	rec, err := store.Tokens().FindRefresh(context.Background(), "jti-2")
	if err != nil {
		t.Fatalf("FindRefresh: %v", err)
	}
	if rec.UserID != "user-1" || !rec.Revoked {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokeRefreshScopedToUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update refresh_tokens set revoked=true").
		WithArgs("jti-3", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Tokens().RevokeRefresh(context.Background(), "jti-3", "user-1"); err != nil {
		t.Fatalf("RevokeRefresh: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIsAccessBlacklisted(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select exists").
		WithArgs("jti-4").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	blocked, err := store.Tokens().IsAccessBlacklisted(context.Background(), "jti-4")
	if err != nil {
		t.Fatalf("IsAccessBlacklisted: %v", err)
	}
	if !blocked {
		t.Fatalf("expected blacklisted jti")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBlacklistAccessPersistsCreatedAt(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	exp := now.Add(15 * time.Minute)

	mock.ExpectExec("insert into revoked_access_tokens").
		WithArgs("jti-9", "user-2", now, exp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Tokens().BlacklistAccess(context.Background(), &auth.RevokedAccessToken{
		JTI: "jti-9", UserID: "user-2", CreatedAt: now, ExpiresAt: exp,
	})
	if err != nil {
		t.Fatalf("BlacklistAccess: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRulesForEmptyRoleSetSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	rules, err := store.Rules().RulesFor(context.Background(), nil, "items")
	if err != nil {
		t.Fatalf("RulesFor: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected no rules, got %d", len(rules))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRulesForJoinsOnElementCode(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from access_rules ar").
		WithArgs("items", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "role_id", "element_id",
			"read", "read_all", "create", "update_own", "update_all", "delete_own", "delete_all",
		}).
			AddRow("rule-1", "role-a", "el-items", true, false, true, true, false, false, false).
			AddRow("rule-2", "role-b", "el-items", false, true, false, false, true, false, false))

	rules, err := store.Rules().RulesFor(context.Background(), []string{"role-a", "role-b"}, "items")
	if err != nil {
		t.Fatalf("RulesFor: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if !rules[0].Read || !rules[1].ReadAll {
		t.Fatalf("flags not preserved: %+v", rules)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeactivateRunsOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	exp := now.Add(30 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec("insert into revoked_access_tokens").
		WithArgs("jti-5", "user-1", now, exp).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("update refresh_tokens set revoked=true").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("update users set is_active=false").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Users().Deactivate(context.Background(), "user-1", &auth.RevokedAccessToken{
		JTI: "jti-5", UserID: "user-1", CreatedAt: now, ExpiresAt: exp,
	})
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeactivateUnknownUserRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens set revoked=true").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("update users set is_active=false").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Users().Deactivate(context.Background(), "ghost", nil)
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "dup@example.com", "A", "", "B", sqlmock.AnyArg(), true).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.Users().Create(context.Background(), &auth.User{
		Email: "dup@example.com", FirstName: "A", LastName: "B", PasswordHash: "x", Active: true,
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestItemListScopeNoneSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	out, err := store.Items().List(context.Background(), auth.ScopeNone, "user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty list, got %d", len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestItemListScopeOwnFiltersByOwner(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("from items i join users u").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "owner_id", "email", "created_at", "updated_at"}).
			AddRow("item-1", "mine", "user-1", "me@example.com", now, now))

	out, err := store.Items().List(context.Background(), auth.ScopeOwn, "user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].OwnerEmail != "me@example.com" {
		t.Fatalf("unexpected items: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
