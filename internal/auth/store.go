package auth

import (
	"context"
	"time"
)

// Store bundles the persistence operations required by the auth subsystem.
// All implementations must back onto a single transactional store: revocation
// committed by one request has to be visible to every later check.
type Store interface {
	Users() UserStore
	Roles() RoleStore
	Elements() ElementStore
	Rules() RuleStore
	Tokens() TokenStore
}

// UserStore manages identities and their role assignments.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)

	Roles(ctx context.Context, userID string) ([]Role, error)
	AssignRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error

	// Deactivate atomically blacklists the presented access token (when
	// non-nil), revokes every live refresh token of the user and flips the
	// user inactive. Partial revocation must never be observable.
	Deactivate(ctx context.Context, userID string, access *RevokedAccessToken) error
}

// RoleStore manages the flat role catalog.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	List(ctx context.Context) ([]Role, error)
	Find(ctx context.Context, id string) (*Role, error)
	Update(ctx context.Context, id, name string) (*Role, error)
	Delete(ctx context.Context, id string) error
}

// ElementStore manages protected resource categories.
type ElementStore interface {
	Create(ctx context.Context, el *Element) error
	List(ctx context.Context) ([]Element, error)
	Find(ctx context.Context, id string) (*Element, error)
	FindByCode(ctx context.Context, code string) (*Element, error)
	Update(ctx context.Context, id string, code, name *string) (*Element, error)
	Delete(ctx context.Context, id string) error
}

// RuleStore manages the Role×Element permission matrix.
type RuleStore interface {
	Create(ctx context.Context, rule *AccessRule) error
	List(ctx context.Context) ([]AccessRule, error)
	Find(ctx context.Context, id string) (*AccessRule, error)
	Update(ctx context.Context, rule *AccessRule) error
	Delete(ctx context.Context, id string) error

	// RulesFor returns the explicit rule rows for the given roles against
	// one element code: zero or more, at most one per role.
	RulesFor(ctx context.Context, roleIDs []string, elementCode string) ([]AccessRule, error)
}

// TokenStore is the durable bookkeeping for revocation of otherwise
// stateless tokens.
type TokenStore interface {
	// RecordRefreshIssued upserts the refresh record for jti with
	// revoked=false. Re-recording the same jti is a no-op.
	RecordRefreshIssued(ctx context.Context, jti, userID string, expiresAt time.Time) error
	// FindRefresh returns ErrNotFound for an absent record; callers that
	// require a pre-existing record fail closed on that.
	FindRefresh(ctx context.Context, jti string) (*RefreshTokenRecord, error)
	// RevokeRefresh marks one non-revoked record of the user revoked.
	// Revoking an already-revoked or absent record is a no-op.
	RevokeRefresh(ctx context.Context, jti, userID string) error
	// RevokeAllRefresh marks every non-revoked record of the user revoked.
	RevokeAllRefresh(ctx context.Context, userID string) error

	// BlacklistAccess records an access jti as revoked until its natural
	// expiry. Inserting a known jti is a no-op.
	BlacklistAccess(ctx context.Context, entry *RevokedAccessToken) error
	IsAccessBlacklisted(ctx context.Context, jti string) (bool, error)
}
