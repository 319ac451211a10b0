package auth

import "time"

// User is an identity. Users are never hard-deleted: deactivation flips
// Active to false and cascades into token revocation.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	LastName   string    `json:"last_name"`
	Active     bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	PasswordHash string `json:"-"`
}

// Role is a flat label; there is no hierarchy or inheritance between roles.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Element is a protected resource category ("business element"), identified
// by a stable machine code such as "items" or "users".
type Element struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ElementUsers is the code of the identity resource itself. Object-level
// checks treat it specially: a user may always act on their own record,
// subject to the base (non-_all) flag.
const ElementUsers = "users"

// AccessRule grants a role a set of permission flags over one element.
// At most one rule exists per (role, element) pair. The _all variants extend
// the scope of their base counterpart from owned objects to all objects.
type AccessRule struct {
	ID        string `json:"id"`
	RoleID    string `json:"role_id"`
	ElementID string `json:"element_id"`

	Read      bool `json:"read"`
	ReadAll   bool `json:"read_all"`
	Create    bool `json:"create"`
	Update    bool `json:"update"`
	UpdateAll bool `json:"update_all"`
	Delete    bool `json:"delete"`
	DeleteAll bool `json:"delete_all"`
}

// RefreshTokenRecord is the persisted bookkeeping for an issued refresh
// token. Records are never deleted; revocation flips the flag and the row
// stays behind as audit trail. ReplacedBy chains rotations when they happen.
type RefreshTokenRecord struct {
	JTI        string
	UserID     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy string
}

// RevokedAccessToken is an append-only blacklist entry. It matters only
// until ExpiresAt; afterwards the token is dead by time anyway.
type RevokedAccessToken struct {
	JTI       string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserUpdate carries optional profile mutations for PATCH /auth/me.
type UserUpdate struct {
	FirstName  *string
	MiddleName *string
	LastName   *string
}
