// Package items is the exemplar protected resource: every item carries an
// owner reference, which is the unit of "own" scoping for the authorization
// engine. Any other owned resource category follows the same pattern.
package items

import (
	"context"
	"time"

	"sentra.org/internal/auth"
)

// ElementCode is the machine key under which items are registered in the
// rule matrix.
const ElementCode = "items"

// Item is an owned resource object.
type Item struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	OwnerID    string    `json:"-"`
	OwnerEmail string    `json:"owner_email"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Update carries optional mutations for PATCH.
type Update struct {
	Title *string
}

// Store persists items. List applies the read scope as a query filter:
// row-level visibility is decided in the database, not by scanning results.
type Store interface {
	Create(ctx context.Context, it *Item) error
	Find(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, scope auth.Scope, requesterID string) ([]Item, error)
	Update(ctx context.Context, id string, upd Update) (*Item, error)
	Delete(ctx context.Context, id string) error
}
