package auth

import (
	"context"
	"errors"
)

// Verb is the action being attempted against a resource.
type Verb int

const (
	VerbRead Verb = iota
	VerbCreate
	VerbUpdate
	VerbDelete
)

func (v Verb) String() string {
	switch v {
	case VerbRead:
		return "read"
	case VerbCreate:
		return "create"
	case VerbUpdate:
		return "update"
	case VerbDelete:
		return "delete"
	}
	return "unknown"
}

// EffectiveRule is the OR-aggregated permission set of one identity over one
// element. The zero value denies everything; unknown or unlisted elements
// resolve to it, so unconfigured resources are implicitly fully protected.
type EffectiveRule struct {
	Read      bool `json:"read"`
	ReadAll   bool `json:"read_all"`
	Create    bool `json:"create"`
	Update    bool `json:"update"`
	UpdateAll bool `json:"update_all"`
	Delete    bool `json:"delete"`
	DeleteAll bool `json:"delete_all"`
}

// merge ORs another rule row into r. Permissions are additive across roles:
// any role granting a flag grants it to the identity.
func (r EffectiveRule) merge(rule AccessRule) EffectiveRule {
	r.Read = r.Read || rule.Read
	r.ReadAll = r.ReadAll || rule.ReadAll
	r.Create = r.Create || rule.Create
	r.Update = r.Update || rule.Update
	r.UpdateAll = r.UpdateAll || rule.UpdateAll
	r.Delete = r.Delete || rule.Delete
	r.DeleteAll = r.DeleteAll || rule.DeleteAll
	return r
}

// CanPerform is the list-level gate: whether the verb is permitted at all,
// independent of any particular object.
func (r EffectiveRule) CanPerform(v Verb) bool {
	switch v {
	case VerbRead:
		return r.Read || r.ReadAll
	case VerbCreate:
		return r.Create
	case VerbUpdate:
		return r.Update || r.UpdateAll
	case VerbDelete:
		return r.Delete || r.DeleteAll
	}
	return false
}

// AllowsObject is the object-level gate. The matching _all flag allows
// unconditionally; otherwise ownership decides, with one special case: on the
// identity element a user may act on their own record under the base flag.
func (r EffectiveRule) AllowsObject(v Verb, requesterID, ownerID, objectID, elementCode string) bool {
	if v == VerbCreate {
		return r.Create
	}

	var base, all bool
	switch v {
	case VerbRead:
		base, all = r.Read, r.ReadAll
	case VerbUpdate:
		base, all = r.Update, r.UpdateAll
	case VerbDelete:
		base, all = r.Delete, r.DeleteAll
	default:
		return false
	}
	if all {
		return true
	}
	if !base {
		return false
	}
	if ownerID != "" && ownerID == requesterID {
		return true
	}
	return elementCode == ElementUsers && objectID == requesterID
}

// Scope is the row-level visibility of a collection listing.
type Scope int

const (
	// ScopeNone yields the empty collection.
	ScopeNone Scope = iota
	// ScopeOwn restricts the listing to objects owned by the requester.
	ScopeOwn
	// ScopeAll yields the unfiltered collection.
	ScopeAll
)

// ReadScope renders the list-scoping decision. Stores apply it as a query
// filter, never as a post-hoc scan.
func (r EffectiveRule) ReadScope() Scope {
	switch {
	case r.ReadAll:
		return ScopeAll
	case r.Read:
		return ScopeOwn
	default:
		return ScopeNone
	}
}

// Engine computes effective permissions from the rule matrix.
type Engine struct {
	elements ElementStore
	rules    RuleStore
}

// NewEngine constructs an Engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{elements: store.Elements(), rules: store.Rules()}
}

// EffectiveRule aggregates the principal's rule rows for an element code.
// An unknown code is not an error: it yields the all-false rule. Callers
// guarantee the principal is authenticated before asking for a decision.
func (e *Engine) EffectiveRule(ctx context.Context, p Principal, elementCode string) (EffectiveRule, error) {
	var agg EffectiveRule

	if _, err := e.elements.FindByCode(ctx, elementCode); err != nil {
		if errors.Is(err, ErrNotFound) {
			return agg, nil
		}
		return agg, err
	}

	roleIDs := p.RoleIDs()
	if len(roleIDs) == 0 {
		return agg, nil
	}
	rows, err := e.rules.RulesFor(ctx, roleIDs, elementCode)
	if err != nil {
		return EffectiveRule{}, err
	}
	for _, row := range rows {
		agg = agg.merge(row)
	}
	return agg, nil
}
