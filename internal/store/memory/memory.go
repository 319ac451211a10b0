// Package memory is a mutex-guarded in-memory store. It backs the test
// suites and the dev mode of the API binary; production deployments use the
// PostgreSQL store.
package memory

import (
	"context"
	"sync"
	"time"

	"sentra.org/internal/auth"
	"sentra.org/internal/ids"
	"sentra.org/internal/items"
)

// Store implements auth.Store and items.Store over plain maps.
type Store struct {
	mu        sync.Mutex
	users     map[string]*auth.User
	userRoles map[string][]string
	roles     map[string]*auth.Role
	elements  map[string]*auth.Element
	rules     map[string]*auth.AccessRule
	refresh   map[string]*auth.RefreshTokenRecord
	blacklist map[string]*auth.RevokedAccessToken
	items     map[string]*items.Item
}

var _ auth.Store = (*Store)(nil)

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		users:     map[string]*auth.User{},
		userRoles: map[string][]string{},
		roles:     map[string]*auth.Role{},
		elements:  map[string]*auth.Element{},
		rules:     map[string]*auth.AccessRule{},
		refresh:   map[string]*auth.RefreshTokenRecord{},
		blacklist: map[string]*auth.RevokedAccessToken{},
		items:     map[string]*items.Item{},
	}
}

func (s *Store) Users() auth.UserStore       { return userStore{s} }
func (s *Store) Roles() auth.RoleStore       { return roleStore{s} }
func (s *Store) Elements() auth.ElementStore { return elementStore{s} }
func (s *Store) Rules() auth.RuleStore       { return ruleStore{s} }
func (s *Store) Tokens() auth.TokenStore     { return tokenStore{s} }

// Items returns the item store.
func (s *Store) Items() items.Store { return itemStore{s} }

// --- users ---

type userStore struct{ s *Store }

func (m userStore) Create(_ context.Context, u *auth.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.users {
		if existing.Email == u.Email {
			return auth.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m userStore) Find(_ context.Context, id string) (*auth.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m userStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m userStore) Update(_ context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.MiddleName != nil {
		u.MiddleName = *upd.MiddleName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (m userStore) Roles(_ context.Context, userID string) ([]auth.Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []auth.Role
	for _, roleID := range m.s.userRoles[userID] {
		if r, ok := m.s.roles[roleID]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m userStore) AssignRole(_ context.Context, userID, roleID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.userRoles[userID] {
		if existing == roleID {
			return nil
		}
	}
	m.s.userRoles[userID] = append(m.s.userRoles[userID], roleID)
	return nil
}

func (m userStore) RemoveRole(_ context.Context, userID, roleID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	current := m.s.userRoles[userID]
	next := current[:0]
	for _, existing := range current {
		if existing != roleID {
			next = append(next, existing)
		}
	}
	m.s.userRoles[userID] = next
	return nil
}

func (m userStore) Deactivate(_ context.Context, userID string, access *auth.RevokedAccessToken) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	if access != nil {
		if _, exists := m.s.blacklist[access.JTI]; !exists {
			cp := *access
			m.s.blacklist[access.JTI] = &cp
		}
	}
	for _, rec := range m.s.refresh {
		if rec.UserID == userID {
			rec.Revoked = true
		}
	}
	u.Active = false
	return nil
}

// --- roles ---

type roleStore struct{ s *Store }

func (m roleStore) Create(_ context.Context, role *auth.Role) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.roles {
		if existing.Name == role.Name {
			return auth.ErrConflict
		}
	}
	if role.ID == "" {
		role.ID = ids.New()
	}
	cp := *role
	m.s.roles[role.ID] = &cp
	return nil
}

func (m roleStore) List(_ context.Context) ([]auth.Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []auth.Role
	for _, r := range m.s.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m roleStore) Find(_ context.Context, id string) (*auth.Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m roleStore) Update(_ context.Context, id, name string) (*auth.Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	r.Name = name
	cp := *r
	return &cp, nil
}

func (m roleStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.roles[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.s.roles, id)
	for ruleID, rule := range m.s.rules {
		if rule.RoleID == id {
			delete(m.s.rules, ruleID)
		}
	}
	return nil
}

// --- elements ---

type elementStore struct{ s *Store }

func (m elementStore) Create(_ context.Context, el *auth.Element) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.elements {
		if existing.Code == el.Code {
			return auth.ErrConflict
		}
	}
	if el.ID == "" {
		el.ID = ids.New()
	}
	cp := *el
	m.s.elements[el.ID] = &cp
	return nil
}

func (m elementStore) List(_ context.Context) ([]auth.Element, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []auth.Element
	for _, el := range m.s.elements {
		out = append(out, *el)
	}
	return out, nil
}

func (m elementStore) Find(_ context.Context, id string) (*auth.Element, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	el, ok := m.s.elements[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *el
	return &cp, nil
}

func (m elementStore) FindByCode(_ context.Context, code string) (*auth.Element, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, el := range m.s.elements {
		if el.Code == code {
			cp := *el
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m elementStore) Update(_ context.Context, id string, code, name *string) (*auth.Element, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	el, ok := m.s.elements[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if code != nil {
		el.Code = *code
	}
	if name != nil {
		el.Name = *name
	}
	cp := *el
	return &cp, nil
}

func (m elementStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.elements[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.s.elements, id)
	for ruleID, rule := range m.s.rules {
		if rule.ElementID == id {
			delete(m.s.rules, ruleID)
		}
	}
	return nil
}

// --- rules ---

type ruleStore struct{ s *Store }

func (m ruleStore) Create(_ context.Context, rule *auth.AccessRule) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.rules {
		if existing.RoleID == rule.RoleID && existing.ElementID == rule.ElementID {
			return auth.ErrConflict
		}
	}
	if rule.ID == "" {
		rule.ID = ids.New()
	}
	cp := *rule
	m.s.rules[rule.ID] = &cp
	return nil
}

func (m ruleStore) List(_ context.Context) ([]auth.AccessRule, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []auth.AccessRule
	for _, r := range m.s.rules {
		out = append(out, *r)
	}
	return out, nil
}

func (m ruleStore) Find(_ context.Context, id string) (*auth.AccessRule, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.rules[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m ruleStore) Update(_ context.Context, rule *auth.AccessRule) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.rules[rule.ID]
	if !ok {
		return auth.ErrNotFound
	}
	cp := *rule
	cp.RoleID, cp.ElementID = existing.RoleID, existing.ElementID
	m.s.rules[rule.ID] = &cp
	return nil
}

func (m ruleStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.rules[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.s.rules, id)
	return nil
}

func (m ruleStore) RulesFor(_ context.Context, roleIDs []string, elementCode string) ([]auth.AccessRule, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var elementID string
	for _, el := range m.s.elements {
		if el.Code == elementCode {
			elementID = el.ID
			break
		}
	}
	if elementID == "" {
		return nil, nil
	}
	roleSet := map[string]struct{}{}
	for _, id := range roleIDs {
		roleSet[id] = struct{}{}
	}
	var out []auth.AccessRule
	for _, rule := range m.s.rules {
		if rule.ElementID != elementID {
			continue
		}
		if _, ok := roleSet[rule.RoleID]; ok {
			out = append(out, *rule)
		}
	}
	return out, nil
}

// --- tokens ---

type tokenStore struct{ s *Store }

func (m tokenStore) RecordRefreshIssued(_ context.Context, jti, userID string, expiresAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.refresh[jti]; ok {
		return nil
	}
	m.s.refresh[jti] = &auth.RefreshTokenRecord{
		JTI:       jti,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	return nil
}

func (m tokenStore) FindRefresh(_ context.Context, jti string) (*auth.RefreshTokenRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rec, ok := m.s.refresh[jti]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m tokenStore) RevokeRefresh(_ context.Context, jti, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if rec, ok := m.s.refresh[jti]; ok && rec.UserID == userID {
		rec.Revoked = true
	}
	return nil
}

func (m tokenStore) RevokeAllRefresh(_ context.Context, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, rec := range m.s.refresh {
		if rec.UserID == userID {
			rec.Revoked = true
		}
	}
	return nil
}

func (m tokenStore) BlacklistAccess(_ context.Context, entry *auth.RevokedAccessToken) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.blacklist[entry.JTI]; ok {
		return nil
	}
	cp := *entry
	m.s.blacklist[entry.JTI] = &cp
	return nil
}

func (m tokenStore) IsAccessBlacklisted(_ context.Context, jti string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	_, ok := m.s.blacklist[jti]
	return ok, nil
}

// --- items ---

type itemStore struct{ s *Store }

func (m itemStore) Create(_ context.Context, it *items.Item) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if it.ID == "" {
		it.ID = ids.New()
	}
	now := time.Now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now
	cp := *it
	m.s.items[it.ID] = &cp
	return nil
}

func (m itemStore) Find(_ context.Context, id string) (*items.Item, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	it, ok := m.s.items[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m itemStore) List(_ context.Context, scope auth.Scope, requesterID string) ([]items.Item, error) {
	if scope == auth.ScopeNone {
		return nil, nil
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []items.Item
	for _, it := range m.s.items {
		if scope == auth.ScopeOwn && it.OwnerID != requesterID {
			continue
		}
		out = append(out, *it)
	}
	return out, nil
}

func (m itemStore) Update(_ context.Context, id string, upd items.Update) (*items.Item, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	it, ok := m.s.items[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Title != nil {
		it.Title = *upd.Title
	}
	it.UpdatedAt = time.Now().UTC()
	cp := *it
	return &cp, nil
}

func (m itemStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.items[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.s.items, id)
	return nil
}
