package auth_test

import (
	"context"
	"testing"

	"sentra.org/internal/auth"
	"sentra.org/internal/store/memory"
)

func seedEngineFixture(t *testing.T) (*memory.Store, *auth.Engine, auth.Principal, auth.Principal) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	viewer := &auth.Role{Name: "viewer"}
	editor := &auth.Role{Name: "editor"}
	for _, r := range []*auth.Role{viewer, editor} {
		if err := store.Roles().Create(ctx, r); err != nil {
			t.Fatalf("create role: %v", err)
		}
	}
	items := &auth.Element{Code: "items", Name: "Items"}
	users := &auth.Element{Code: auth.ElementUsers, Name: "Users"}
	for _, el := range []*auth.Element{items, users} {
		if err := store.Elements().Create(ctx, el); err != nil {
			t.Fatalf("create element: %v", err)
		}
	}

	// viewer reads own items; editor updates all items but cannot read.
	if err := store.Rules().Create(ctx, &auth.AccessRule{RoleID: viewer.ID, ElementID: items.ID, Read: true}); err != nil {
		t.Fatalf("create rule: %v", err)
	}
	if err := store.Rules().Create(ctx, &auth.AccessRule{RoleID: editor.ID, ElementID: items.ID, UpdateAll: true}); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	alice := auth.Principal{User: &auth.User{ID: "alice", Active: true}, Roles: []auth.Role{*viewer}}
	both := auth.Principal{User: &auth.User{ID: "bob", Active: true}, Roles: []auth.Role{*viewer, *editor}}
	return store, auth.NewEngine(store), alice, both
}

func TestEffectiveRuleAggregatesAcrossRoles(t *testing.T) {
	_, engine, alice, both := seedEngineFixture(t)
	ctx := context.Background()

	rule, err := engine.EffectiveRule(ctx, alice, "items")
	if err != nil {
		t.Fatalf("EffectiveRule: %v", err)
	}
	if !rule.Read || rule.ReadAll || rule.UpdateAll {
		t.Fatalf("unexpected single-role rule: %+v", rule)
	}

	merged, err := engine.EffectiveRule(ctx, both, "items")
	if err != nil {
		t.Fatalf("EffectiveRule: %v", err)
	}
	// Adding a role only adds permissions, never removes them.
	if !merged.Read || !merged.UpdateAll {
		t.Fatalf("expected OR across roles, got %+v", merged)
	}
	if merged.Create || merged.Delete || merged.DeleteAll {
		t.Fatalf("flags granted by no role must stay false: %+v", merged)
	}
}

func TestEffectiveRuleUnknownElementDeniesEverything(t *testing.T) {
	_, engine, alice, _ := seedEngineFixture(t)

	rule, err := engine.EffectiveRule(context.Background(), alice, "reports")
	if err != nil {
		t.Fatalf("unknown element must not be an error: %v", err)
	}
	if rule != (auth.EffectiveRule{}) {
		t.Fatalf("unknown element must deny all, got %+v", rule)
	}
	for _, v := range []auth.Verb{auth.VerbRead, auth.VerbCreate, auth.VerbUpdate, auth.VerbDelete} {
		if rule.CanPerform(v) {
			t.Fatalf("verb %s allowed on unknown element", v)
		}
	}
}

func TestEffectiveRuleNoRuleRowsDeniesEverything(t *testing.T) {
	store, engine, _, _ := seedEngineFixture(t)
	ctx := context.Background()

	role := &auth.Role{Name: "bystander"}
	if err := store.Roles().Create(ctx, role); err != nil {
		t.Fatalf("create role: %v", err)
	}
	p := auth.Principal{User: &auth.User{ID: "carol", Active: true}, Roles: []auth.Role{*role}}

	rule, err := engine.EffectiveRule(ctx, p, "items")
	if err != nil {
		t.Fatalf("EffectiveRule: %v", err)
	}
	if rule != (auth.EffectiveRule{}) {
		t.Fatalf("expected all-false rule, got %+v", rule)
	}
	if rule.ReadScope() != auth.ScopeNone {
		t.Fatalf("expected empty scope")
	}
}

func TestCanPerformVerbMapping(t *testing.T) {
	cases := []struct {
		name string
		rule auth.EffectiveRule
		verb auth.Verb
		want bool
	}{
		{"read via base", auth.EffectiveRule{Read: true}, auth.VerbRead, true},
		{"read via all", auth.EffectiveRule{ReadAll: true}, auth.VerbRead, true},
		{"create has no all variant", auth.EffectiveRule{ReadAll: true, UpdateAll: true, DeleteAll: true}, auth.VerbCreate, false},
		{"create via base", auth.EffectiveRule{Create: true}, auth.VerbCreate, true},
		{"update via all", auth.EffectiveRule{UpdateAll: true}, auth.VerbUpdate, true},
		{"delete via base", auth.EffectiveRule{Delete: true}, auth.VerbDelete, true},
		{"deny by default", auth.EffectiveRule{}, auth.VerbRead, false},
	}
	for _, tc := range cases {
		if got := tc.rule.CanPerform(tc.verb); got != tc.want {
			t.Errorf("%s: CanPerform(%s)=%v, want %v", tc.name, tc.verb, got, tc.want)
		}
	}
}

func TestAllowsObjectAllFlagIsSuperset(t *testing.T) {
	rule := auth.EffectiveRule{UpdateAll: true}
	// _all allows regardless of ownership.
	if !rule.AllowsObject(auth.VerbUpdate, "alice", "bob", "obj-1", "items") {
		t.Fatal("update_all must allow foreign objects")
	}
	if !rule.AllowsObject(auth.VerbUpdate, "alice", "alice", "obj-2", "items") {
		t.Fatal("update_all must allow owned objects")
	}
}

func TestAllowsObjectOwnership(t *testing.T) {
	rule := auth.EffectiveRule{Delete: true}
	if !rule.AllowsObject(auth.VerbDelete, "alice", "alice", "obj-1", "items") {
		t.Fatal("owner must be allowed under base flag")
	}
	if rule.AllowsObject(auth.VerbDelete, "alice", "bob", "obj-1", "items") {
		t.Fatal("non-owner must be denied without _all")
	}
	if (auth.EffectiveRule{}).AllowsObject(auth.VerbDelete, "alice", "alice", "obj-1", "items") {
		t.Fatal("missing base flag must deny even the owner")
	}
}

func TestAllowsObjectSelfOnUsersElement(t *testing.T) {
	rule := auth.EffectiveRule{Update: true}
	// A user record has no owner reference; the object id is the identity.
	if !rule.AllowsObject(auth.VerbUpdate, "alice", "", "alice", auth.ElementUsers) {
		t.Fatal("user must act on own identity record under base flag")
	}
	if rule.AllowsObject(auth.VerbUpdate, "alice", "", "bob", auth.ElementUsers) {
		t.Fatal("foreign identity record must be denied")
	}
	if rule.AllowsObject(auth.VerbUpdate, "alice", "", "alice", "items") {
		t.Fatal("self match only applies to the identity element")
	}
}

func TestAllowsObjectCreateIgnoresObject(t *testing.T) {
	rule := auth.EffectiveRule{Create: true}
	if !rule.AllowsObject(auth.VerbCreate, "alice", "bob", "whatever", "items") {
		t.Fatal("create reduces to the base create flag")
	}
	if (auth.EffectiveRule{ReadAll: true}).AllowsObject(auth.VerbCreate, "alice", "alice", "x", "items") {
		t.Fatal("create must not be granted by read_all")
	}
}

func TestReadScope(t *testing.T) {
	if (auth.EffectiveRule{ReadAll: true}).ReadScope() != auth.ScopeAll {
		t.Fatal("read_all must yield ScopeAll")
	}
	if (auth.EffectiveRule{Read: true}).ReadScope() != auth.ScopeOwn {
		t.Fatal("read must yield ScopeOwn")
	}
	if (auth.EffectiveRule{Read: true, ReadAll: true}).ReadScope() != auth.ScopeAll {
		t.Fatal("read_all wins over read")
	}
	if (auth.EffectiveRule{Create: true}).ReadScope() != auth.ScopeNone {
		t.Fatal("no read flags must yield ScopeNone")
	}
}
