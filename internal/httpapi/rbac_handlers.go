package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"sentra.org/internal/auth"
)

type createRoleRequest struct {
	Name string `json:"name"`
}

type createElementRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type updateElementRequest struct {
	Code *string `json:"code"`
	Name *string `json:"name"`
}

type accessRuleRequest struct {
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

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

// --- roles ---

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		roles, err := a.store.Roles().List(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})

	case http.MethodPost:
		var req createRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, r, http.StatusBadRequest, "name is required")
			return
		}
		role := &auth.Role{Name: req.Name}
		if err := a.store.Roles().Create(r.Context(), role); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.role.create", map[string]any{
			"role_id": role.ID,
			"name":    role.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/rbac/roles/%s", role.ID))
		writeJSON(w, http.StatusCreated, role)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRoleByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	id := pathTail(r.URL.Path, "/v1/rbac/roles/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		role, err := a.store.Roles().Find(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, role)

	case http.MethodPatch:
		var req createRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, r, http.StatusBadRequest, "name is required")
			return
		}
		role, err := a.store.Roles().Update(r.Context(), id, req.Name)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.role.update", map[string]any{
			"role_id": role.ID,
			"name":    role.Name,
		})
		writeJSON(w, http.StatusOK, role)

	case http.MethodDelete:
		if err := a.store.Roles().Delete(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.role.delete", map[string]any{"role_id": id})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// --- elements ---

func (a *API) handleElements(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		elements, err := a.store.Elements().List(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"elements": elements})

	case http.MethodPost:
		var req createElementRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.Code = strings.TrimSpace(req.Code)
		req.Name = strings.TrimSpace(req.Name)
		if req.Code == "" || req.Name == "" {
			writeError(w, r, http.StatusBadRequest, "code and name are required")
			return
		}
		el := &auth.Element{Code: req.Code, Name: req.Name}
		if err := a.store.Elements().Create(r.Context(), el); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.element.create", map[string]any{
			"element_id": el.ID,
			"code":       el.Code,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/rbac/elements/%s", el.ID))
		writeJSON(w, http.StatusCreated, el)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleElementByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	id := pathTail(r.URL.Path, "/v1/rbac/elements/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		el, err := a.store.Elements().Find(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, el)

	case http.MethodPatch:
		var req updateElementRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		el, err := a.store.Elements().Update(r.Context(), id, req.Code, req.Name)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.element.update", map[string]any{
			"element_id": el.ID,
			"code":       el.Code,
		})
		writeJSON(w, http.StatusOK, el)

	case http.MethodDelete:
		if err := a.store.Elements().Delete(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.element.delete", map[string]any{"element_id": id})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// --- access rules ---

func (a *API) handleRules(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		rules, err := a.store.Rules().List(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_rules": rules})

	case http.MethodPost:
		var req accessRuleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if req.RoleID == "" || req.ElementID == "" {
			writeError(w, r, http.StatusBadRequest, "role_id and element_id are required")
			return
		}
		rule := &auth.AccessRule{
			RoleID:    req.RoleID,
			ElementID: req.ElementID,
			Read:      req.Read,
			ReadAll:   req.ReadAll,
			Create:    req.Create,
			Update:    req.Update,
			UpdateAll: req.UpdateAll,
			Delete:    req.Delete,
			DeleteAll: req.DeleteAll,
		}
		if err := a.store.Rules().Create(r.Context(), rule); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.rule.create", map[string]any{
			"rule_id":    rule.ID,
			"role_id":    rule.RoleID,
			"element_id": rule.ElementID,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/rbac/access-rules/%s", rule.ID))
		writeJSON(w, http.StatusCreated, rule)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRuleByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	id := pathTail(r.URL.Path, "/v1/rbac/access-rules/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		rule, err := a.store.Rules().Find(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rule)

	case http.MethodPut:
		var req accessRuleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rule := &auth.AccessRule{
			ID:        id,
			Read:      req.Read,
			ReadAll:   req.ReadAll,
			Create:    req.Create,
			Update:    req.Update,
			UpdateAll: req.UpdateAll,
			Delete:    req.Delete,
			DeleteAll: req.DeleteAll,
		}
		if err := a.store.Rules().Update(r.Context(), rule); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.rule.update", map[string]any{"rule_id": id})
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := a.store.Rules().Delete(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.rule.delete", map[string]any{"rule_id": id})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// --- role assignments ---

// handleUserRoles serves /v1/rbac/users/{id}/roles and
// /v1/rbac/users/{id}/roles/{roleID}.
func (a *API) handleUserRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/rbac/users/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] != "roles" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	userID := parts[0]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		roles, err := a.store.Users().Roles(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})

	case len(parts) == 2 && r.Method == http.MethodPost:
		var req assignRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.RoleID = strings.TrimSpace(req.RoleID)
		if req.RoleID == "" {
			writeError(w, r, http.StatusBadRequest, "role_id is required")
			return
		}
		if err := a.store.Users().AssignRole(r.Context(), userID, req.RoleID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.user.assign_role", map[string]any{
			"user_id": userID,
			"role_id": req.RoleID,
		})
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 3 && r.Method == http.MethodDelete:
		roleID := parts[2]
		if err := a.store.Users().RemoveRole(r.Context(), userID, roleID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.user.remove_role", map[string]any{
			"user_id": userID,
			"role_id": roleID,
		})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// pathTail returns the single segment after prefix, or "" when the remainder
// is empty or nested.
func pathTail(path, prefix string) string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
