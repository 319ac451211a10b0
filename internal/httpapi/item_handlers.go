package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"sentra.org/internal/auth"
	"sentra.org/internal/items"
	"sentra.org/internal/obs"
)

type createItemRequest struct {
	Title string `json:"title"`
}

type updateItemRequest struct {
	Title *string `json:"title"`
}

func (a *API) handleItems(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	rule, err := a.engine.EffectiveRule(r.Context(), p, items.ElementCode)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		scope := rule.ReadScope()
		obs.AuthzDecision(items.ElementCode, auth.VerbRead.String(), scope != auth.ScopeNone)
		list, err := a.items.List(r.Context(), scope, p.User.ID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		if list == nil {
			list = []items.Item{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list})

	case http.MethodPost:
		allowed := rule.CanPerform(auth.VerbCreate)
		obs.AuthzDecision(items.ElementCode, auth.VerbCreate.String(), allowed)
		if !allowed {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		var req createItemRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			writeError(w, r, http.StatusBadRequest, "title is required")
			return
		}
		it := &items.Item{
			Title:      req.Title,
			OwnerID:    p.User.ID,
			OwnerEmail: p.User.Email,
		}
		if err := a.items.Create(r.Context(), it); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "items.create", map[string]any{
			"item_id": it.ID,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/items/%s", it.ID))
		writeJSON(w, http.StatusCreated, it)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleItemByID resolves one item and applies the object-level gates. An
// object outside the caller's read scope answers 404, not 403: its existence
// is not disclosed. A readable object the caller may not mutate answers 403.
func (a *API) handleItemByID(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id := pathTail(r.URL.Path, "/v1/items/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	rule, err := a.engine.EffectiveRule(r.Context(), p, items.ElementCode)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	it, err := a.items.Find(r.Context(), id)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	readable := rule.AllowsObject(auth.VerbRead, p.User.ID, it.OwnerID, it.ID, items.ElementCode)
	if !readable {
		obs.AuthzDecision(items.ElementCode, auth.VerbRead.String(), false)
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		obs.AuthzDecision(items.ElementCode, auth.VerbRead.String(), true)
		writeJSON(w, http.StatusOK, it)

	case http.MethodPatch:
		allowed := rule.AllowsObject(auth.VerbUpdate, p.User.ID, it.OwnerID, it.ID, items.ElementCode)
		obs.AuthzDecision(items.ElementCode, auth.VerbUpdate.String(), allowed)
		if !allowed {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		var req updateItemRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := a.items.Update(r.Context(), id, items.Update{Title: req.Title})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "items.update", map[string]any{"item_id": id})
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		allowed := rule.AllowsObject(auth.VerbDelete, p.User.ID, it.OwnerID, it.ID, items.ElementCode)
		obs.AuthzDecision(items.ElementCode, auth.VerbDelete.String(), allowed)
		if !allowed {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		if err := a.items.Delete(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "items.delete", map[string]any{"item_id": id})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
