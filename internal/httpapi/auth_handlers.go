package httpapi

import (
	"errors"
	"net/http"
	"time"

	"sentra.org/internal/auth"
	"sentra.org/internal/obs"
)

type registerRequest struct {
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	MiddleName      string `json:"middle_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password2"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.sessions.Register(r.Context(), auth.RegisterInput{
		Email:           req.Email,
		FirstName:       req.FirstName,
		MiddleName:      req.MiddleName,
		LastName:        req.LastName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.register", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.TokenIssued("access")
	obs.TokenIssued("refresh")
	a.audit(r.Context(), "auth.login", map[string]any{
		"user_id": result.User.ID,
	})
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:      result.AccessToken,
		RefreshToken:     result.RefreshToken,
		AccessExpiresAt:  result.AccessExpiresAt,
		RefreshExpiresAt: result.RefreshExpiresAt,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	access, expiresAt, err := a.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.TokenIssued("access")
	a.audit(r.Context(), "auth.refresh", nil)
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	// Body is optional: without a refresh token every session of the user
	// is ended. ContentLength is not a reliable signal (chunked requests
	// report -1), so always read and let an empty body mean "no token".
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errBodyRequired) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	accessRaw, _ := auth.TokenFromContext(r.Context())
	if err := a.sessions.Logout(r.Context(), p.User.ID, accessRaw, req.RefreshToken); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.logout", map[string]any{
		"user_id":  p.User.ID,
		"explicit": req.RefreshToken != "",
	})
	w.WriteHeader(http.StatusNoContent)
}

type meUpdateRequest struct {
	FirstName  *string `json:"first_name"`
	MiddleName *string `json:"middle_name"`
	LastName   *string `json:"last_name"`
}

// handleMe serves the authenticated user's own record: read, profile update
// and self-deactivation. No rule lookup: the subject is always visible to
// itself.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, p.User)

	case http.MethodPatch:
		var req meUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.store.Users().Update(r.Context(), p.User.ID, auth.UserUpdate{
			FirstName:  req.FirstName,
			MiddleName: req.MiddleName,
			LastName:   req.LastName,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "auth.profile.update", map[string]any{
			"user_id": user.ID,
		})
		writeJSON(w, http.StatusOK, user)

	case http.MethodDelete:
		accessRaw, _ := auth.TokenFromContext(r.Context())
		if err := a.sessions.Deactivate(r.Context(), p.User.ID, accessRaw); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "auth.deactivate", map[string]any{
			"user_id": p.User.ID,
		})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
