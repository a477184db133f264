package httpapi

import (
	"net/http"
	"time"

	"kortio.se/internal/auth"
	"kortio.se/internal/bank"
	"kortio.se/internal/obs"
)

// The boundary accepts plaintext passwords and stores only bcrypt hashes.
type createUserRequest struct {
	CompanyID string `json:"company_id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type updateUserRequest struct {
	Email     *string    `json:"email"`
	Password  *string    `json:"password"`
	LastLogin *time.Time `json:"last_login"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createUser(w, r)
	case http.MethodGet:
		a.listUsers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id, child, ok := splitScoped(r.URL.Path, "/v1/users/")
	if !ok || child != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPatch, http.MethodPut:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password == "" {
		a.writeStoreError(w, r, "User", &bank.ValidationError{Violations: []bank.FieldViolation{
			{Field: "password", Problem: "is required"},
		}})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.writeStoreError(w, r, "User", err)
		return
	}

	user, err := a.store.Users().Create(r.Context(), bank.UserInput{
		CompanyID:    req.CompanyID,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		a.writeStoreError(w, r, "User", err)
		return
	}

	a.audit(r.Context(), "user.create", user.ID, map[string]any{"company_id": user.CompanyID})
	obs.WriteObserved("user", "create")
	w.Header().Set("Location", "/v1/users/"+user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.Users().List(r.Context())
	if err != nil {
		a.writeStoreError(w, r, "User", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	user, err := a.store.Users().Get(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "User", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	patch := bank.UserPatch{Email: req.Email, LastLogin: req.LastLogin}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			a.writeStoreError(w, r, "User", err)
			return
		}
		patch.PasswordHash = &hash
	}

	user, err := a.store.Users().Update(r.Context(), id, patch)
	if err != nil {
		a.writeStoreError(w, r, "User", err)
		return
	}

	a.audit(r.Context(), "user.update", user.ID, nil)
	obs.WriteObserved("user", "update")
	writeJSON(w, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Users().Delete(r.Context(), id); err != nil {
		a.writeStoreError(w, r, "User", err)
		return
	}
	a.audit(r.Context(), "user.delete", id, nil)
	obs.WriteObserved("user", "delete")
	w.WriteHeader(http.StatusNoContent)
}
