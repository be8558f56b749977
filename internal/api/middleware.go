package api

import (
	"context"
	"net/http"

	"github.com/mkrishnan/libraryops/internal/domain"
)

type contextKey string

const roleKey contextKey = "role"

// withAuth resolves HTTP Basic credentials to a role and stashes it in the
// request context. Handlers never see credentials.
func (h *Handler) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="libraryops"`)
			respondWithError(w, http.StatusUnauthorized, "Credentials required", r.Method, r.URL.Path)
			return
		}
		role, err := h.auth.Authenticate(r.Context(), name, password)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials", r.Method, r.URL.Path)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), roleKey, role)))
	}
}

// requireCap gates an operation on the caller's capability, independent of
// how many roles exist.
func (h *Handler) requireCap(c domain.Capability, next http.HandlerFunc) http.HandlerFunc {
	return h.withAuth(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(roleKey).(domain.Role)
		if !role.Allows(c) {
			respondWithError(w, http.StatusForbidden, "Operation not permitted", r.Method, r.URL.Path)
			return
		}
		next(w, r)
	})
}
