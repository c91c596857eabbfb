package middleware

import (
	"net/http"

	"microloan-service/pkg/utils"
)

// RequireRole restricts a route to callers holding one of the given roles.
// Must run after AuthMiddleware, which puts the role claim in the context.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value("role").(string)
			if !ok {
				utils.RespondWithError(w, http.StatusUnauthorized, "role not found in context")
				return
			}

			if !allowed[role] {
				utils.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
