package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/centsible/centsible/internal/api/respond"
	"github.com/centsible/centsible/internal/auth"
)

// keyAuth rejects webhook calls whose API key the authorizer refuses.
func keyAuth(a auth.Authorizer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := a.Authorize(r.Context(), auth.ExtractAPIKey(r)); err != nil {
				respond.WriteUnauthorized(w, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
