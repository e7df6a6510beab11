package api

import (
	"github.com/gorilla/mux"

	"github.com/centsible/centsible/internal/api/recovery"
	"github.com/centsible/centsible/internal/auth"
)

// NewRouter assembles the HTTP surface. Health stays open; the webhook
// routes sit behind the key check.
func NewRouter(h *Handler, hh *HealthHandler, authorizer auth.Authorizer) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	router.HandleFunc("/api/health", hh.CheckHealth).Methods("GET")

	hooks := router.PathPrefix("/api").Subrouter()
	hooks.Use(keyAuth(authorizer))
	hooks.HandleFunc("/messages", h.HandleMessage).Methods("POST")
	hooks.HandleFunc("/callbacks", h.HandleCallback).Methods("POST")

	return router
}
