package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the webhook and health endpoints.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/webhook", h.Webhook).Methods(http.MethodPost)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	return r
}
