// Package api exposes the HTTP and MCP surfaces of the service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mammadli/askdesk/internal/bootstrap"
	"github.com/mammadli/askdesk/internal/docstore"
	"github.com/mammadli/askdesk/internal/resolver"
	"github.com/mammadli/askdesk/internal/storage"
)

const maxRequestBodySize = 10 << 20 // 10MB, uploads included

// QueryResolver abstracts the resolver for the HTTP layer.
type QueryResolver interface {
	Resolve(ctx context.Context, question string, caller resolver.Caller) resolver.Outcome
}

// Reindexer re-extracts all stored documents. Implemented by ingest.Worker.
type Reindexer interface {
	ReindexAll(ctx context.Context) (int, error)
}

// AppDeps holds everything the handlers need. Store, Docs, and Resolver
// may be nil when the corresponding subsystem failed to come up; handlers
// answer 503 for routes that need them.
type AppDeps struct {
	State    *bootstrap.SystemState
	Resolver QueryResolver
	Store    *storage.Store
	Docs     *docstore.Manager
	Reindex  Reindexer
	Token    string
	Version  string
}

// NewHandler returns the service's HTTP handler: open routes for service
// info, health, and questions, plus bearer-authenticated management routes.
func NewHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleIndex(deps))
	r.Get("/health", handleHealth(deps))
	r.Post("/ask", handleAsk(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/documents", handleCreateDocument(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Get("/documents/{id}", handleGetDocument(deps))
		r.Delete("/documents/{id}", handleDeleteDocument(deps))
		r.Post("/documents/reindex", handleReindex(deps))
		r.Get("/interactions", handleListInteractions(deps))
		r.Get("/interactions/{id}", handleGetInteraction(deps))
		r.Get("/users", handleListUsers(deps))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpError(w, http.StatusNotFound, "not_found", "the requested resource was not found")
	})

	return r
}

func handleIndex(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":          "askdesk",
			"version":          deps.Version,
			"status":           "running",
			"components_ready": deps.State.ComponentsReady(),
			"endpoints": map[string]string{
				"health":    "/health",
				"ask":       "/ask (POST)",
				"documents": "/documents",
			},
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
