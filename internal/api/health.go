package api

import (
	"net/http"
	"time"
)

// componentHealth is the per-subsystem entry in the health report.
type componentHealth struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// handleHealth reports every subsystem slot. The endpoint itself always
// answers 200: a degraded service is still a running service, and the
// payload carries the detail.
func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := make(map[string]componentHealth, 4)
		for _, slot := range deps.State.Slots() {
			components[string(slot.Kind)] = componentHealth{
				Status: slot.Status.String(),
				Reason: slot.Reason,
			}
		}

		status := "healthy"
		if !deps.State.ComponentsReady() {
			status = "degraded"
		}

		// Best-effort: a count failure must not fail the health report.
		documents := 0
		if deps.Store != nil {
			if n, err := deps.Store.CountDocuments(); err == nil {
				documents = n
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":           status,
			"components":       components,
			"components_ready": deps.State.ComponentsReady(),
			"documents":        documents,
			"version":          deps.Version,
			"timestamp":        time.Now().UTC().Format(time.RFC3339),
		})
	}
}
