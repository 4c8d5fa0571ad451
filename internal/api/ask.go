package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mammadli/askdesk/internal/resolver"
	"github.com/mammadli/askdesk/internal/storage"
	"github.com/mammadli/askdesk/internal/userstore"
)

// AskRequest is the POST /ask body. Caller is optional; anonymous
// requests get the demo identity, matching the open question endpoint
// this service has always exposed.
type AskRequest struct {
	Question string          `json:"question"`
	Caller   resolver.Caller `json:"caller"`
}

// AskResponse is the POST /ask reply.
type AskResponse struct {
	Question  string               `json:"question"`
	Answer    string               `json:"answer"`
	Tier      resolver.Tier        `json:"tier"`
	Errors    []resolver.TierError `json:"errors,omitempty"`
	Timestamp string               `json:"timestamp"`
}

var demoCaller = resolver.Caller{
	ID:          "demo",
	DisplayName: "Demo User",
	Role:        userstore.RoleStandard,
}

func handleAsk(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Resolver == nil || !deps.State.ComponentsReady() {
			httpError(w, http.StatusServiceUnavailable, "api_error",
				"question answering unavailable: core components not initialized")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		req.Question = strings.TrimSpace(req.Question)
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		caller := req.Caller
		if caller.ID == "" {
			caller = demoCaller
		}
		if !userstore.ValidRole(caller.Role) {
			caller.Role = userstore.RoleStandard
		}

		outcome := deps.Resolver.Resolve(r.Context(), req.Question, caller)

		recordInteraction(deps, req.Question, caller, outcome)

		status := http.StatusOK
		if outcome.Tier == resolver.TierFailed {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, AskResponse{
			Question:  req.Question,
			Answer:    outcome.Answer,
			Tier:      outcome.Tier,
			Errors:    outcome.Errors,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// recordInteraction logs the Q&A to storage for observability.
// Best-effort: a write failure must not affect the response.
func recordInteraction(deps AppDeps, question string, caller resolver.Caller, outcome resolver.Outcome) {
	if deps.Store == nil {
		return
	}
	errorsJSON := "[]"
	if len(outcome.Errors) > 0 {
		if b, err := json.Marshal(outcome.Errors); err == nil {
			errorsJSON = string(b)
		}
	}
	err := deps.Store.SaveInteraction(storage.Interaction{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Question:   question,
		Answer:     outcome.Answer,
		Tier:       string(outcome.Tier),
		ErrorsJSON: errorsJSON,
		CallerID:   caller.ID,
		CallerRole: caller.Role,
	})
	if err != nil {
		slog.Warn("failed to record interaction", "error", err)
	}
}
