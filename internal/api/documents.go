package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mammadli/askdesk/internal/ingest"
	"github.com/mammadli/askdesk/internal/storage"
)

// DocumentRequest is the POST /documents body. Plain text goes in
// Content; binary uploads (PDF and friends) go base64-encoded in FileB64
// with a Filename so extraction can dispatch on the extension.
type DocumentRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	FileB64  string   `json:"file_b64"`
	Filename string   `json:"filename"`
	MimeType string   `json:"mime_type"`
	Source   string   `json:"source"`
	Tags     []string `json:"tags"`
}

func handleCreateDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil || deps.Docs == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "document storage unavailable")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req DocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.Content == "" && req.FileB64 == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "one of content or file_b64 is required")
			return
		}
		if req.Source == "" {
			req.Source = "api"
		}
		if req.MimeType == "" {
			req.MimeType = "text/plain"
		}

		docID := uuid.New().String()

		var filePath string
		if req.FileB64 != "" {
			data, err := base64.StdEncoding.DecodeString(req.FileB64)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 file content")
				return
			}
			filename := req.Filename
			if filename == "" {
				filename = docID
			}
			filePath, err = deps.Docs.Save(docID, filename, data)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to store upload: %v", err)
				return
			}
			if req.Title == "" {
				req.Title = filename
			}
		}

		tagsJSON := "[]"
		if req.Tags != nil {
			b, err := json.Marshal(req.Tags)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to marshal tags: %v", err)
				return
			}
			tagsJSON = string(b)
		}

		// Plain text is searchable immediately; uploads wait for the
		// extract worker.
		status := "indexed"
		if filePath != "" {
			status = "pending"
		}

		doc := storage.Document{
			ID:        docID,
			Title:     req.Title,
			Content:   req.Content,
			Source:    req.Source,
			MimeType:  req.MimeType,
			FilePath:  filePath,
			Tags:      tagsJSON,
			Status:    status,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveDocument(doc); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}

		if filePath != "" {
			payload, err := json.Marshal(ingest.Payload{DocumentID: docID})
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to create job payload: %v", err)
				return
			}
			job := storage.Job{
				ID:          uuid.New().String(),
				Type:        ingest.JobType,
				PayloadJSON: string(payload),
			}
			if err := deps.Store.EnqueueJob(job); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue extraction: %v", err)
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"id":     docID,
			"status": status,
		})
	}
}

// documentView is the JSON shape for document listings; content is
// omitted to keep listings small.
type documentView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	MimeType  string `json:"mime_type"`
	Tags      string `json:"tags"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func handleListDocuments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "document storage unavailable")
			return
		}

		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)

		docs, err := deps.Store.ListDocuments(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}

		views := make([]documentView, len(docs))
		for i, d := range docs {
			views[i] = documentView{
				ID:        d.ID,
				Title:     d.Title,
				Source:    d.Source,
				MimeType:  d.MimeType,
				Tags:      d.Tags,
				Status:    d.Status,
				CreatedAt: d.CreatedAt.Format(time.RFC3339),
			}
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func handleGetDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "document storage unavailable")
			return
		}

		id := chi.URLParam(r, "id")
		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load document: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":         doc.ID,
			"title":      doc.Title,
			"content":    doc.Content,
			"source":     doc.Source,
			"mime_type":  doc.MimeType,
			"tags":       doc.Tags,
			"status":     doc.Status,
			"created_at": doc.CreatedAt.Format(time.RFC3339),
			"updated_at": doc.UpdatedAt.Format(time.RFC3339),
		})
	}
}

func handleDeleteDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "document storage unavailable")
			return
		}

		id := chi.URLParam(r, "id")
		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load document: %v", err)
			return
		}

		if err := deps.Store.DeleteDocument(id); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete document: %v", err)
			return
		}
		if deps.Docs != nil && doc.FilePath != "" {
			if err := deps.Docs.Remove(doc.FilePath); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "document deleted but upload cleanup failed: %v", err)
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
	}
}

func handleReindex(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Reindex == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "reindexing unavailable")
			return
		}

		n, err := deps.Reindex.ReindexAll(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reindex failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reindexed": n})
	}
}

func handleListInteractions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "interaction log unavailable")
			return
		}

		limit := queryInt(r, "limit", 20)
		interactions, err := deps.Store.GetRecentInteractions(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}

		type view struct {
			ID         string `json:"id"`
			CreatedAt  string `json:"created_at"`
			Question   string `json:"question"`
			Answer     string `json:"answer"`
			Tier       string `json:"tier"`
			CallerID   string `json:"caller_id"`
			CallerRole string `json:"caller_role"`
		}
		views := make([]view, len(interactions))
		for i, ix := range interactions {
			views[i] = view{
				ID:         ix.ID,
				CreatedAt:  ix.CreatedAt.Format(time.RFC3339),
				Question:   ix.Question,
				Answer:     ix.Answer,
				Tier:       ix.Tier,
				CallerID:   ix.CallerID,
				CallerRole: ix.CallerRole,
			}
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func handleGetInteraction(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "interaction log unavailable")
			return
		}

		id := chi.URLParam(r, "id")
		ix, err := deps.Store.GetInteraction(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load interaction: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":          ix.ID,
			"created_at":  ix.CreatedAt.Format(time.RFC3339),
			"question":    ix.Question,
			"answer":      ix.Answer,
			"tier":        ix.Tier,
			"errors":      json.RawMessage(ix.ErrorsJSON),
			"caller_id":   ix.CallerID,
			"caller_role": ix.CallerRole,
		})
	}
}

func handleListUsers(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.State.Users == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "user store unavailable")
			return
		}

		users, err := deps.State.Users.List()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list users: %v", err)
			return
		}

		type view struct {
			ID          string `json:"id"`
			Username    string `json:"username"`
			DisplayName string `json:"display_name"`
			Role        string `json:"role"`
		}
		views := make([]view, len(users))
		for i, u := range users {
			views[i] = view{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, Role: u.Role}
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
