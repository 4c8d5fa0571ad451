// Package ingest extracts text from uploaded documents in the background
// so the knowledge index can search them.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mammadli/askdesk/internal/docstore"
	"github.com/mammadli/askdesk/internal/storage"
)

// JobType is the queue entry kind this worker claims.
const JobType = "extract_text"

// JobStore abstracts the job queue and document rows.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	EnqueueJob(job storage.Job) error
	GetDocument(id string) (storage.Document, error)
	UpdateDocumentContent(id, content, status string) error
	ListDocumentIDs() ([]string, error)
}

// FileReader reads raw uploaded bytes. Implemented by docstore.Manager.
type FileReader interface {
	Read(relPath string) ([]byte, error)
}

// Worker polls for extract_text jobs and turns raw uploads into indexed
// plain text.
type Worker struct {
	store  JobStore
	files  FileReader
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker. If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, files FileReader, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		files:  files,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single extract_text job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

// Payload is the job payload for extract_text jobs.
type Payload struct {
	DocumentID string `json:"document_id"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload Payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	return w.extract(ctx, payload.DocumentID)
}

// extract loads a document's raw bytes, extracts plain text, and marks
// the row indexed. Documents submitted as plain text skip extraction.
func (w *Worker) extract(ctx context.Context, docID string) error {
	doc, err := w.store.GetDocument(docID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", docID, err)
	}

	content := doc.Content
	if doc.FilePath != "" {
		data, err := w.files.Read(doc.FilePath)
		if err != nil {
			return fmt.Errorf("reading upload for %s: %w", docID, err)
		}
		content, err = docstore.ExtractText(doc.MimeType, doc.FilePath, data)
		if err != nil {
			return fmt.Errorf("extracting text for %s: %w", docID, err)
		}
	}

	if err := w.store.UpdateDocumentContent(doc.ID, content, "indexed"); err != nil {
		return fmt.Errorf("updating document %s: %w", docID, err)
	}
	return nil
}

// ReindexAll re-extracts every stored document with bounded concurrency.
// Used after changing extraction logic or recovering from failed jobs.
func (w *Worker) ReindexAll(ctx context.Context) (int, error) {
	ids, err := w.store.ListDocumentIDs()
	if err != nil {
		return 0, fmt.Errorf("listing documents: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency so extraction doesn't starve requests.

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := w.extract(gCtx, id); err != nil {
				return fmt.Errorf("reindexing %s: %w", id, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(ids), nil
}
