package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mammadli/askdesk/internal/docstore"
	"github.com/mammadli/askdesk/internal/storage"
)

func setupWorker(t *testing.T) (*Worker, *storage.Store, *docstore.Manager) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	docs, err := docstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("docstore.New failed: %v", err)
	}

	return NewWorker(store, docs, 10*time.Millisecond), store, docs
}

func enqueueExtract(t *testing.T, store *storage.Store, docID string) {
	t.Helper()
	payload, err := json.Marshal(Payload{DocumentID: docID})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.EnqueueJob(storage.Job{ID: "job-" + docID, Type: JobType, PayloadJSON: string(payload)}); err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}
}

func TestRunOnce_NoJobs(t *testing.T) {
	w, _, _ := setupWorker(t)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if done {
		t.Error("RunOnce reported work with an empty queue")
	}
}

func TestRunOnce_ExtractsUpload(t *testing.T) {
	w, store, docs := setupWorker(t)

	src := "<html><body><p>Remote work needs manager approval.</p></body></html>"
	rel, err := docs.Save("d1", "policy.html", []byte(src))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	err = store.SaveDocument(storage.Document{
		ID:       "d1",
		Title:    "Remote Work",
		MimeType: "text/html",
		FilePath: rel,
		Status:   "pending",
	})
	if err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	enqueueExtract(t, store, "d1")

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !done {
		t.Fatal("RunOnce claimed no job")
	}

	doc, err := store.GetDocument("d1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.Status != "indexed" {
		t.Errorf("status = %q, want indexed", doc.Status)
	}
	if !strings.Contains(doc.Content, "Remote work needs manager approval.") {
		t.Errorf("content = %q, want extracted text", doc.Content)
	}
}

func TestRunOnce_PlainTextSkipsExtraction(t *testing.T) {
	w, store, _ := setupWorker(t)

	err := store.SaveDocument(storage.Document{
		ID:      "d1",
		Content: "already plain text",
		Status:  "pending",
	})
	if err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	enqueueExtract(t, store, "d1")

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	doc, err := store.GetDocument("d1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.Status != "indexed" || doc.Content != "already plain text" {
		t.Errorf("doc = %+v, want indexed with unchanged content", doc)
	}
}

func TestRunOnce_MissingDocumentFailsJob(t *testing.T) {
	w, store, _ := setupWorker(t)

	enqueueExtract(t, store, "ghost")

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !done {
		t.Fatal("RunOnce claimed no job")
	}

	// The failed job is backed off, not immediately reclaimable.
	again, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce failed: %v", err)
	}
	if again {
		t.Error("failed job was reclaimed before backoff elapsed")
	}
}

func TestReindexAll(t *testing.T) {
	w, store, docs := setupWorker(t)

	for _, id := range []string{"a", "b"} {
		rel, err := docs.Save(id, id+".html", []byte("<p>content for "+id+"</p>"))
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		err = store.SaveDocument(storage.Document{
			ID:       id,
			MimeType: "text/html",
			FilePath: rel,
			Status:   "pending",
		})
		if err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}
	}

	n, err := w.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("ReindexAll failed: %v", err)
	}
	if n != 2 {
		t.Errorf("reindexed = %d, want 2", n)
	}

	for _, id := range []string{"a", "b"} {
		doc, err := store.GetDocument(id)
		if err != nil {
			t.Fatalf("GetDocument(%s) failed: %v", id, err)
		}
		if doc.Status != "indexed" {
			t.Errorf("doc %s status = %q, want indexed", id, doc.Status)
		}
	}
}
