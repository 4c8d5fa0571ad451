package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document is a stored organizational document. Content holds the
// extracted plain text; binary uploads keep their original bytes on disk
// (FilePath) until the ingest worker extracts them.
type Document struct {
	ID        string
	Title     string
	Content   string
	Source    string
	MimeType  string
	FilePath  string
	Tags      string // JSON array stored as text
	Status    string // "pending", "indexed", "failed"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is an account known to the user store.
type User struct {
	ID          string
	Username    string
	DisplayName string
	Role        string // "admin", "analyst", "standard"
	CreatedAt   time.Time
}

// Interaction is one answered question, kept for observability.
type Interaction struct {
	ID         string
	CreatedAt  time.Time
	Question   string
	Answer     string
	Tier       string
	ErrorsJSON string // JSON array of {tier, message}
	CallerID   string
	CallerRole string
}

// Job is a queued background task.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
