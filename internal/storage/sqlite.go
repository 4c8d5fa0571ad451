package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for documents, users,
// interactions, and background jobs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "askdesk.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for packages that run their own
// scans over stored rows (the knowledge index does).
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate applies embedded SQL migration files that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Documents ---

const documentColumns = "id, title, content, source, mime_type, file_path, tags, status, created_at, updated_at"

func (s *Store) SaveDocument(d Document) error {
	status := d.Status
	if status == "" {
		status = "pending"
	}
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := d.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := s.db.Exec(`
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Content, d.Source, d.MimeType, d.FilePath, d.Tags, status,
		created.Format(time.RFC3339), updated.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetDocument(id string) (Document, error) {
	row := s.db.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	return d, err
}

func (s *Store) ListDocuments(limit, offset int) ([]Document, error) {
	rows, err := s.db.Query(`
		SELECT `+documentColumns+` FROM documents
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// ListDocumentIDs returns the IDs of every stored document, oldest first.
func (s *Store) ListDocumentIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM documents ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateDocumentContent replaces the extracted text and status of a document.
func (s *Store) UpdateDocumentContent(id, content, status string) error {
	res, err := s.db.Exec(`
		UPDATE documents SET content = ?, status = ?, updated_at = ? WHERE id = ?`,
		content, status, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDocument(id string) error {
	res, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountDocuments() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (Document, error) {
	var d Document
	var createdAt, updatedAt string
	if err := r.Scan(&d.ID, &d.Title, &d.Content, &d.Source, &d.MimeType, &d.FilePath, &d.Tags, &d.Status, &createdAt, &updatedAt); err != nil {
		return Document{}, err
	}
	var err error
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Document{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Document{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return d, nil
}

// --- Users ---

func (s *Store) SaveUser(u User) error {
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO users (id, username, display_name, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.DisplayName, u.Role, created.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetUserByUsername(username string) (User, error) {
	var u User
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, username, display_name, role, created_at
		FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &createdAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

func (s *Store) ListUsers() ([]User, error) {
	rows, err := s.db.Query(`
		SELECT id, username, display_name, role, created_at
		FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []User
	for rows.Next() {
		var u User
		var createdAt string
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		u.CreatedAt = t
		results = append(results, u)
	}
	return results, rows.Err()
}

func (s *Store) CountUsers() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// --- Interactions ---

func (s *Store) SaveInteraction(i Interaction) error {
	created := i.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	errorsJSON := i.ErrorsJSON
	if errorsJSON == "" {
		errorsJSON = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO interactions (id, created_at, question, answer, tier, errors_json, caller_id, caller_role)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, created.Format(time.RFC3339), i.Question, i.Answer, i.Tier, errorsJSON, i.CallerID, i.CallerRole,
	)
	return err
}

func (s *Store) GetInteraction(id string) (Interaction, error) {
	var i Interaction
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, created_at, question, answer, tier, errors_json, caller_id, caller_role
		FROM interactions WHERE id = ?`, id,
	).Scan(&i.ID, &createdAt, &i.Question, &i.Answer, &i.Tier, &i.ErrorsJSON, &i.CallerID, &i.CallerRole)
	if err == sql.ErrNoRows {
		return Interaction{}, ErrNotFound
	}
	if err != nil {
		return Interaction{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = t
	return i, nil
}

func (s *Store) GetRecentInteractions(limit int) ([]Interaction, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, question, answer, tier, errors_json, caller_id, caller_role
		FROM interactions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		var i Interaction
		var createdAt string
		if err := rows.Scan(&i.ID, &createdAt, &i.Question, &i.Answer, &i.Tier, &i.ErrorsJSON, &i.CallerID, &i.CallerRole); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		i.CreatedAt = t
		results = append(results, i)
	}
	return results, rows.Err()
}

// --- Jobs ---

func (s *Store) EnqueueJob(job Job) error {
	now := time.Now().UTC().Format(time.RFC3339)
	runAfter := now
	if !job.RunAfter.IsZero() {
		runAfter = job.RunAfter.UTC().Format(time.RFC3339)
	}
	maxAttempts := job.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, maxAttempts, runAfter, now, now,
	)
	return err
}

// ClaimNextJob atomically selects the oldest runnable pending job of one
// of the given types and marks it running. Returns nil when no job is due.
func (s *Store) ClaimNextJob(types []string) (*Job, error) {
	if len(types) == 0 {
		return nil, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := strings.Repeat(",?", len(types)-1)
	query := `SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error
		FROM jobs
		WHERE status = 'pending' AND run_after <= ? AND type IN (?` + placeholders + `)
		ORDER BY run_after ASC, created_at ASC
		LIMIT 1`

	args := make([]any, 0, len(types)+1)
	args = append(args, now)
	for _, t := range types {
		args = append(args, t)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}

	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	err = tx.QueryRow(query, args...).Scan(
		&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError,
	)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("selecting next job: %w", err)
	}

	res, err := tx.Exec(`UPDATE jobs SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'`, now, j.ID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("updating job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("checking updated job rows: %w", err)
	}
	if n != 1 {
		tx.Rollback()
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	j.Status = "running"
	j.LastError = lastError.String
	if j.RunAfter, err = time.Parse(time.RFC3339, runAfter); err != nil {
		return nil, fmt.Errorf("parsing run_after for job %s: %w", j.ID, err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for job %s: %w", j.ID, err)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339, now); err != nil {
		return nil, fmt.Errorf("parsing updated_at for job %s: %w", j.ID, err)
	}
	return &j, nil
}

func (s *Store) CompleteJob(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE jobs SET status = 'completed', updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailJob records a failure. The job is retried with exponential backoff
// until max_attempts is reached, then marked failed permanently.
func (s *Store) FailJob(id string, errMsg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning fail transaction: %w", err)
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRow(`SELECT attempts, max_attempts FROM jobs WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	attempts++

	if attempts >= maxAttempts {
		_, err = tx.Exec(`UPDATE jobs SET status = 'failed', attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, now.Format(time.RFC3339), id)
	} else {
		backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
		runAfter := now.Add(backoff)
		_, err = tx.Exec(`UPDATE jobs SET status = 'pending', attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, runAfter.Format(time.RFC3339), now.Format(time.RFC3339), id)
	}

	if err != nil {
		return err
	}

	return tx.Commit()
}
