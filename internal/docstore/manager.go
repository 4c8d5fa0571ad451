// Package docstore manages raw document files under a storage root.
package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager owns the on-disk document area. Construction creates the
// directory tree, so a read-only or otherwise unusable storage root
// surfaces as a constructor error rather than a later write failure.
type Manager struct {
	root string
}

// New creates a Manager rooted at dir, creating the directory if needed.
func New(dir string) (*Manager, error) {
	if dir == "" {
		return nil, fmt.Errorf("document directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating document directory: %w", err)
	}
	return &Manager{root: dir}, nil
}

// Root returns the storage root path.
func (m *Manager) Root() string {
	return m.root
}

// Save writes raw document bytes under the given id, using the original
// filename's extension so extraction can dispatch on it later.
// Returns the path relative to the storage root.
func (m *Manager) Save(id, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	name := id + ext
	path := filepath.Join(m.root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing document %s: %w", id, err)
	}
	return name, nil
}

// Read returns the raw bytes of a previously saved document.
func (m *Manager) Read(relPath string) ([]byte, error) {
	if strings.Contains(relPath, "..") {
		return nil, fmt.Errorf("invalid document path %q", relPath)
	}
	data, err := os.ReadFile(filepath.Join(m.root, relPath))
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", relPath, err)
	}
	return data, nil
}

// Remove deletes a stored document file. Missing files are not an error.
func (m *Manager) Remove(relPath string) error {
	if relPath == "" || strings.Contains(relPath, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(m.root, relPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing document %s: %w", relPath, err)
	}
	return nil
}
