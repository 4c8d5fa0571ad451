// Package userstore provides account lookup for caller identities.
package userstore

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mammadli/askdesk/internal/storage"
)

// Roles a caller identity can carry.
const (
	RoleAdmin    = "admin"
	RoleAnalyst  = "analyst"
	RoleStandard = "standard"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAnalyst, RoleStandard:
		return true
	}
	return false
}

// UserSource defines the storage operations the Store needs.
// Implemented by storage.Store.
type UserSource interface {
	SaveUser(u storage.User) error
	GetUserByUsername(username string) (storage.User, error)
	ListUsers() ([]storage.User, error)
	CountUsers() (int, error)
}

// Store provides account lookup backed by the document database.
type Store struct {
	src UserSource
}

// New creates a Store and seeds the default accounts on an empty table.
// It fails when the document database is unavailable, which the bootstrap
// records as this subsystem's own failure.
func New(src UserSource) (*Store, error) {
	if src == nil {
		return nil, fmt.Errorf("document database unavailable")
	}

	n, err := src.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	s := &Store{src: src}
	if n == 0 {
		if err := s.seedDefaults(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// seedDefaults creates the built-in accounts a fresh install starts with.
func (s *Store) seedDefaults() error {
	defaults := []storage.User{
		{Username: "admin", DisplayName: "Administrator", Role: RoleAdmin},
		{Username: "analyst", DisplayName: "Data Analyst", Role: RoleAnalyst},
		{Username: "demo", DisplayName: "Demo User", Role: RoleStandard},
	}
	for _, u := range defaults {
		u.ID = uuid.New().String()
		if err := s.src.SaveUser(u); err != nil {
			return fmt.Errorf("seeding user %s: %w", u.Username, err)
		}
	}
	return nil
}

// Lookup returns the account with the given username.
func (s *Store) Lookup(username string) (storage.User, error) {
	return s.src.GetUserByUsername(username)
}

// List returns all known accounts.
func (s *Store) List() ([]storage.User, error) {
	return s.src.ListUsers()
}
