// Package jsonfile implements AccountRepository on a single JSON snapshot file.
//
// An in-memory index keyed by account ID is the source of truth for reads.
// Every mutation rewrites the whole snapshot: serialize, write to a temporary
// file, then atomically rename over the canonical path. A crash between the
// two steps leaves the previous committed snapshot intact.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/avolkhov/melodeon/internal/errs"
	"github.com/avolkhov/melodeon/internal/model"
	"github.com/avolkhov/melodeon/internal/repository"
)

// snapshot is the on-disk layout: an ordered list of full account records.
type snapshot struct {
	Accounts []model.Account `json:"accounts"`
}

// Store is a file-backed account repository.
type Store struct {
	path string
	log  *zap.Logger

	mu   sync.RWMutex
	byID map[uuid.UUID]model.Account
}

var _ repository.AccountRepository = (*Store)(nil)

// New opens the store at path. A missing file initializes an empty store; a
// file that exists but does not parse is a startup error, never silently
// discarded data.
func New(path string, log *zap.Logger) (*Store, error) {
	s := &Store{path: path, log: log, byID: make(map[uuid.UUID]model.Account)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info("accounts file not found, starting fresh", zap.String("path", s.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read accounts file %s: %w", s.path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse accounts file %s: %w", s.path, err)
	}
	for _, a := range snap.Accounts {
		s.byID[a.ID] = a
	}
	s.log.Info("loaded accounts", zap.String("path", s.path), zap.Int("count", len(s.byID)))
	return nil
}

// saveLocked rewrites the snapshot. Callers must hold the write lock so the
// durable state and the index change together.
func (s *Store) saveLocked() error {
	snap := snapshot{Accounts: make([]model.Account, 0, len(s.byID))}
	for _, a := range s.byID {
		snap.Accounts = append(snap.Accounts, a)
	}
	sort.Slice(snap.Accounts, func(i, j int) bool {
		ai, aj := snap.Accounts[i], snap.Accounts[j]
		if !ai.CreatedAt.Equal(aj.CreatedAt) {
			return ai.CreatedAt.Before(aj.CreatedAt)
		}
		return ai.ID.String() < aj.ID.String()
	})

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	// The rename is the only point at which durable state changes.
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, s.path, err)
	}
	return nil
}

// clone deep-copies an account so callers never alias the index.
func clone(a model.Account) model.Account {
	if a.LastLogin != nil {
		t := *a.LastLogin
		a.LastLogin = &t
	}
	return a
}

func fold(username string) string { return strings.ToLower(username) }

// Create inserts a new account. Uniqueness check, first-account admin
// promotion and insertion run under one write-lock critical section, so two
// concurrent registrations cannot both pass the existence check and cannot
// both become the first admin.
func (s *Store) Create(_ context.Context, a *model.Account) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folded := fold(a.Username)
	for _, existing := range s.byID {
		if fold(existing.Username) == folded {
			return nil, fmt.Errorf("username %q: %w", a.Username, errs.ErrConflict)
		}
	}

	cp := clone(*a)
	if len(s.byID) == 0 {
		cp.IsAdmin = true
	}
	s.byID[cp.ID] = cp

	if err := s.saveLocked(); err != nil {
		delete(s.byID, cp.ID)
		return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}

	s.log.Info("created account",
		zap.String("id", cp.ID.String()),
		zap.String("username", cp.Username),
		zap.Bool("is_admin", cp.IsAdmin),
	)
	out := clone(cp)
	return &out, nil
}

// GetByID loads an account by ID.
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := clone(a)
	return &out, nil
}

// GetByUsername loads an account by case-insensitive username. The stored
// display case is preserved in the returned record.
func (s *Store) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folded := fold(username)
	for _, a := range s.byID {
		if fold(a.Username) == folded {
			out := clone(a)
			return &out, nil
		}
	}
	return nil, errs.ErrNotFound
}

// Update replaces an existing account record.
func (s *Store) Update(_ context.Context, a *model.Account) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[a.ID]
	if !ok {
		return nil, errs.ErrNotFound
	}

	cp := clone(*a)
	s.byID[cp.ID] = cp

	if err := s.saveLocked(); err != nil {
		s.byID[old.ID] = old
		return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	out := clone(cp)
	return &out, nil
}

// Delete removes an account and reports whether a record existed.
func (s *Store) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	delete(s.byID, id)

	if err := s.saveLocked(); err != nil {
		s.byID[old.ID] = old
		return false, fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}

	s.log.Info("deleted account", zap.String("id", id.String()))
	return true, nil
}

// List returns all accounts.
func (s *Store) List(_ context.Context) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Account, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Count returns the total number of accounts.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
