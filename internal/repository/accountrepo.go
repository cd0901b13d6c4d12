// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkhov/melodeon/internal/model"
)

// AccountRepository provides concurrent-safe CRUD access to accounts.
// Username uniqueness is case-insensitive; the registered display case is
// preserved and returned as stored.
type AccountRepository interface {
	// Create inserts a new account. It returns errs.ErrConflict if the
	// case-folded username is taken. The uniqueness check, the insertion and
	// the first-account admin promotion (an empty store promotes the created
	// account to admin) happen in one atomic step with respect to all other
	// writers.
	Create(ctx context.Context, a *model.Account) (*model.Account, error)
	// GetByID loads an account by ID. Returns errs.ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetByUsername loads an account by case-insensitive username.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	// Update replaces an existing account. Returns errs.ErrNotFound if the
	// ID does not exist.
	Update(ctx context.Context, a *model.Account) (*model.Account, error)
	// Delete removes an account and reports whether a record was removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// List returns all accounts.
	List(ctx context.Context) ([]model.Account, error)
	// Count returns the total number of accounts.
	Count(ctx context.Context) (int, error)
}
