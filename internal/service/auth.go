// Package service contains application services for authentication and accounts.
package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/avolkhov/melodeon/internal/crypto"
	"github.com/avolkhov/melodeon/internal/errs"
	"github.com/avolkhov/melodeon/internal/model"
	"github.com/avolkhov/melodeon/internal/repository"
	"github.com/avolkhov/melodeon/internal/token"
)

// Username and password shape constraints.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
)

// AuthService defines registration, login and account management operations.
type AuthService interface {
	// Register validates input, creates the account and issues a token.
	Register(ctx context.Context, username, password string) (*model.Account, token.Pair, error)
	// Login authenticates by username/password and issues a token.
	Login(ctx context.Context, username, password string) (*model.Account, token.Pair, error)
	// Account loads a single account by ID.
	Account(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// Accounts lists all accounts (admin operation).
	Accounts(ctx context.Context) ([]model.Account, error)
	// DeleteAccount removes an account (admin operation) and reports whether
	// a record was removed.
	DeleteAccount(ctx context.Context, id uuid.UUID) (bool, error)
}

type AuthServiceImpl struct {
	accounts repository.AccountRepository
	codec    *token.Codec
	log      *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(accounts repository.AccountRepository, codec *token.Codec, log *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{accounts: accounts, codec: codec, log: log}
}

// Register creates a new account. The store decides atomically whether this
// is the first account (and therefore admin); a Conflict from the store is
// surfaced as-is, never retried.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (*model.Account, token.Pair, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, token.Pair{}, err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		s.log.Error("password hashing failed", zap.Error(err))
		return nil, token.Pair{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, token.Pair{}, err
	}

	a := &model.Account{
		ID:             id,
		Username:       username,
		CredentialHash: hash,
		CreatedAt:      time.Now().UTC(),
	}
	created, err := s.accounts.Create(ctx, a)
	if err != nil {
		return nil, token.Pair{}, err
	}

	pair, err := s.issue(created)
	if err != nil {
		return nil, token.Pair{}, err
	}

	s.log.Info("account registered",
		zap.String("id", created.ID.String()),
		zap.String("username", created.Username),
		zap.Bool("is_admin", created.IsAdmin),
	)
	return created, pair, nil
}

// Login authenticates a user. Unknown username and wrong password return the
// identical ErrInvalidCredentials value, so responses cannot be used to
// enumerate usernames.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*model.Account, token.Pair, error) {
	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, token.Pair{}, errs.ErrInvalidCredentials
	}

	ok, err := crypto.VerifyPassword(password, a.CredentialHash)
	if err != nil {
		// Malformed stored hash: internal failure, not a credential signal.
		s.log.Error("password verification failed",
			zap.String("id", a.ID.String()),
			zap.Error(err),
		)
		return nil, token.Pair{}, err
	}
	if !ok {
		return nil, token.Pair{}, errs.ErrInvalidCredentials
	}

	// Best effort: a failed last_login persist must not fail the login.
	now := time.Now().UTC()
	a.LastLogin = &now
	if _, err := s.accounts.Update(ctx, a); err != nil {
		s.log.Warn("last_login update failed",
			zap.String("id", a.ID.String()),
			zap.Error(err),
		)
	}

	pair, err := s.issue(a)
	if err != nil {
		return nil, token.Pair{}, err
	}

	s.log.Info("login", zap.String("id", a.ID.String()), zap.String("username", a.Username))
	return a, pair, nil
}

// Account loads a single account by ID.
func (s *AuthServiceImpl) Account(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// Accounts lists all accounts.
func (s *AuthServiceImpl) Accounts(ctx context.Context) ([]model.Account, error) {
	return s.accounts.List(ctx)
}

// DeleteAccount removes an account by ID.
func (s *AuthServiceImpl) DeleteAccount(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.accounts.Delete(ctx, id)
}

func (s *AuthServiceImpl) issue(a *model.Account) (token.Pair, error) {
	access, err := s.codec.Issue(a.ID, a.Username, a.IsAdmin)
	if err != nil {
		s.log.Error("token issuance failed", zap.String("id", a.ID.String()), zap.Error(err))
		return token.Pair{}, err
	}
	return s.codec.Pair(access), nil
}

func validateCredentials(username, password string) error {
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-32 characters of letters, digits or underscore", errs.ErrValidation)
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be %d-%d characters", errs.ErrValidation, minPasswordLen, maxPasswordLen)
	}
	return nil
}
