// Package token encodes and decodes signed, time-bounded identity assertions.
//
// Tokens are stateless HS256 JWTs. There is no revocation store: logging out
// or changing an account's admin flag does not invalidate tokens already
// issued; they stay trusted until natural expiry.
package token

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/avolkhov/melodeon/internal/errs"
)

// Claims is the signed token payload. Username and IsAdmin are a snapshot
// taken at issuance and are not re-checked against the store per request.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// AccountID returns the subject parsed as an account UUID.
func (c *Claims) AccountID() (uuid.UUID, error) {
	id, err := uuid.FromString(c.Subject)
	if err != nil {
		return uuid.Nil, errs.ErrInvalidToken
	}
	return id, nil
}

// Pair is the token shape handed to clients.
type Pair struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "Bearer"
	ExpiresIn   int64  `json:"expires_in"` // seconds until expiry
}

// Codec issues and validates tokens with a process-wide secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// New constructs a Codec. ttl bounds the validity of every issued token.
func New(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl}
}

// Issue creates a signed HS256 token for the given account snapshot.
func (c *Codec) Issue(id uuid.UUID, username string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Username: username,
		IsAdmin:  isAdmin,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Validate verifies the signature and expiry of a raw token and returns its
// claims. Every failure mode — corruption, wrong key, wrong algorithm,
// expiry — collapses into ErrInvalidToken so callers cannot tell which check
// failed.
func (c *Codec) Validate(raw string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errs.ErrInvalidToken
	}

	// Re-check expiry independently of the library so an encoding bug or
	// leeway setting cannot silently extend validity.
	if claims.ExpiresAt == nil || !time.Now().Before(claims.ExpiresAt.Time) {
		return nil, errs.ErrInvalidToken
	}
	return &claims, nil
}

// Pair wraps an issued token into the client-facing shape.
func (c *Codec) Pair(access string) Pair {
	return Pair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(c.ttl.Seconds()),
	}
}
