package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
)

// Identity is the validated, request-scoped result of token authentication.
// It mirrors the claims snapshot, not the live account record.
type Identity struct {
	ID       uuid.UUID
	Username string
	IsAdmin  bool
}

const identityKey = "melodeon.identity"

// WithIdentity stores the authenticated identity in the request context.
func WithIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom fetches the authenticated identity from the request context.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
