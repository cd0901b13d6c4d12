package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/avolkhov/melodeon/internal/errs"
	"github.com/avolkhov/melodeon/internal/model"
	"github.com/avolkhov/melodeon/internal/token"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResponse is the successful registration/login body.
type authResponse struct {
	User  model.PublicAccount `json:"user"`
	Token token.Pair          `json:"token"`
}

// register handles POST /auth/register.
func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	account, pair, err := s.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{User: account.Public(), Token: pair})
}

// login handles POST /auth/login.
func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	account, pair, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{User: account.Public(), Token: pair})
}

// me handles GET /auth/me. Unlike the middleware, it reads the live account
// record, so a deleted account yields 404 even with a valid token.
func (s *Server) me(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		writeError(c, errs.ErrUnauthorized)
		return
	}

	account, err := s.auth.Account(c.Request.Context(), identity.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account.Public())
}

// listAccounts handles GET /auth/users (admin).
func (s *Server) listAccounts(c *gin.Context) {
	accounts, err := s.auth.Accounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]model.PublicAccount, 0, len(accounts))
	for i := range accounts {
		out = append(out, accounts[i].Public())
	}
	c.JSON(http.StatusOK, out)
}

// deleteAccount handles DELETE /auth/users/:id (admin).
func (s *Server) deleteAccount(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: malformed account id", errs.ErrValidation))
		return
	}

	removed, err := s.auth.DeleteAccount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !removed {
		writeError(c, fmt.Errorf("account %s: %w", id, errs.ErrNotFound))
		return
	}
	c.Status(http.StatusNoContent)
}
