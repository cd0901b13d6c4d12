package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avolkhov/melodeon/internal/errs"
)

// ErrorResponse is the JSON error body: a stable code plus a human message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps sentinel errors to HTTP statuses and aborts the request.
// Internal failures are reported opaquely; detail stays in the server log.
func writeError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "INTERNAL_ERROR", "internal error"

	switch {
	case errors.Is(err, errs.ErrValidation):
		status, code, message = http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, errs.ErrConflict):
		status, code, message = http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, errs.ErrInvalidCredentials),
		errors.Is(err, errs.ErrInvalidToken),
		errors.Is(err, errs.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "UNAUTHORIZED", err.Error()
	case errors.Is(err, errs.ErrForbidden):
		status, code, message = http.StatusForbidden, "FORBIDDEN", err.Error()
	case errors.Is(err, errs.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", err.Error()
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "BAD_REQUEST", Message: message})
}
