package httpapi

import (
	"errors"
	"net/http"

	"tasky-api/internal/auth"
	"tasky-api/internal/tasks"
	"tasky-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

var errInvalidDueDate = errors.New("due_date must be RFC 3339 or YYYY-MM-DD")

// writeError is the single place where service errors become HTTP statuses.
// Unknown errors are logged and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, tasks.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrDuplicateIdentity):
		return http.StatusConflict, auth.ErrDuplicateIdentity.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, auth.ErrUnauthenticated.Error()
	case errors.Is(err, auth.ErrTooManyAttempts):
		return http.StatusTooManyRequests, auth.ErrTooManyAttempts.Error()
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, auth.ErrNotFound.Error()
	case errors.Is(err, tasks.ErrNotFound):
		return http.StatusNotFound, tasks.ErrNotFound.Error()
	case errors.Is(err, tasks.ErrForbidden):
		return http.StatusForbidden, tasks.ErrForbidden.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
