package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorInternal):
		return http.StatusInternalServerError
	case errors.Is(err, common.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"message": ...}. Internal failures are logged and
// not echoed to the client.
func (s *HTTPServer) fail(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
		msg = "internal error"
	}
	c.JSON(code, gin.H{"message": msg})
}
