package handler

import (
	"errors"
	"net/http"

	"quoteportal/internal/middleware"
	"quoteportal/internal/model"
	"quoteportal/internal/service"
	"quoteportal/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors onto HTTP status codes. Unknown errors are
// recorded on the context for the request logger and answered generically.
func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, response.Invalid(http.StatusBadRequest, verr.Error(), verr.Fields))
		return
	}

	status := http.StatusInternalServerError
	msg := "Internal server error"

	switch {
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrTemplateNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrOutOfOrder):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrLocked),
		errors.Is(err, service.ErrVersionConflict):
		status, msg = http.StatusConflict, err.Error()
	default:
		_ = c.Error(err)
	}

	c.JSON(status, response.Error(status, msg))
}

// currentPrincipal fetches the authenticated caller or answers 401.
func currentPrincipal(c *gin.Context) (model.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
		return model.Principal{}, false
	}
	return p, true
}
