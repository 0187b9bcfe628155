package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/server/http/dto"
	"github.com/polkiloo/bitlend/internal/server/http/middleware"
)

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) uuid.UUID {
	val, ok := c.Get(middleware.UserIDContextKey)
	if !ok {
		return uuid.Nil
	}
	id, _ := val.(uuid.UUID)
	return id
}

// StatusFor maps a domain error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrProviderTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domainErrors.ErrProviderUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domainErrors.ErrConnectionInProgress):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, domainErrors.ErrValidation),
		errors.Is(err, domainErrors.ErrSelfDealingNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainErrors.ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainErrors.ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	respondStatus(c, StatusFor(err), err)
}

func respondStatus(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: domainErrors.Code(err)})
}

func badRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: code})
}

// loanID parses the :id path parameter, replying 400 when malformed.
func loanID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_id")
		return uuid.Nil, false
	}
	return id, true
}
