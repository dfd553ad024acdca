package handler

import (
	"errors"
	"net/http"

	"jewelry-backend/internal/schedule"
	"jewelry-backend/internal/service"
	"jewelry-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors to HTTP status codes. Typed billing errors
// carry their own semantics; anything else is a 400 so internals don't leak
// as 500s for what are usually bad inputs.
func writeError(c *gin.Context, err error) {
	var (
		validationErr *schedule.ValidationError
		conflictErr   *schedule.ConflictError
		allocationErr *schedule.AllocationError
		notFoundErr   *schedule.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, validationErr.Error()))
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, conflictErr.Error()))
	case errors.As(err, &allocationErr):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, allocationErr.Error()))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, notFoundErr.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}

// currentUserID returns the authenticated user's id set by the auth middleware.
func currentUserID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	s, _ := userID.(string)
	return s
}

// currentCaller bundles the authenticated user's id and role for read
// endpoints that scope customer accounts to their own records.
func currentCaller(c *gin.Context) service.Caller {
	role, _ := c.Get("userRole")
	roleStr, _ := role.(string)
	return service.Caller{UserID: currentUserID(c), Role: roleStr}
}
