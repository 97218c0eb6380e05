package http

import (
	"errors"
	"net/http"

	"contractflow/internal/domain"
	"contractflow/internal/infra/auth/rbac"
	"contractflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// writeError maps a usecase error onto a status and error code. Anything
// outside the domain taxonomy is logged and reported as INTERNAL.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, domain.ErrLocked):
		writeErrorCode(c, http.StatusForbidden, "CONTRACT_LOCKED", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		if accessErr, ok := rbac.IsAccessError(err); ok {
			c.JSON(http.StatusForbidden, errorResponse{
				Code:    accessErr.Code,
				Message: err.Error(),
				Details: map[string]any{"operation": string(accessErr.Operation)},
			})
			return
		}
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeErrorCode(c, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeErrorCode(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrExpiredLink):
		writeErrorCode(c, http.StatusGone, "LINK_EXPIRED", err.Error())
	default:
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
