package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/chat"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/identity"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/middleware"
	"github.com/vcscsvcscs/swasth-ai/backend/internal/profile"
)

// Helper functions for conversions between API types and internal models

// derefString returns the pointed-to string or an empty string
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// derefBool returns the pointed-to bool or false
func derefBool(b *bool) bool {
	return b != nil && *b
}

// derefStrings returns the pointed-to slice or nil
func derefStrings(s *[]string) []string {
	if s == nil {
		return nil
	}
	return *s
}

// dateToTimePtr converts *types.Date to *time.Time
func dateToTimePtr(d *types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// emailString converts *types.Email to string
func emailString(e *types.Email) string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(string(*e))
}

// bindJSON decodes the request body or answers with VALIDATION_ERROR
func bindJSON(c *gin.Context, logger *zap.Logger, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Info("invalid request body", zap.Error(err), zap.String("path", c.FullPath()))
		middleware.Abort(c, http.StatusBadRequest, middleware.CodeValidation, "Invalid request body",
			map[string]interface{}{"reason": err.Error()})
		return false
	}
	return true
}

// statusFor maps service errors to an HTTP status and error code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrConversationNotFound),
		errors.Is(err, profile.ErrProfileNotFound),
		errors.Is(err, profile.ErrSuggestionNotFound),
		errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound, middleware.CodeNotFound
	case errors.Is(err, profile.ErrInvalidInput),
		errors.Is(err, chat.ErrTitleRequired),
		errors.Is(err, identity.ErrInvalidProfile):
		return http.StatusBadRequest, middleware.CodeValidation
	case errors.Is(err, identity.ErrNotSignedIn):
		return http.StatusUnauthorized, middleware.CodeUnauthorized
	case errors.Is(err, chat.ErrSessionClosed):
		return http.StatusConflict, middleware.CodeConflict
	default:
		return http.StatusInternalServerError, middleware.CodeInternal
	}
}

// respondError logs err and writes the mapped ErrorResponse. Server errors
// are attached to the context for the error logger.
func respondError(c *gin.Context, logger *zap.Logger, message string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.Error(message, zap.Error(err), zap.String("user_id", middleware.UserID(c)))
	} else {
		logger.Info(message, zap.Error(err), zap.String("user_id", middleware.UserID(c)))
	}

	var details map[string]interface{}
	if status != http.StatusInternalServerError {
		details = map[string]interface{}{"reason": err.Error()}
	}
	middleware.Abort(c, status, code, message, details)
}

// ParamError answers requests whose path or query parameters could not be
// bound
func ParamError(c *gin.Context, err error, statusCode int) {
	middleware.Abort(c, statusCode, middleware.CodeValidation, "Invalid parameter",
		map[string]interface{}{"reason": err.Error()})
}
