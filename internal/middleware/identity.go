package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/audit"
)

// UserHeader carries the uid of the signed-in user
const UserHeader = "X-User-ID"

// SessionChecker reports whether a uid has signed in
type SessionChecker interface {
	IsSignedIn(uid string) bool
}

// IdentityMiddleware requires a signed-in X-User-ID and stores it under
// UserIDKey
func IdentityMiddleware(sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader(UserHeader)
		if uid == "" {
			Abort(c, http.StatusUnauthorized, CodeUnauthorized, "missing "+UserHeader+" header", nil)
			return
		}
		if !sessions.IsSignedIn(uid) {
			Abort(c, http.StatusUnauthorized, CodeUnauthorized, "user is not signed in", nil)
			return
		}

		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// AuditMetaMiddleware puts the client address and user agent on the request
// context for audit entries
func AuditMetaMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithRequestMeta(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserID returns the uid stored by IdentityMiddleware
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
