package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rloughlin/posthub/internal/domain/user"
)

func roleRank(r user.Role) int {
	switch r {
	case user.RoleAdmin:
		return 2
	case user.RoleUser:
		return 1
	default:
		return 0
	}
}

// RequireRole gates a route on a minimum role. Runs after RequireAuth, so a
// missing identity here means a wiring mistake rather than a bad credential.
func (m *AuthMiddleware) RequireRole(minimum user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortUnauthorized(c, "missing_credentials", "Missing identity context")
			return
		}

		if roleRank(role) < roleRank(minimum) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":      "forbidden",
					"message":   "Insufficient privileges",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}
		c.Next()
	}
}
