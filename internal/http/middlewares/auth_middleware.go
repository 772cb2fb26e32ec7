package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rloughlin/posthub/internal/auth"
	"github.com/rloughlin/posthub/internal/domain/user"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// SubjectResolver turns a token subject back into a live account. Role and
// activation always come from the store, not from claims.
type SubjectResolver interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users SubjectResolver
}

func NewAuthMiddleware(jwt TokenVerifier, users SubjectResolver) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

// authenticate runs the credential pipeline and reports either the resolved
// user or the error code + message for the stage that failed.
func (m *AuthMiddleware) authenticate(c *gin.Context) (user.User, string, string) {
	authHeader := c.GetHeader("Authorization")

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return user.User{}, "missing_credentials", "Missing or invalid Authorization header"
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))

	if raw == "" {
		return user.User{}, "missing_credentials", "Missing or invalid Authorization header"
	}

	claims, err := m.jwt.VerifyAccessToken(raw)

	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return user.User{}, "token_expired", "Access token has expired"
		}
		return user.User{}, "invalid_token", "Invalid access token"
	}

	u, err := m.users.GetByUsername(c.Request.Context(), claims.Subject)

	if err != nil || !u.IsActive {
		// same answer for missing and deactivated accounts
		return user.User{}, "unknown_subject", "Could not validate credentials"
	}

	return u, "", ""
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, code, message := m.authenticate(c)

		if code != "" {
			abortUnauthorized(c, code, message)
			return
		}

		setIdentity(c, u)
		c.Next()
	}
}

// OptionalAuth resolves identity when a valid credential is present and lets
// the request through anonymously otherwise.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, code, _ := m.authenticate(c); code == "" {
			setIdentity(c, u)
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, u user.User) {
	c.Set(ctxUserKey, u)
	c.Set(ctxUserIDKey, u.ID)
	c.Set(ctxUsernameKey, u.Username)
	c.Set(ctxRoleKey, u.Role)
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

// Helpers so handlers don't need to know the magic keys.

func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func UsernameFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUsernameKey)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(user.Role)
	return role, ok
}
