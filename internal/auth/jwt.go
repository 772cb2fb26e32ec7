package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rloughlin/posthub/internal/domain/user"
)

const (
	TokenTypeAccess        = "access"
	TokenTypePasswordReset = "password_reset"
)

// Typed verification outcomes. Structural, signature and wrong-type
// failures all collapse into ErrTokenInvalid; only a token that is
// well-formed and correctly signed but past its expiry reports
// ErrTokenExpired.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type Claims struct {
	Role      user.Role `json:"role,omitempty"`
	TokenType string    `json:"typ"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 tokens. It holds no per-token state:
// expiry is encoded in the claims and checked lazily on verification.
type Manager struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
}

func NewManager(secret string, accessTTL, resetTTL time.Duration) *Manager {
	return &Manager{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		resetTTL:  resetTTL,
	}
}

// AccessTTL reports the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

// IssueAccessToken signs an access token with the username as subject.
func (m *Manager) IssueAccessToken(username string, role user.Role) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		Role:      role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// IssuePasswordResetToken signs a short-lived single-purpose token. It is
// never accepted where an access token is expected (and vice versa).
func (m *Manager) IssuePasswordResetToken(username string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		TokenType: TokenTypePasswordReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.resetTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifyAccessToken checks structure, signature and expiry, in that order.
func (m *Manager) VerifyAccessToken(raw string) (*Claims, error) {
	return m.parse(raw, TokenTypeAccess)
}

// VerifyPasswordResetToken returns the username the reset token was issued for.
func (m *Manager) VerifyPasswordResetToken(raw string) (string, error) {
	claims, err := m.parse(raw, TokenTypePasswordReset)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (m *Manager) parse(raw, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HMAC, anything else is rejected before claims are looked at.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		// Signature was fine, the token simply outlived its TTL.
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
