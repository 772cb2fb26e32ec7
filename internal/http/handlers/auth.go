package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rloughlin/posthub/internal/auth"
	"github.com/rloughlin/posthub/internal/config"
	"github.com/rloughlin/posthub/internal/domain/user"
	"github.com/rloughlin/posthub/internal/http/middlewares"
	"github.com/rloughlin/posthub/internal/security"
)

type AuthHandler struct {
	users UsersStore
	jwt   *auth.Manager
}

func NewAuthHandler(users UsersStore, jwt *auth.Manager) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwt,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	created, err := h.users.Create(cctx, user.NewFromRegisterRequest(req, hash))

	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already registered")
		case errors.Is(err, user.ErrUsernameTaken):
			RespondConflict(ctx, "username_taken", "Username is already taken")
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// Login is the form-encoded flow: username + password fields, the shape
// OAuth2 password-grant tooling sends.
func (h *AuthHandler) Login(ctx *gin.Context) {
	username := ctx.PostForm("username")
	password := ctx.PostForm("password")

	if username == "" || password == "" {
		RespondBadRequest(ctx, "Username and password form fields are required", nil)
		return
	}

	h.login(ctx, username, password)
}

func (h *AuthHandler) LoginJSON(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	h.login(ctx, req.Username, req.Password)
}

// login accepts the username OR the email as identifier. Unknown identifier
// and wrong password produce the identical response, so the endpoint cannot
// be used to enumerate accounts.
func (h *AuthHandler) login(ctx *gin.Context, identifier, password string) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByUsername(cctx, identifier)

	if errors.Is(err, user.ErrNotFound) {
		foundUser, err = h.users.GetByEmail(cctx, identifier)
	}

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnauthorized(ctx, "invalid_credentials", "Incorrect username or password")
			return
		}

		RespondInternal(ctx, "Could not sign in")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, password); err != nil {
		RespondUnauthorized(ctx, "invalid_credentials", "Incorrect username or password")
		return
	}

	if !foundUser.IsActive {
		RespondError(ctx, http.StatusForbidden, "account_disabled", "Account is disabled", nil)
		return
	}

	accessToken, err := h.jwt.IssueAccessToken(foundUser.Username, foundUser.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"tokenType":   "bearer",
		"expiresIn":   int(h.jwt.AccessTTL().Seconds()),
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "missing_credentials", "Missing identity context")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// Logout has no server-side effect: access tokens are stateless and short
// lived, so discarding the client copy is the whole operation.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out. Please remove the token from client-side storage.",
		"success": true,
	})
}
