package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rloughlin/posthub/internal/config"
	"github.com/rloughlin/posthub/internal/domain/user"
	"github.com/rloughlin/posthub/internal/http/middlewares"
	"github.com/rloughlin/posthub/internal/security"
	"github.com/rloughlin/posthub/internal/utils"
)

// UsersStore is everything the user-facing handlers need from a store. Both
// the postgres and memory repos satisfy it.
type UsersStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	List(ctx context.Context, filter user.ListFilter) ([]user.User, int, error)
	Update(ctx context.Context, id string, params user.UpdateParams) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	users UsersStore
}

func NewUsersHandler(users UsersStore) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	skip, limit := utils.ParsePage(ctx.Query("skip"), ctx.Query("limit"))

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.users.List(cctx, user.ListFilter{Limit: limit, Offset: skip})

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}

func (h *UsersHandler) GetMe(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "missing_credentials", "Missing identity context")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	cur, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "missing_credentials", "Missing identity context")
		return
	}

	var req user.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	params, err := updateParamsFrom(req)

	if err != nil {
		RespondInternal(ctx, "Could not update user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.users.Update(cctx, cur.ID, params)

	if err != nil {
		respondUserUpdateError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *UsersHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "User not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "User not found")
		return
	}

	var req user.AdminUpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	params, err := updateParamsFrom(req.UpdateRequest)

	if err != nil {
		RespondInternal(ctx, "Could not update user")
		return
	}

	params.Role = req.Role

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.users.Update(cctx, id, params)

	if err != nil {
		respondUserUpdateError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *UsersHandler) DeleteByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "User not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.users.Delete(cctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// updateParamsFrom resolves the DTO into storage params, hashing any new
// password so plaintext stops here.
func updateParamsFrom(req user.UpdateRequest) (user.UpdateParams, error) {
	params := user.UpdateParams{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		IsActive: req.IsActive,
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)

		if err != nil {
			return user.UpdateParams{}, err
		}

		params.PasswordHash = &hash
	}

	return params, nil
}

func respondUserUpdateError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already registered")
	case errors.Is(err, user.ErrUsernameTaken):
		RespondConflict(ctx, "username_taken", "Username is already taken")
	default:
		RespondInternal(ctx, "Could not update user")
	}
}
