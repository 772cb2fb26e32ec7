package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rloughlin/posthub/internal/cache"
	"github.com/rloughlin/posthub/internal/config"
	"github.com/rloughlin/posthub/internal/domain/post"
	"github.com/rloughlin/posthub/internal/domain/user"
	"github.com/rloughlin/posthub/internal/http/middlewares"
	"github.com/rloughlin/posthub/internal/observability"
	"github.com/rloughlin/posthub/internal/utils"
)

type PostsStore interface {
	Create(ctx context.Context, p post.Post) (post.WithAuthor, error)
	GetByID(ctx context.Context, id string) (post.WithAuthor, error)
	List(ctx context.Context, filter post.ListFilter) ([]post.WithAuthor, int, error)
	Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.WithAuthor, error)
	Delete(ctx context.Context, id string) error
}

type PostsHandler struct {
	repo  PostsStore
	cache *cache.Cache
	prom  *observability.Prom
}

func NewPostsHandler(repo PostsStore) *PostsHandler {
	return &PostsHandler{repo: repo}
}

// NewPostsHandlerWithCache serves the public listing through a TTL cache.
// prom may be nil in tests.
func NewPostsHandlerWithCache(repo PostsStore, c *cache.Cache, prom *observability.Prom) *PostsHandler {
	return &PostsHandler{
		repo:  repo,
		cache: c,
		prom:  prom,
	}
}

func (h *PostsHandler) List(ctx *gin.Context) {
	skip, limit := utils.ParsePage(ctx.Query("skip"), ctx.Query("limit"))

	publishedOnly := true

	// only admins may widen the listing to drafts
	if role, ok := middlewares.RoleFromContext(ctx); ok && role == user.RoleAdmin && ctx.Query("published") == "false" {
		publishedOnly = false
	}

	// only the fully public shape is cacheable
	cacheable := publishedOnly && h.cache != nil
	key := utils.BuildPostsListCacheKey(skip, limit)

	if cacheable {
		if payload, ok := h.cache.Get(key); ok {
			h.prom.ObserveCacheHit("posts_list")
			RespondJSONWithETag(ctx, http.StatusOK, payload)
			return
		}
		h.prom.ObserveCacheMiss("posts_list")
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, post.ListFilter{
		PublishedOnly: publishedOnly,
		Limit:         limit,
		Offset:        skip,
	})

	if err != nil {
		RespondInternal(ctx, "Could not list posts")
		return
	}

	payload := gin.H{
		"items": items,
		"total": total,
		"skip":  skip,
		"limit": limit,
	}

	if cacheable {
		h.cache.Set(key, payload)
	}

	RespondJSONWithETag(ctx, http.StatusOK, payload)
}

func (h *PostsHandler) ListMine(ctx *gin.Context) {
	cur, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "missing_credentials", "Missing identity context")
		return
	}

	skip, limit := utils.ParsePage(ctx.Query("skip"), ctx.Query("limit"))

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, post.ListFilter{
		OwnerID: &cur.ID,
		Limit:   limit,
		Offset:  skip,
	})

	if err != nil {
		RespondInternal(ctx, "Could not list posts")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}

// Get hides drafts from everyone but the owner and admins. A draft answered
// with 404 is indistinguishable from a missing post.
func (h *PostsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}

		RespondInternal(ctx, "Could not fetch post")
		return
	}

	if !p.IsPublished {
		cur, ok := middlewares.CurrentUser(ctx)

		if !ok || (cur.Role != user.RoleAdmin && cur.ID != p.OwnerID) {
			RespondNotFound(ctx, "Post not found")
			return
		}
	}

	RespondJSONWithETag(ctx, http.StatusOK, p)
}

func (h *PostsHandler) Create(ctx *gin.Context) {
	cur, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "missing_credentials", "Missing identity context")
		return
	}

	var req post.CreatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, post.NewFromCreateRequest(req, cur.ID))

	if err != nil {
		RespondInternal(ctx, "Could not create post")
		return
	}

	h.invalidateListings()

	ctx.JSON(http.StatusCreated, created)
}

func (h *PostsHandler) Update(ctx *gin.Context) {
	cur, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "missing_credentials", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	var req post.UpdatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}

		RespondInternal(ctx, "Could not update post")
		return
	}

	if cur.Role != user.RoleAdmin && existing.OwnerID != cur.ID {
		RespondForbidden(ctx, "Not enough permissions to modify this post")
		return
	}

	updated, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}

		RespondInternal(ctx, "Could not update post")
		return
	}

	h.invalidateListings()

	ctx.JSON(http.StatusOK, updated)
}

func (h *PostsHandler) Delete(ctx *gin.Context) {
	cur, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "missing_credentials", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}

		RespondInternal(ctx, "Could not delete post")
		return
	}

	if cur.Role != user.RoleAdmin && existing.OwnerID != cur.ID {
		RespondForbidden(ctx, "Not enough permissions to modify this post")
		return
	}

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}

		RespondInternal(ctx, "Could not delete post")
		return
	}

	h.invalidateListings()

	ctx.Status(http.StatusNoContent)
}

// invalidateListings drops every cached listing page after a mutation. Single
// posts are never cached, so this is the whole invalidation story.
func (h *PostsHandler) invalidateListings() {
	if h.cache != nil {
		h.cache.DeletePrefix(utils.PostsListCachePrefix)
	}
}
