package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rloughlin/posthub/internal/config"
	"github.com/rloughlin/posthub/internal/domain/stats"
)

type StatsStore interface {
	Dashboard(ctx context.Context) (stats.Dashboard, error)
	UserStats(ctx context.Context) (stats.Users, error)
	PostStats(ctx context.Context) (stats.Posts, error)
}

// AdminHandler serves the aggregate read endpoints. Role gating happens in
// the router, not here.
type AdminHandler struct {
	stats StatsStore
}

func NewAdminHandler(stats StatsStore) *AdminHandler {
	return &AdminHandler{stats: stats}
}

func (h *AdminHandler) Dashboard(ctx *gin.Context) {
	// dashboard fans out to several queries, give it a bit more room
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	d, err := h.stats.Dashboard(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not build dashboard")
		return
	}

	ctx.JSON(http.StatusOK, d)
}

func (h *AdminHandler) UserStats(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	s, err := h.stats.UserStats(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not build user stats")
		return
	}

	ctx.JSON(http.StatusOK, s)
}

func (h *AdminHandler) PostStats(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	s, err := h.stats.PostStats(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not build post stats")
		return
	}

	ctx.JSON(http.StatusOK, s)
}
