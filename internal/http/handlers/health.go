package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	appName    = "PostHub"
	appVersion = "1.0.0"
)

// PingFunc checks one dependency; nil means the dependency is not configured
// and is skipped.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	pingStore PingFunc
	pingRedis PingFunc
	env       string
	started   time.Time
}

func NewHealthHandler(pingStore, pingRedis PingFunc, env string) *HealthHandler {
	return &HealthHandler{
		pingStore: pingStore,
		pingRedis: pingRedis,
		env:       env,
		started:   time.Now(),
	}
}

// Root is the API welcome page.
func (h *HealthHandler) Root(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Welcome to " + appName,
		"version": appVersion,
		"docs":    "/docs",
		"health":  "/healthz",
	})
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Livez(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readyz answers 503 while any configured dependency is unreachable, so
// orchestrators hold traffic instead of routing into failures.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if h.pingStore != nil {
		if err := h.pingStore(cctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "store_unavailable",
			})
			return
		}
	}

	if h.pingRedis != nil {
		if err := h.pingRedis(cctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "redis_unavailable",
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *HealthHandler) Detailed(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	overall := "healthy"

	store := gin.H{"status": "not_configured"}

	if h.pingStore != nil {
		start := time.Now()
		err := h.pingStore(cctx)
		latency := time.Since(start)

		if err != nil {
			overall = "unhealthy"
			store = gin.H{
				"status":     "unhealthy",
				"connection": "failed",
			}
		} else {
			store = gin.H{
				"status":      "healthy",
				"connection":  "active",
				"response_ms": float64(latency.Microseconds()) / 1000,
			}
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	payload := gin.H{
		"status": overall,
		"application": gin.H{
			"name":           appName,
			"version":        appVersion,
			"env":            h.env,
			"uptime_seconds": int(time.Since(h.started).Seconds()),
		},
		"store": store,
		"runtime": gin.H{
			"goroutines":    runtime.NumGoroutine(),
			"heap_alloc_mb": float64(mem.HeapAlloc) / (1 << 20),
			"heap_sys_mb":   float64(mem.HeapSys) / (1 << 20),
			"num_gc":        mem.NumGC,
			"go_max_procs":  runtime.GOMAXPROCS(0),
		},
	}

	status := http.StatusOK

	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	ctx.JSON(status, payload)
}
