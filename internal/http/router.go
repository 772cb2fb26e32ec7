package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rloughlin/posthub/internal/auth"
	"github.com/rloughlin/posthub/internal/cache"
	"github.com/rloughlin/posthub/internal/config"
	"github.com/rloughlin/posthub/internal/domain/user"
	"github.com/rloughlin/posthub/internal/http/handlers"
	"github.com/rloughlin/posthub/internal/http/middlewares"
	"github.com/rloughlin/posthub/internal/observability"
)

// postsListCacheTTL bounds how stale the public post listing may get.
// Writes invalidate eagerly, so the TTL only matters for multi-instance
// deployments where another replica did the write.
const postsListCacheTTL = 30 * time.Second

// Deps carries everything the route table needs. main assembles it once;
// tests assemble it with fakes and in-memory stores.
type Deps struct {
	Users handlers.UsersStore
	Posts handlers.PostsStore
	Stats handlers.StatsStore

	JWT   *auth.Manager
	Redis *redis.Client

	Prom     *observability.Prom
	Registry *prometheus.Registry
	Tracing  bool

	PingStore handlers.PingFunc
	PingRedis handlers.PingFunc
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middlewares.RequestID())
	router.Use(middlewares.RequestLogger(log))
	router.Use(middlewares.SecurityHeaders())

	if len(cfg.CORSOrigins) > 0 {
		router.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	}

	router.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	// The form login is the one non-JSON write endpoint.
	router.Use(middlewares.RequireJSON("/api/v1/auth/login"))

	if deps.Tracing {
		router.Use(otelgin.Middleware("posthub"))
	}

	if deps.Prom != nil {
		router.Use(deps.Prom.GinHandleMiddleware())
	}

	authMW := middlewares.NewAuthMiddleware(deps.JWT, deps.Users)

	// Two policies: a tight per-IP one on credential endpoints, the general
	// one everywhere else (keyed by user once identity is resolved).
	authLimiter := middlewares.NewRateLimiter(deps.Redis, log,
		middlewares.PerWindow(cfg.RateLimitAuthRequests, cfg.RateLimitWindow))
	apiLimiter := middlewares.NewRateLimiter(deps.Redis, log,
		middlewares.PerWindow(cfg.RateLimitRequests, cfg.RateLimitWindow))

	limitByIP := apiLimiter.Middleware(middlewares.KeyByIP)
	limitByUser := apiLimiter.Middleware(middlewares.KeyByUserOrIP)
	limitCredentials := authLimiter.Middleware(middlewares.KeyByIP)

	healthHandler := handlers.NewHealthHandler(deps.PingStore, deps.PingRedis, cfg.Env)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT)
	usersHandler := handlers.NewUsersHandler(deps.Users)
	postsHandler := handlers.NewPostsHandlerWithCache(deps.Posts, cache.New(postsListCacheTTL), deps.Prom)
	adminHandler := handlers.NewAdminHandler(deps.Stats)

	router.GET("/", healthHandler.Root)
	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/livez", healthHandler.Livez)
	router.GET("/readyz", healthHandler.Readyz)
	router.GET("/health/detailed", healthHandler.Detailed)

	router.GET("/docs", handlers.SwaggerUI)
	router.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", limitCredentials, authHandler.Register)
		authGroup.POST("/login", limitCredentials, authHandler.Login)
		authGroup.POST("/login/json", limitCredentials, authHandler.LoginJSON)

		authGroup.GET("/me", authMW.RequireAuth(), limitByUser, authHandler.Me)
		authGroup.POST("/logout", authMW.RequireAuth(), limitByUser, authHandler.Logout)
	}

	adminOnly := authMW.RequireRole(user.RoleAdmin)

	usersGroup := api.Group("/users", authMW.RequireAuth(), limitByUser)
	{
		usersGroup.GET("/me", usersHandler.GetMe)
		usersGroup.PUT("/me", usersHandler.UpdateMe)

		usersGroup.GET("", adminOnly, usersHandler.List)
		usersGroup.GET("/:id", adminOnly, usersHandler.GetByID)
		usersGroup.PUT("/:id", adminOnly, usersHandler.UpdateByID)
		usersGroup.DELETE("/:id", adminOnly, usersHandler.DeleteByID)
	}

	postsGroup := api.Group("/posts")
	{
		// Reads are public; drafts stay hidden inside the handler.
		postsGroup.GET("", authMW.OptionalAuth(), limitByIP, postsHandler.List)
		postsGroup.GET("/my-posts", authMW.RequireAuth(), limitByUser, postsHandler.ListMine)
		postsGroup.GET("/:id", authMW.OptionalAuth(), limitByIP, postsHandler.Get)

		postsGroup.POST("", authMW.RequireAuth(), limitByUser, postsHandler.Create)
		postsGroup.PUT("/:id", authMW.RequireAuth(), limitByUser, postsHandler.Update)
		postsGroup.DELETE("/:id", authMW.RequireAuth(), limitByUser, postsHandler.Delete)
	}

	adminGroup := api.Group("/admin", authMW.RequireAuth(), adminOnly, limitByUser)
	{
		adminGroup.GET("/dashboard", adminHandler.Dashboard)
		adminGroup.GET("/users/stats", adminHandler.UserStats)
		adminGroup.GET("/posts/stats", adminHandler.PostStats)
	}

	return router
}
