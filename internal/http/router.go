package http

import (
	"context"
	"os"
	"time"

	"github.com/geocoder89/libraryhub/internal/auth"
	"github.com/geocoder89/libraryhub/internal/cache"
	"github.com/geocoder89/libraryhub/internal/config"
	"github.com/geocoder89/libraryhub/internal/domain/user"
	"github.com/geocoder89/libraryhub/internal/http/handlers"
	"github.com/geocoder89/libraryhub/internal/http/middlewares"
	"github.com/geocoder89/libraryhub/internal/observability"
	"github.com/geocoder89/libraryhub/internal/repo"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB; auth payloads are tiny

type Deps struct {
	Store    repo.CredentialStore
	Cache    cache.Users
	JWT      *auth.Manager
	Metrics  *observability.Prom
	Registry *prometheus.Registry
	// Redis backs the shared rate limiter; nil falls back to
	// per-process buckets.
	Redis *redis.Client
}

func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	if os.Getenv("APP_ENV") != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))

	if cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("libraryhub"))
	}

	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}

	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health

	ping := func() error {
		if d.Store == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Store.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// wire up handlers

	authMW := middlewares.NewAuthMiddleware(d.JWT, d.Store, d.Cache, d.Metrics)
	authHandler := handlers.NewAuthHandler(d.Store, d.JWT, d.Cache, d.Metrics)
	usersHandler := handlers.NewUsersHandler(d.Store, d.Cache)

	limiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, d.Redis)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", limiter.Middleware(middlewares.KeyByIP), authHandler.Register)
	authGroup.POST("/login", limiter.Middleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)
	authGroup.GET("/check", authMW.CheckAuth())

	users := r.Group("/users", authMW.RequireAuth())
	users.GET("/profile", usersHandler.GetProfile)
	users.PUT("/profile", usersHandler.UpdateProfile)
	users.PUT("/password", usersHandler.ChangePassword)
	users.GET("", authMW.RequireRole(user.RoleAdmin), usersHandler.ListUsers)

	return r
}
