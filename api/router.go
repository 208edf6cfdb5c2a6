package api

import (
	"context"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/Domenick1991/airbroker/api/middleware"
	"github.com/Domenick1991/airbroker/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const openAPIFile = "airbroker.swagger.json"

type Handlers struct {
	Session  *SessionHandler
	Schedule *ScheduleHandler
	Bookings *BookingHandler
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

func NewRouter(cfg config.HTTPConfig, limits config.RateLimitConfig, h Handlers, checks map[string]HealthCheck) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(corsMiddleware(cfg.AllowedOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "route not found", RequestID: middleware.RequestIDFrom(c)})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", RequestID: middleware.RequestIDFrom(c)})
	})

	r.GET("/healthz", healthHandler(checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.SwaggerDir != "" {
		r.StaticFile("/openapi/"+openAPIFile, filepath.Join(cfg.SwaggerDir, openAPIFile))
		r.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi/"+openAPIFile))))
	}

	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api/v1"
	}
	v1 := r.Group(basePath)
	v1.Use(middleware.NewRateLimiter(limits.RPS, limits.Burst).Handler())

	if h.Session != nil {
		h.Session.Register(v1.Group("/session"))
	}
	airline := v1.Group("/airline")
	if h.Schedule != nil {
		h.Schedule.Register(airline)
	}
	if h.Bookings != nil {
		h.Bookings.Register(airline, v1.Group("/bookings"))
	}
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results})
	}
}
