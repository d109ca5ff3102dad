package handlers

import (
	"net/http"
	"time"

	"go-neows/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// RouterConfig configures the outer HTTP stack
type RouterConfig struct {
	FrontendURL       string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Metrics is mounted at /metrics when set
	Metrics http.Handler
	Log     zerolog.Logger
}

// SetupRoutes configures all routes
func SetupRoutes(r *gin.Engine, h *Handler, metrics http.Handler) {
	api := r.Group("/api")

	// Health check
	api.GET("/health", h.Health)

	// NeoWs endpoints
	nasa := api.Group("/nasa")
	nasa.GET("/asteroids/feed", h.GetFeed)
	nasa.GET("/asteroids/:asteroid_id", h.GetAsteroid)
	nasa.GET("/asteroids/:asteroid_id/analyze", h.AnalyzeAsteroid)
	nasa.DELETE("/cache", h.ClearCache)

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
}

// NewEngine builds the gin engine with the request middleware chain
func NewEngine(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(cfg.Log))
	r.Use(RequestID())
	r.Use(AccessLog(cfg.Log))
	r.Use(SecurityHeaders())
	r.Use(ErrorHandler(cfg.Log))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, domain.ErrorBody{Error: "Not found", Details: c.Request.URL.Path})
	})

	SetupRoutes(r, h, cfg.Metrics)
	return r
}

// NewRouter wraps the engine in CORS and per-IP rate limiting
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	var handler http.Handler = NewEngine(h, cfg)

	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow > 0 {
		handler = httprate.Limit(
			cfg.RateLimitRequests,
			cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(rateLimited),
		)(handler)
	}

	handler = cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match", requestIDHeader},
		ExposedHeaders:   []string{"ETag", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)

	return handler
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	body, _ := json.Marshal(domain.ErrorBody{
		Error:   "Too many requests",
		Details: "Too many requests from this IP, please try again later",
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write(body)
}
