// Package handlers provides HTTP request handlers
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go-neows/internal/domain"
	"go-neows/internal/services"
	"go-neows/internal/validation"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Cache-Control max-age values in seconds
const (
	feedMaxAge     = 3600
	asteroidMaxAge = 86400
	analysisMaxAge = 1800
)

const healthMessage = "NASA Space Explorer API is running"

// NeoGateway is the cached view of NeoWs the handlers read from
type NeoGateway interface {
	GetFeed(ctx context.Context, startDate, endDate string) (*domain.Feed, error)
	GetByID(ctx context.Context, id string) (*domain.NearEarthObject, error)
	ClearCache()
}

// Analyzer produces a narrative analysis of one object
type Analyzer interface {
	Analyze(ctx context.Context, neo *domain.NearEarthObject) (domain.AsteroidAnalysis, error)
}

// Handler holds all service dependencies
type Handler struct {
	Gateway   NeoGateway
	Narrator  Analyzer
	Validator *validation.QueryValidator
	log       zerolog.Logger
}

// NewHandler creates a new handler with services
func NewHandler(gw NeoGateway, narrator Analyzer, v *validation.QueryValidator, log zerolog.Logger) *Handler {
	return &Handler{
		Gateway:   gw,
		Narrator:  narrator,
		Validator: v,
		log:       log,
	}
}

// Health handles health check requests
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, domain.Health{
		Success: true,
		Message: healthMessage,
	})
}

// GetFeed handles paginated, filtered feed requests
func (h *Handler) GetFeed(c *gin.Context) {
	raw := make(map[string]string, 8)
	for _, name := range []string{
		validation.ParamStartDate, validation.ParamEndDate,
		validation.ParamPage, validation.ParamLimit,
		validation.ParamHazard, validation.ParamDistance,
		validation.ParamSize, validation.ParamVelocity,
	} {
		if v, ok := c.GetQuery(name); ok {
			raw[name] = v
		}
	}

	q, err := h.Validator.Feed(raw)
	if err != nil {
		_ = c.Error(err)
		return
	}

	tag := etag("feed", q.StartDate, q.EndDate, strconv.Itoa(q.Page), strconv.Itoa(q.Limit),
		q.Filters.Hazard, q.Filters.Distance, q.Filters.Size, q.Filters.Velocity)
	if notModified(c, tag, feedMaxAge) {
		return
	}

	feed, err := h.Gateway.GetFeed(c.Request.Context(), q.StartDate, q.EndDate)
	if err != nil {
		_ = c.Error(err).SetMeta("Failed to fetch asteroids data")
		return
	}

	page := services.AssembleFeed(feed, q)
	cacheFor(c, tag, feedMaxAge)
	c.JSON(http.StatusOK, domain.FeedResponse{
		Links:            feed.Links,
		ElementCount:     feed.ElementCount,
		NearEarthObjects: map[string][]domain.NearEarthObject{q.StartDate: page.Objects},
		Pagination:       page.Pagination,
	})
}

// GetAsteroid handles single object lookups
func (h *Handler) GetAsteroid(c *gin.Context) {
	id, err := h.Validator.AsteroidID(c.Param(validation.ParamAsteroidID))
	if err != nil {
		_ = c.Error(err)
		return
	}

	tag := etag("asteroid", id)
	if notModified(c, tag, asteroidMaxAge) {
		return
	}

	neo, err := h.Gateway.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err).SetMeta("Failed to fetch asteroid data")
		return
	}

	cacheFor(c, tag, asteroidMaxAge)
	c.JSON(http.StatusOK, neo)
}

// AnalyzeAsteroid handles generated analysis requests
func (h *Handler) AnalyzeAsteroid(c *gin.Context) {
	id, err := h.Validator.AsteroidID(c.Param(validation.ParamAsteroidID))
	if err != nil {
		_ = c.Error(err)
		return
	}

	tag := etag("analysis", id)
	if notModified(c, tag, analysisMaxAge) {
		return
	}

	neo, err := h.Gateway.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err).SetMeta("Failed to fetch asteroid data")
		return
	}

	analysis, err := h.Narrator.Analyze(c.Request.Context(), neo)
	if err != nil {
		_ = c.Error(err).SetMeta("Failed to analyze asteroid")
		return
	}

	cacheFor(c, tag, analysisMaxAge)
	c.JSON(http.StatusOK, domain.AnalysisResponse{
		Asteroid: *neo,
		Analysis: analysis,
	})
}

// ClearCache handles response cache flush requests
func (h *Handler) ClearCache(c *gin.Context) {
	h.Gateway.ClearCache()
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.JSON(http.StatusOK, domain.MessageResponse{Message: "Cache cleared successfully"})
}

// etag derives a weak validator from the significant request parameters
func etag(parts ...string) string {
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64String(strings.Join(parts, "\x00")))
}

func cacheFor(c *gin.Context, tag string, maxAge int) {
	c.Header("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
	c.Header("ETag", tag)
}

// notModified answers 304 when If-None-Match already names tag. Tags are
// only handed out with a 200, so "*" is not honoured: it would vouch for
// ids that were never fetched.
func notModified(c *gin.Context, tag string, maxAge int) bool {
	header := c.GetHeader("If-None-Match")
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(tag, "W/") {
			cacheFor(c, tag, maxAge)
			c.Status(http.StatusNotModified)
			return true
		}
	}
	return false
}
