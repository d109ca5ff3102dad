package handlers

import (
	"errors"
	"net/http"
	"time"

	"go-neows/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	maxRequestIDLen = 64
)

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"script-src 'self'; img-src 'self' data: https:"

// RequestID tags each request with an id, reusing a sane inbound X-Request-ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one structured line per request
func AccessLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str(requestIDKey, c.GetString(requestIDKey)).
			Msg("request")
	}
}

// SecurityHeaders sets the standard hardening headers on every response
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		c.Next()
	}
}

// Recovery converts panics into a JSON 500
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Error().Interface("panic", rec).Str(requestIDKey, c.GetString(requestIDKey)).Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, domain.ErrorBody{Error: "Internal Server Error"})
	})
}

// ErrorHandler renders the last error attached with c.Error as
// {error, details}. Validation failures are 400; everything else is 500
// unless the handler already chose an error status.
func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		err := last.Err

		// error responses must never be cached
		c.Writer.Header().Del("ETag")
		c.Header("Cache-Control", "no-store")

		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			log.Debug().Strs("details", verr.Details()).Str("path", c.Request.URL.Path).Msg("request rejected")
			c.JSON(http.StatusBadRequest, domain.ErrorBody{
				Error:   "Validation failed",
				Details: verr.Details(),
			})
			return
		}

		status := http.StatusInternalServerError
		if s := c.Writer.Status(); s >= http.StatusBadRequest {
			status = s
		}

		headline := err.Error()
		if msg, ok := last.Meta.(string); ok && msg != "" {
			headline = msg
		}

		ev := log.Error().Err(err).Str("path", c.Request.URL.Path).Str(requestIDKey, c.GetString(requestIDKey))
		var cfgErr *domain.ConfigurationError
		var upErr *domain.UpstreamError
		switch {
		case errors.As(err, &cfgErr):
			ev = ev.Str("setting", cfgErr.Setting)
		case errors.As(err, &upErr):
			ev = ev.Str("endpoint", upErr.Endpoint).Int("upstream_status", upErr.StatusCode)
		}
		ev.Msg(headline)

		c.JSON(status, domain.ErrorBody{
			Error:   headline,
			Details: err.Error(),
		})
	}
}
