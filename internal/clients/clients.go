// Package clients provides HTTP clients for external APIs
package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-neows/internal/domain"
	"go-neows/internal/metrics"
	"go-neows/internal/redact"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// NeoWs endpoint labels used in errors and metrics
const (
	EndpointFeed = "feed"
	EndpointNeo  = "neo"
)

const (
	userAgent    = "go-neows/1.0"
	maxErrorBody = 512
	breakerName  = "nasa-neows"
)

var errServer = errors.New("upstream server error")

// BreakerSettings controls when the upstream circuit opens
type BreakerSettings struct {
	MinRequests  uint32
	FailureRatio float64
	Cooldown     time.Duration
}

// NasaConfig configures a NasaClient
type NasaConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Breaker BreakerSettings
}

// NasaClient fetches Near-Earth-Object data from NASA NeoWs
type NasaClient struct {
	http    *resty.Client
	apiKey  string
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewNasaClient creates a new NeoWs client. Requests are never retried;
// an open circuit fails fast with an UpstreamError.
func NewNasaClient(cfg NasaConfig, m *metrics.Metrics, log zerolog.Logger) *NasaClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{log: log})

	c := &NasaClient{
		http:    client,
		apiKey:  cfg.APIKey,
		metrics: m,
		log:     log,
	}

	m.CircuitState(breakerName, 0)
	c.breaker = gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.Breaker.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.Breaker.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			m.CircuitState(name, stateValue(to))
		},
	})
	return c
}

// Configured reports whether an API key is available
func (c *NasaClient) Configured() bool {
	return c.apiKey != ""
}

// FetchFeed fetches the date-keyed feed for [startDate, endDate]
func (c *NasaClient) FetchFeed(ctx context.Context, startDate, endDate string) ([]byte, error) {
	return c.get(ctx, EndpointFeed, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(map[string]string{
			"start_date": startDate,
			"end_date":   endDate,
		}).Get("/feed")
	})
}

// FetchNeo fetches a single object by its NeoWs id
func (c *NasaClient) FetchNeo(ctx context.Context, id string) ([]byte, error) {
	return c.get(ctx, EndpointNeo, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Get("/neo/{id}")
	})
}

func (c *NasaClient) get(ctx context.Context, endpoint string, do func(*resty.Request) (*resty.Response, error)) ([]byte, error) {
	if !c.Configured() {
		return nil, &domain.ConfigurationError{
			Setting: "NASA_API_KEY",
			Message: "NASA API key is not configured",
		}
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		resp, err := do(c.http.R().SetContext(ctx).SetQueryParam(redact.KeyParam, c.apiKey))
		if err != nil {
			return nil, redact.Error(err)
		}
		if resp.StatusCode() >= 500 {
			return resp, errServer
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.Upstream(endpoint, "rejected")
		return nil, &domain.UpstreamError{Endpoint: endpoint, Err: err}
	case err != nil && resp == nil:
		c.metrics.Upstream(endpoint, "error")
		c.log.Error().Err(err).Str("endpoint", endpoint).Dur("elapsed", time.Since(start)).Msg("NASA request failed")
		return nil, &domain.UpstreamError{Endpoint: endpoint, Err: err}
	}

	if resp.IsError() {
		c.metrics.Upstream(endpoint, "error")
		c.log.Error().Int("status", resp.StatusCode()).Str("endpoint", endpoint).Msg("NASA request returned error status")
		return nil, &domain.UpstreamError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode(),
			Err:        errors.New(truncate(redact.Text(string(resp.Body())), maxErrorBody)),
		}
	}

	c.metrics.Upstream(endpoint, "ok")
	c.log.Debug().Str("endpoint", endpoint).Dur("elapsed", time.Since(start)).Int("bytes", len(resp.Body())).Msg("NASA request succeeded")
	return resp.Body(), nil
}

// restyLogger routes resty's own diagnostics through zerolog with
// request URLs scrubbed of the api key.
type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error().Msg(scrubf(format, v))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn().Msg(scrubf(format, v))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug().Msg(scrubf(format, v))
}

func scrubf(format string, v []interface{}) string {
	for i, arg := range v {
		switch a := arg.(type) {
		case error:
			v[i] = redact.Error(a)
		case string:
			v[i] = redact.URL(a)
		}
	}
	return fmt.Sprintf(format, v...)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:n], len(s))
}
