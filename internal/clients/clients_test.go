package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go-neows/internal/domain"

	"github.com/rs/zerolog"
)

func newTestClient(baseURL, key string) *NasaClient {
	return NewNasaClient(NasaConfig{
		BaseURL: baseURL,
		APIKey:  key,
		Timeout: 2 * time.Second,
		Breaker: BreakerSettings{MinRequests: 2, FailureRatio: 1, Cooldown: time.Minute},
	}, nil, zerolog.Nop())
}

func TestFetchFeedSendsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("start_date") != "2024-01-01" || q.Get("end_date") != "2024-01-02" || q.Get("api_key") != "KEY" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"element_count":0,"near_earth_objects":{}}`))
	}))
	defer srv.Close()

	body, err := newTestClient(srv.URL, "KEY").FetchFeed(context.Background(), "2024-01-01", "2024-01-02")
	if err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}
	if !strings.Contains(string(body), "element_count") {
		t.Errorf("body = %s", body)
	}
}

func TestFetchNeoPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/neo/3542519" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"3542519"}`))
	}))
	defer srv.Close()

	body, err := newTestClient(srv.URL, "KEY").FetchNeo(context.Background(), "3542519")
	if err != nil {
		t.Fatalf("FetchNeo: %v", err)
	}
	if string(body) != `{"id":"3542519"}` {
		t.Errorf("body = %s", body)
	}
}

func TestMissingKeyIsConfigurationError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "").FetchNeo(context.Background(), "1")
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("upstream called without a key")
	}
}

func TestErrorStatusIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "KEY").FetchNeo(context.Background(), "404")
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if upErr.StatusCode != http.StatusNotFound || upErr.Endpoint != EndpointNeo {
		t.Errorf("upstream error = %+v", upErr)
	}
}

func TestTransportErrorDoesNotLeakKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, "TOPSECRET").FetchFeed(context.Background(), "2024-01-01", "2024-01-01")
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if strings.Contains(err.Error(), "TOPSECRET") {
		t.Errorf("api key leaked: %v", err)
	}
}

func TestBreakerOpensAfterServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "KEY")
	for i := 0; i < 3; i++ {
		_, err := c.FetchFeed(context.Background(), "2024-01-01", "2024-01-01")
		var upErr *domain.UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("call %d: err = %v, want UpstreamError", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("upstream calls = %d, want 2 before the circuit opened", got)
	}
}

func TestNoopGenerator(t *testing.T) {
	_, err := NoopGenerator{}.Generate(context.Background(), Prompt{User: "hi"})
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Setting != "OPENAI_KEY" {
		t.Errorf("err = %v, want OPENAI_KEY ConfigurationError", err)
	}
}

func TestOpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"summary\":\"s\"}"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{APIKey: "sk-test", Model: "gpt-4", BaseURL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop())
	got, err := g.Generate(context.Background(), Prompt{System: "sys", User: "user", MaxTokens: 10, Temperature: 0.8})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `{"summary":"s"}` {
		t.Errorf("content = %q", got)
	}
}

func TestOpenAIGeneratorProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{APIKey: "sk-test", Model: "gpt-4", BaseURL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop())
	if _, err := g.Generate(context.Background(), Prompt{User: "u"}); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestErrorBodyIsScrubbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"http_error":"NOT FOUND","error_message":"Asteroid not found",` +
			`"request":"http://` + r.Host + r.URL.RequestURI() + `"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "SECRETKEY").FetchNeo(context.Background(), "bogus")
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 UpstreamError", err)
	}
	if strings.Contains(err.Error(), "SECRETKEY") || strings.Contains(err.Error(), "api_key") {
		t.Errorf("key leaked: %v", err)
	}
	if !strings.Contains(err.Error(), "Asteroid not found") {
		t.Errorf("upstream message lost: %v", err)
	}
}
