package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-neows/internal/domain"
	"go-neows/internal/repo"

	"github.com/rs/zerolog"
)

const feedBody = `{
  "links": {"self": "https://api.nasa.gov/neo/rest/v1/feed?start_date=2024-01-01&end_date=2024-01-02&api_key=SECRET"},
  "element_count": 2,
  "near_earth_objects": {
    "2024-01-02": [{"id": "2", "name": "two", "links": {"self": "https://api.nasa.gov/neo/rest/v1/neo/2?api_key=SECRET"}}],
    "2024-01-01": [{"id": "1", "name": "one", "absolute_magnitude_h": 19.3}]
  }
}`

type fakeSource struct {
	mu        sync.Mutex
	feedCalls int
	neoCalls  int
	feed      func() ([]byte, error)
	neo       func(id string) ([]byte, error)
}

func (f *fakeSource) FetchFeed(_ context.Context, _, _ string) ([]byte, error) {
	f.mu.Lock()
	f.feedCalls++
	f.mu.Unlock()
	return f.feed()
}

func (f *fakeSource) FetchNeo(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	f.neoCalls++
	f.mu.Unlock()
	return f.neo(id)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newGateway(src *fakeSource) (*NasaGateway, *testClock) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := repo.NewResponseCache(repo.WithClock(clock.Now))
	return NewNasaGateway(cache, src, zerolog.Nop()), clock
}

func TestGetFeedRedactsAndCaches(t *testing.T) {
	src := &fakeSource{feed: func() ([]byte, error) { return []byte(feedBody), nil }}
	gw, _ := newGateway(src)

	for i := 0; i < 3; i++ {
		feed, err := gw.GetFeed(context.Background(), "2024-01-01", "2024-01-02")
		if err != nil {
			t.Fatalf("GetFeed: %v", err)
		}
		if feed.ElementCount != 2 || len(feed.NearEarthObjects) != 2 {
			t.Fatalf("feed = %+v", feed)
		}
		if strings.Contains(feed.Links["self"], "SECRET") {
			t.Errorf("top-level link not redacted: %s", feed.Links["self"])
		}
		if strings.Contains(feed.NearEarthObjects["2024-01-02"][0].Links["self"], "api_key") {
			t.Errorf("nested link not redacted")
		}
		if feed.NearEarthObjects["2024-01-01"][0].AbsoluteMagnitudeH != 19.3 {
			t.Errorf("number mangled: %v", feed.NearEarthObjects["2024-01-01"][0].AbsoluteMagnitudeH)
		}
		if got := ids(FlattenFeed(feed)); !equalIDs(got, []string{"2", "1"}) {
			t.Errorf("flattened = %v, want upstream date order", got)
		}
	}
	if src.feedCalls != 1 {
		t.Errorf("upstream calls = %d, want 1", src.feedCalls)
	}
}

func TestGetFeedKeyedByRange(t *testing.T) {
	src := &fakeSource{feed: func() ([]byte, error) { return []byte(feedBody), nil }}
	gw, _ := newGateway(src)

	_, _ = gw.GetFeed(context.Background(), "2024-01-01", "2024-01-02")
	_, _ = gw.GetFeed(context.Background(), "2024-01-01", "2024-01-03")
	if src.feedCalls != 2 {
		t.Errorf("upstream calls = %d, want 2", src.feedCalls)
	}
}

func TestGetFeedExpires(t *testing.T) {
	src := &fakeSource{feed: func() ([]byte, error) { return []byte(feedBody), nil }}
	gw, clock := newGateway(src)

	_, _ = gw.GetFeed(context.Background(), "2024-01-01", "2024-01-02")
	clock.Advance(FeedTTL - time.Second)
	_, _ = gw.GetFeed(context.Background(), "2024-01-01", "2024-01-02")
	if src.feedCalls != 1 {
		t.Fatalf("refetched before expiry")
	}
	clock.Advance(time.Second)
	_, _ = gw.GetFeed(context.Background(), "2024-01-01", "2024-01-02")
	if src.feedCalls != 2 {
		t.Errorf("upstream calls = %d, want 2 after expiry", src.feedCalls)
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	fail := true
	src := &fakeSource{neo: func(id string) ([]byte, error) {
		if fail {
			return nil, &domain.UpstreamError{Endpoint: "neo", StatusCode: 502, Err: errors.New("bad gateway")}
		}
		return []byte(`{"id":"` + id + `","name":"ok"}`), nil
	}}
	gw, _ := newGateway(src)

	_, err := gw.GetByID(context.Background(), "7")
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}

	fail = false
	neo, err := gw.GetByID(context.Background(), "7")
	if err != nil || neo.Name != "ok" {
		t.Fatalf("GetByID = %+v, %v", neo, err)
	}
	if src.neoCalls != 2 {
		t.Errorf("upstream calls = %d, want 2", src.neoCalls)
	}
}

func TestUndecodableBodyIsNotCached(t *testing.T) {
	src := &fakeSource{neo: func(string) ([]byte, error) { return []byte(`<html>oops`), nil }}
	gw, _ := newGateway(src)

	for i := 0; i < 2; i++ {
		if _, err := gw.GetByID(context.Background(), "1"); err == nil {
			t.Fatal("expected decode error")
		}
	}
	if src.neoCalls != 2 {
		t.Errorf("upstream calls = %d, want 2", src.neoCalls)
	}
}

func TestGetByIDTTL(t *testing.T) {
	src := &fakeSource{neo: func(id string) ([]byte, error) { return []byte(`{"id":"` + id + `"}`), nil }}
	gw, clock := newGateway(src)

	_, _ = gw.GetByID(context.Background(), "1")
	clock.Advance(23 * time.Hour)
	_, _ = gw.GetByID(context.Background(), "1")
	if src.neoCalls != 1 {
		t.Fatalf("object refetched within a day")
	}
	clock.Advance(time.Hour)
	_, _ = gw.GetByID(context.Background(), "1")
	if src.neoCalls != 2 {
		t.Errorf("upstream calls = %d, want 2", src.neoCalls)
	}
}

func TestClearCache(t *testing.T) {
	src := &fakeSource{neo: func(id string) ([]byte, error) { return []byte(`{"id":"` + id + `"}`), nil }}
	gw, _ := newGateway(src)

	_, _ = gw.GetByID(context.Background(), "1")
	gw.ClearCache()
	_, _ = gw.GetByID(context.Background(), "1")
	if src.neoCalls != 2 {
		t.Errorf("upstream calls = %d, want 2 after clear", src.neoCalls)
	}
}

func TestReturnedValuesAreIndependent(t *testing.T) {
	src := &fakeSource{neo: func(id string) ([]byte, error) { return []byte(`{"id":"` + id + `","name":"orig"}`), nil }}
	gw, _ := newGateway(src)

	first, _ := gw.GetByID(context.Background(), "1")
	first.Name = "changed"
	second, _ := gw.GetByID(context.Background(), "1")
	if second.Name != "orig" {
		t.Errorf("cached value mutated through a returned pointer: %q", second.Name)
	}
}
