package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adscope/amzcore/auth"
	"github.com/adscope/amzcore/cache"
	"github.com/adscope/amzcore/observe"
	"github.com/adscope/amzcore/resilience"
	"github.com/adscope/amzcore/transport"
)

func testAuth() auth.Provider {
	return auth.NewStatic(auth.StaticConfig{
		ClientID:    "amzn1.application-oa2-client.test",
		AccessToken: "Atza|testtoken",
		ProfileID:   "12345",
	})
}

func okJSON(body string) *transport.Response {
	return &transport.Response{
		StatusCode: 200,
		Status:     "200 OK",
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

// newTestClient builds a Client over a fake transport with generous
// rate limits and a small cache.
func newTestClient(t *testing.T, fake transport.Transport, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		Provider:  "advertising",
		BaseURL:   "https://advertising-api.amazon.com",
		Auth:      testAuth(),
		Transport: fake,
		Limits:    resilience.NewLimiterTable(resilience.BucketConfig{Rate: 1000, Burst: 1000}, nil),
		Cache:     cache.NewMemory(cache.MemoryConfig{MaxEntries: 64}),
		TTLs:      cache.NewTTLTable(time.Minute, nil),
		Retry:     resilience.RetryPolicy{MaxRetries: 0},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

// TestNew_RequiredFields verifies construction validation.
func TestNew_RequiredFields(t *testing.T) {
	if _, err := New(Config{BaseURL: "https://x", Auth: testAuth()}); !errors.Is(err, ErrMissingProvider) {
		t.Errorf("expected ErrMissingProvider, got %v", err)
	}
	if _, err := New(Config{Provider: "p", Auth: testAuth()}); !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("expected ErrMissingBaseURL, got %v", err)
	}
	if _, err := New(Config{Provider: "p", BaseURL: "https://x"}); !errors.Is(err, ErrMissingAuth) {
		t.Errorf("expected ErrMissingAuth, got %v", err)
	}
}

// TestDo_AttachesAuthHeaders verifies credentials reach the wire on
// every call.
func TestDo_AttachesAuthHeaders(t *testing.T) {
	var seen map[string]string
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		seen = req.Headers
		return okJSON(`{}`), nil
	})
	client := newTestClient(t, fake, nil)

	if _, err := client.Get(context.Background(), "/v2/campaigns", CallOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if seen[auth.HeaderClientID] != "amzn1.application-oa2-client.test" {
		t.Errorf("missing client id header, got %v", seen)
	}
	if seen[auth.HeaderAuthorization] != "Bearer Atza|testtoken" {
		t.Errorf("missing bearer token, got %q", seen[auth.HeaderAuthorization])
	}
	if seen[auth.HeaderScope] != "12345" {
		t.Errorf("missing profile scope, got %q", seen[auth.HeaderScope])
	}
}

// TestDo_CacheIdempotence verifies the second identical GET within the
// TTL is served from cache with a byte-identical body.
func TestDo_CacheIdempotence(t *testing.T) {
	var calls atomic.Int32
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		return okJSON(`{"campaigns":[{"campaignId":1}]}`), nil
	})
	client := newTestClient(t, fake, nil)

	first, err := client.Get(context.Background(), "/v2/campaigns", CallOptions{})
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	second, err := client.Get(context.Background(), "/v2/campaigns", CallOptions{})
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("transport calls = %d, want 1", got)
	}
	if !second.FromCache {
		t.Error("second response should come from cache")
	}
	if !bytes.Equal(first.Raw, second.Raw) {
		t.Errorf("cached replay differs: %q vs %q", first.Raw, second.Raw)
	}
}

// TestDo_MutationInvalidates verifies GET, create, GET hits the
// transport twice: the mutation removed the cached read.
func TestDo_MutationInvalidates(t *testing.T) {
	var calls atomic.Int32
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		return okJSON(`{"ok":true}`), nil
	})
	client := newTestClient(t, fake, nil)
	ctx := context.Background()

	if _, err := client.Get(ctx, "/v2/campaigns", CallOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := client.Post(ctx, "/v2/campaigns", []byte(`{"name":"new"}`), CallOptions{}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if _, err := client.Get(ctx, "/v2/campaigns", CallOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}

	// GET (network) + POST + GET (network again after invalidation).
	if got := calls.Load(); got != 3 {
		t.Errorf("transport calls = %d, want 3", got)
	}
}

// TestDo_InvalidatePrefixes verifies declared prefixes are honored even
// when the mutation path differs from the cached path.
func TestDo_InvalidatePrefixes(t *testing.T) {
	var calls atomic.Int32
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		return okJSON(`{}`), nil
	})
	client := newTestClient(t, fake, nil)
	ctx := context.Background()

	if _, err := client.Get(ctx, "/v2/campaigns", CallOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	opts := CallOptions{InvalidatePrefixes: []string{"/v2/campaigns"}}
	if _, err := client.Put(ctx, "/v2/campaigns/42", []byte(`{"state":"archived"}`), opts); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := client.Get(ctx, "/v2/campaigns", CallOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("transport calls = %d, want 3 (list invalidated by item mutation)", got)
	}
}

// TestDo_RetriesServerErrors verifies the 500, 500, 200 scenario
// succeeds on the third attempt.
func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		n := calls.Add(1)
		if n <= 2 {
			return &transport.Response{StatusCode: 500, Status: "500 Internal Server Error"}, nil
		}
		return okJSON(`{"recovered":true}`), nil
	})
	client := newTestClient(t, fake, func(cfg *Config) {
		cfg.Retry = resilience.RetryPolicy{MaxRetries: 3, BaseDelay: 5 * time.Millisecond}
	})

	resp, err := client.Get(context.Background(), "/v2/reports/123", CallOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("transport calls = %d, want 3", got)
	}
}

// TestDo_ClientErrorNotRetried verifies a 404 is terminal.
func TestDo_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		return &transport.Response{StatusCode: 404, Status: "404 Not Found"}, nil
	})
	client := newTestClient(t, fake, func(cfg *Config) {
		cfg.Retry = resilience.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}
	})

	_, err := client.Get(context.Background(), "/v2/campaigns/999", CallOptions{})
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if kind, ok := transport.KindOf(err); !ok || kind != transport.KindClientError {
		t.Errorf("KindOf = %v, %v, want KindClientError", kind, ok)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("transport calls = %d, want 1 (no retries on client error)", got)
	}
}

// TestDo_TimeoutIsTerminalNetworkError verifies a deadline that expires
// mid-call surfaces as a terminal network error.
func TestDo_TimeoutIsTerminalNetworkError(t *testing.T) {
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	client := newTestClient(t, fake, func(cfg *Config) {
		cfg.Retry = resilience.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
	})

	_, err := client.Get(context.Background(), "/v2/campaigns", CallOptions{Timeout: 30 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind, ok := transport.KindOf(err); !ok || kind != transport.KindNetworkError {
		t.Errorf("KindOf = %v, %v, want KindNetworkError", kind, ok)
	}
	if transport.IsRetryable(err) {
		t.Error("deadline expiry must be terminal, not retryable")
	}
}

// TestDo_AuthFailureIsTerminal verifies a credential failure never
// reaches the transport.
func TestDo_AuthFailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		return okJSON(`{}`), nil
	})
	client := newTestClient(t, fake, func(cfg *Config) {
		cfg.Auth = auth.NewStatic(auth.StaticConfig{}) // missing everything
	})

	_, err := client.Get(context.Background(), "/v2/campaigns", CallOptions{})
	if !errors.Is(err, auth.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("transport calls = %d, want 0", got)
	}
}

// TestDo_BypassCacheSkipsLookupButWritesBack verifies bypass semantics.
func TestDo_BypassCacheSkipsLookupButWritesBack(t *testing.T) {
	var calls atomic.Int32
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		return okJSON(`{}`), nil
	})
	client := newTestClient(t, fake, nil)
	ctx := context.Background()

	if _, err := client.Get(ctx, "/v2/profiles", CallOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Bypass goes to the network despite the warm cache.
	if _, err := client.Get(ctx, "/v2/profiles", CallOptions{BypassCache: true}); err != nil {
		t.Fatalf("bypass Get: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("transport calls = %d, want 2", got)
	}
	// The bypass refreshed the entry, so a plain GET hits cache.
	if _, err := client.Get(ctx, "/v2/profiles", CallOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("transport calls = %d, want 2 (third read cached)", got)
	}
}

// TestDo_ConcurrentGETsCoalesce verifies identical concurrent GETs share
// one round trip.
func TestDo_ConcurrentGETsCoalesce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		<-release
		return okJSON(`{"shared":true}`), nil
	})
	client := newTestClient(t, fake, nil)

	var wg sync.WaitGroup
	responses := make([]*Response, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(context.Background(), "/v2/campaigns", CallOptions{})
			if err != nil {
				t.Errorf("Get %d: %v", i, err)
				return
			}
			responses[i] = resp
		}(i)
	}

	// Let both goroutines reach the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("transport calls = %d, want 1 (coalesced)", got)
	}
	if responses[0] == nil || responses[1] == nil {
		t.Fatal("missing responses")
	}
	if !bytes.Equal(responses[0].Raw, responses[1].Raw) {
		t.Error("coalesced responses should carry identical bodies")
	}
}

// failSetCache wraps Memory and fails every write.
type failSetCache struct {
	*cache.Memory
}

func (f *failSetCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("disk full")
}

// TestDo_CacheWriteFailureIsNonFatal verifies a failed cache write does
// not fail the request.
func TestDo_CacheWriteFailureIsNonFatal(t *testing.T) {
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return okJSON(`{"fine":true}`), nil
	})
	client := newTestClient(t, fake, func(cfg *Config) {
		cfg.Cache = &failSetCache{Memory: cache.NewMemory(cache.MemoryConfig{})}
	})

	resp, err := client.Get(context.Background(), "/v2/campaigns", CallOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

// TestDo_SingleLogEventPerCall verifies exactly one structured event is
// emitted per request.
func TestDo_SingleLogEventPerCall(t *testing.T) {
	var buf bytes.Buffer
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return okJSON(`{}`), nil
	})
	client := newTestClient(t, fake, func(cfg *Config) {
		cfg.Logger = observe.NewLoggerWithWriter("info", &buf)
	})

	if _, err := client.Get(context.Background(), "/v2/campaigns", CallOptions{Operation: "ListCampaigns"}); err != nil {
		t.Fatalf("Get: %v", err)
	}

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	if lines != 1 {
		t.Errorf("log lines = %d, want 1\n%s", lines, buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"operation":"ListCampaigns"`)) {
		t.Errorf("log event missing operation field: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"provider":"advertising"`)) {
		t.Errorf("log event missing provider field: %s", buf.String())
	}
}

// TestDo_RateLimiterDelaysSecondCall verifies back-to-back calls against
// a 1-burst bucket are spaced by the refill interval.
func TestDo_RateLimiterDelaysSecondCall(t *testing.T) {
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return okJSON(`{}`), nil
	})
	client := newTestClient(t, fake, func(cfg *Config) {
		cfg.Limits = resilience.NewLimiterTable(resilience.BucketConfig{Rate: 10, Burst: 1}, nil)
		cfg.Cache = nil
	})
	ctx := context.Background()

	start := time.Now()
	if _, err := client.Get(ctx, "/v2/campaigns", CallOptions{}); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if _, err := client.Get(ctx, "/v2/campaigns", CallOptions{}); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 90ms (second call must wait for refill)", elapsed)
	}
}

// TestRateLimitStatus verifies status reporting without consumption.
func TestRateLimitStatus(t *testing.T) {
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return okJSON(`{}`), nil
	})
	client := newTestClient(t, fake, func(cfg *Config) {
		cfg.Limits = resilience.NewLimiterTable(resilience.BucketConfig{Rate: 1, Burst: 5}, nil)
	})

	before := client.RateLimitStatus("/v2/campaigns")
	if before.Capacity != 5 {
		t.Errorf("Capacity = %d, want 5", before.Capacity)
	}
	again := client.RateLimitStatus("/v2/campaigns")
	if before.Remaining < 4.99 || again.Remaining < 4.99 {
		t.Errorf("status must not consume tokens: %v then %v", before.Remaining, again.Remaining)
	}
}

// TestInvalidate verifies manual prefix invalidation.
func TestInvalidate(t *testing.T) {
	var calls atomic.Int32
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		return okJSON(`{}`), nil
	})
	client := newTestClient(t, fake, nil)
	ctx := context.Background()

	if _, err := client.Get(ctx, "/v2/campaigns", CallOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if removed := client.Invalidate(ctx, "/v2/campaigns"); removed != 1 {
		t.Errorf("Invalidate removed %d entries, want 1", removed)
	}
	if _, err := client.Get(ctx, "/v2/campaigns", CallOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("transport calls = %d, want 2", got)
	}
}

// TestWithRequestID verifies caller-provided IDs flow to the response.
func TestWithRequestID(t *testing.T) {
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return okJSON(`{}`), nil
	})
	client := newTestClient(t, fake, nil)

	ctx := WithRequestID(context.Background(), "req-42")
	resp, err := client.Get(ctx, "/v2/campaigns", CallOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.RequestID != "req-42" {
		t.Errorf("RequestID = %q, want %q", resp.RequestID, "req-42")
	}
}

// TestDo_ParsesJSONBody verifies Data decoding with the raw fallback.
func TestDo_ParsesJSONBody(t *testing.T) {
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if req.URL == "https://advertising-api.amazon.com/v2/reports/csv" {
			return &transport.Response{StatusCode: 200, Status: "200 OK", Body: []byte("id,clicks\n1,10")}, nil
		}
		return okJSON(`{"campaignId":42}`), nil
	})
	client := newTestClient(t, fake, func(cfg *Config) { cfg.Cache = nil })
	ctx := context.Background()

	resp, err := client.Get(ctx, "/v2/campaigns/42", CallOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	obj, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data = %T, want map", resp.Data)
	}
	if obj["campaignId"] != float64(42) {
		t.Errorf("campaignId = %v, want 42", obj["campaignId"])
	}

	resp, err = client.Get(ctx, "/v2/reports/csv", CallOptions{})
	if err != nil {
		t.Fatalf("Get csv: %v", err)
	}
	if _, ok := resp.Data.(string); !ok {
		t.Errorf("non-JSON Data = %T, want string fallback", resp.Data)
	}
}

// TestDo_CircuitBreakerRefusesAfterFailures verifies the optional
// breaker stage trips and refuses without reaching the transport.
func TestDo_CircuitBreakerRefusesAfterFailures(t *testing.T) {
	var calls atomic.Int32
	fake := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		return &transport.Response{StatusCode: 503, Status: "503 Service Unavailable"}, nil
	})
	client := newTestClient(t, fake, func(cfg *Config) {
		cfg.Cache = nil
		cfg.Breaker = resilience.NewCircuitBreaker(resilience.CircuitConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		})
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := client.Get(ctx, "/v2/campaigns", CallOptions{}); err == nil {
			t.Fatal("expected 503 error")
		}
	}
	before := calls.Load()

	_, err := client.Get(ctx, "/v2/campaigns", CallOptions{})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != before {
		t.Error("open circuit must not reach the transport")
	}
}
