package providers

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/adscope/amzcore/cache"
	"github.com/adscope/amzcore/pipeline"
	"github.com/adscope/amzcore/resilience"
)

// DefaultSearchPerformanceBaseURL is the Search Performance API root.
const DefaultSearchPerformanceBaseURL = "https://advertising-api.amazon.com"

var searchPerformanceDefaults = familyDefaults{
	name:     "searchperformance",
	baseURL:  DefaultSearchPerformanceBaseURL,
	fallback: resilience.BucketConfig{Rate: 1, Burst: 2, Jitter: true},
	limits: []resilience.LimitRule{
		{Pattern: "/searchPerformance", Rate: 1, Burst: 2},
	},
	defaultTTL: 5 * time.Minute,
	ttls: []cache.TTLRule{
		// Aggregates update daily; generous TTLs are safe.
		{Pattern: "/searchPerformance/topQueries", TTL: 15 * time.Minute},
	},
	retry: resilience.RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   20 * time.Second,
		Jitter:     true,
	},
	timeout: 60 * time.Second,
}

// SearchPerformance is the search query performance façade.
type SearchPerformance struct {
	client *pipeline.Client
}

// NewSearchPerformance creates the Search Performance façade.
func NewSearchPerformance(opts Options) (*SearchPerformance, error) {
	client, err := newClient(searchPerformanceDefaults, opts)
	if err != nil {
		return nil, err
	}
	return &SearchPerformance{client: client}, nil
}

// Pipeline exposes the underlying client.
func (s *SearchPerformance) Pipeline() *pipeline.Client {
	return s.client
}

// QueryPerformance runs a search query performance report over the
// given query document.
func (s *SearchPerformance) QueryPerformance(ctx context.Context, body []byte) (*pipeline.Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return s.client.Post(ctx, "/searchPerformance/queryPerformance", body, pipeline.CallOptions{
		Operation: "QueryPerformance",
	})
}

// TopQueriesParams scope a top-queries listing.
type TopQueriesParams struct {
	ASIN  string
	Range string // e.g. WEEKLY, MONTHLY
	Limit int
}

// TopQueries returns the highest-volume search queries for an ASIN.
func (s *SearchPerformance) TopQueries(ctx context.Context, params TopQueriesParams) (*pipeline.Response, error) {
	q := url.Values{}
	if params.ASIN != "" {
		q.Set("asin", params.ASIN)
	}
	if params.Range != "" {
		q.Set("range", params.Range)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	return s.client.Get(ctx, "/searchPerformance/topQueries", pipeline.CallOptions{
		Operation: "TopQueries",
		Query:     q,
	})
}
