package providers

import (
	"context"
	"time"

	"github.com/adscope/amzcore/cache"
	"github.com/adscope/amzcore/pipeline"
	"github.com/adscope/amzcore/resilience"
)

// DefaultAttributionBaseURL is the Attribution API root.
const DefaultAttributionBaseURL = "https://advertising-api.amazon.com"

var attributionDefaults = familyDefaults{
	name:     "attribution",
	baseURL:  DefaultAttributionBaseURL,
	fallback: resilience.BucketConfig{Rate: 2, Burst: 4, Jitter: true},
	limits: []resilience.LimitRule{
		{Pattern: "/attribution/report", Rate: 1, Burst: 2},
		{Pattern: "/attribution", Rate: 2, Burst: 4},
	},
	defaultTTL: time.Minute,
	ttls: []cache.TTLRule{
		// Publisher and advertiser registries change rarely.
		{Pattern: "/attribution/publishers", TTL: time.Hour},
		{Pattern: "/attribution/advertisers", TTL: 10 * time.Minute},
	},
	retry: resilience.RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Jitter:     true,
	},
	timeout: 30 * time.Second,
}

// Attribution is the Amazon Attribution API façade.
type Attribution struct {
	client *pipeline.Client
}

// NewAttribution creates the Attribution façade.
func NewAttribution(opts Options) (*Attribution, error) {
	client, err := newClient(attributionDefaults, opts)
	if err != nil {
		return nil, err
	}
	return &Attribution{client: client}, nil
}

// Pipeline exposes the underlying client.
func (a *Attribution) Pipeline() *pipeline.Client {
	return a.client
}

// ListPublishers returns the supported publisher registry.
func (a *Attribution) ListPublishers(ctx context.Context) (*pipeline.Response, error) {
	return a.client.Get(ctx, "/attribution/publishers", pipeline.CallOptions{
		Operation: "ListPublishers",
	})
}

// ListAdvertisers returns the advertisers visible to the caller.
func (a *Attribution) ListAdvertisers(ctx context.Context) (*pipeline.Response, error) {
	return a.client.Get(ctx, "/attribution/advertisers", pipeline.CallOptions{
		Operation: "ListAdvertisers",
	})
}

// GetReports runs an attribution report query.
func (a *Attribution) GetReports(ctx context.Context, body []byte) (*pipeline.Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return a.client.Post(ctx, "/attribution/report", body, pipeline.CallOptions{
		Operation: "GetReports",
	})
}

// CreateTags creates attribution tags and invalidates the cached tag
// listings.
func (a *Attribution) CreateTags(ctx context.Context, body []byte) (*pipeline.Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return a.client.Post(ctx, "/attribution/tags", body, pipeline.CallOptions{
		Operation:          "CreateTags",
		InvalidatePrefixes: []string{"/attribution/tags"},
	})
}
