package providers

import (
	"context"
	"time"

	"github.com/adscope/amzcore/pipeline"
	"github.com/adscope/amzcore/resilience"
)

// DefaultBrandAnalyticsBaseURL is the Brand Analytics API root.
const DefaultBrandAnalyticsBaseURL = "https://advertising-api.amazon.com"

var brandAnalyticsDefaults = familyDefaults{
	name:     "brandanalytics",
	baseURL:  DefaultBrandAnalyticsBaseURL,
	fallback: resilience.BucketConfig{Rate: 1, Burst: 2, Jitter: true},
	limits: []resilience.LimitRule{
		{Pattern: "/insights/searchTerms", Rate: 1, Burst: 2},
		{Pattern: "/insights", Rate: 1, Burst: 2},
	},
	// Analytics queries are POST-shaped reads; nothing is cached.
	defaultTTL: 0,
	ttls:       nil,
	retry: resilience.RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   20 * time.Second,
		Jitter:     true,
	},
	timeout: 60 * time.Second,
}

// BrandAnalytics is the Brand Analytics insights façade. Every operation
// posts a query document and returns the computed insight set.
type BrandAnalytics struct {
	client *pipeline.Client
}

// NewBrandAnalytics creates the Brand Analytics façade.
func NewBrandAnalytics(opts Options) (*BrandAnalytics, error) {
	client, err := newClient(brandAnalyticsDefaults, opts)
	if err != nil {
		return nil, err
	}
	return &BrandAnalytics{client: client}, nil
}

// Pipeline exposes the underlying client.
func (b *BrandAnalytics) Pipeline() *pipeline.Client {
	return b.client
}

// SearchTerms returns top search term insights for the query document.
func (b *BrandAnalytics) SearchTerms(ctx context.Context, body []byte) (*pipeline.Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return b.client.Post(ctx, "/insights/searchTerms", body, pipeline.CallOptions{
		Operation: "SearchTerms",
	})
}

// MarketBasket returns market basket analysis for the query document.
func (b *BrandAnalytics) MarketBasket(ctx context.Context, body []byte) (*pipeline.Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return b.client.Post(ctx, "/insights/marketBasket", body, pipeline.CallOptions{
		Operation: "MarketBasket",
	})
}

// RepeatPurchase returns repeat purchase behavior insights.
func (b *BrandAnalytics) RepeatPurchase(ctx context.Context, body []byte) (*pipeline.Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return b.client.Post(ctx, "/insights/repeatPurchase", body, pipeline.CallOptions{
		Operation: "RepeatPurchase",
	})
}

// ItemComparison returns item comparison insights.
func (b *BrandAnalytics) ItemComparison(ctx context.Context, body []byte) (*pipeline.Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return b.client.Post(ctx, "/insights/itemComparison", body, pipeline.CallOptions{
		Operation: "ItemComparison",
	})
}
