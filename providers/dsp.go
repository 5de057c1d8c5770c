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

// DefaultDSPBaseURL is the North America DSP API root.
const DefaultDSPBaseURL = "https://advertising-api.amazon.com"

var dspDefaults = familyDefaults{
	name:     "dsp",
	baseURL:  DefaultDSPBaseURL,
	fallback: resilience.BucketConfig{Rate: 2, Burst: 4, Jitter: true},
	limits: []resilience.LimitRule{
		{Pattern: "/dsp/reports", Rate: 0.5, Burst: 1},
		{Pattern: "/dsp/orders", Rate: 2, Burst: 4},
		{Pattern: "/dsp/lineItems", Rate: 2, Burst: 4},
	},
	defaultTTL: 30 * time.Second,
	ttls: []cache.TTLRule{
		{Pattern: "/dsp/reports", TTL: 0},
		{Pattern: "/dsp/orders", TTL: time.Minute},
		{Pattern: "/dsp/lineItems", TTL: time.Minute},
	},
	retry: resilience.RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   15 * time.Second,
		Jitter:     true,
	},
	timeout: 45 * time.Second,
}

// DSP is the demand-side platform API façade. Its report endpoints are
// the slowest in the whole family, hence the low bucket rates.
type DSP struct {
	client *pipeline.Client
}

// NewDSP creates the DSP façade.
func NewDSP(opts Options) (*DSP, error) {
	client, err := newClient(dspDefaults, opts)
	if err != nil {
		return nil, err
	}
	return &DSP{client: client}, nil
}

// Pipeline exposes the underlying client.
func (d *DSP) Pipeline() *pipeline.Client {
	return d.client
}

// ListOrdersParams filter an order listing.
type ListOrdersParams struct {
	AdvertiserID string
	StartIndex   int
	Count        int
}

// ListOrders returns the order collection.
func (d *DSP) ListOrders(ctx context.Context, params ListOrdersParams) (*pipeline.Response, error) {
	q := url.Values{}
	if params.AdvertiserID != "" {
		q.Set("advertiserIdFilter", params.AdvertiserID)
	}
	if params.StartIndex > 0 {
		q.Set("startIndex", strconv.Itoa(params.StartIndex))
	}
	if params.Count > 0 {
		q.Set("count", strconv.Itoa(params.Count))
	}
	return d.client.Get(ctx, "/dsp/orders", pipeline.CallOptions{
		Operation: "ListOrders",
		Query:     q,
	})
}

// GetOrder returns one order by ID.
func (d *DSP) GetOrder(ctx context.Context, orderID string) (*pipeline.Response, error) {
	if orderID == "" {
		return nil, ErrInvalidID
	}
	return d.client.Get(ctx, "/dsp/orders/"+orderID, pipeline.CallOptions{
		Operation: "GetOrder",
	})
}

// ListLineItems returns line items, optionally scoped to an order.
func (d *DSP) ListLineItems(ctx context.Context, orderID string) (*pipeline.Response, error) {
	q := url.Values{}
	if orderID != "" {
		q.Set("orderIdFilter", orderID)
	}
	return d.client.Get(ctx, "/dsp/lineItems", pipeline.CallOptions{
		Operation: "ListLineItems",
		Query:     q,
	})
}

// RequestReport asks for an asynchronous DSP report.
func (d *DSP) RequestReport(ctx context.Context, body []byte) (*pipeline.Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return d.client.Post(ctx, "/dsp/reports", body, pipeline.CallOptions{
		Operation: "RequestReport",
	})
}

// GetReport polls a previously requested DSP report.
func (d *DSP) GetReport(ctx context.Context, reportID string) (*pipeline.Response, error) {
	if reportID == "" {
		return nil, ErrMissingReportID
	}
	return d.client.Get(ctx, "/dsp/reports/"+reportID, pipeline.CallOptions{
		Operation: "GetReport",
	})
}
