package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/adscope/amzcore/cache"
	"github.com/adscope/amzcore/pipeline"
	"github.com/adscope/amzcore/resilience"
)

// DefaultAdvertisingBaseURL is the North America Advertising API root.
const DefaultAdvertisingBaseURL = "https://advertising-api.amazon.com"

// advertisingDefaults holds the family's tables. Order matters: the
// report endpoints must match before the broad /v2 rule.
var advertisingDefaults = familyDefaults{
	name:     "advertising",
	baseURL:  DefaultAdvertisingBaseURL,
	fallback: resilience.BucketConfig{Rate: 5, Burst: 10, Jitter: true},
	limits: []resilience.LimitRule{
		{Pattern: "/v2/reports", Rate: 1, Burst: 2},
		{Pattern: "/v2/campaigns", Rate: 2, Burst: 4},
		{Pattern: "/v2/adGroups", Rate: 2, Burst: 4},
		{Pattern: "/v2/profiles", Rate: 1, Burst: 2},
	},
	defaultTTL: 30 * time.Second,
	ttls: []cache.TTLRule{
		{Pattern: "/v2/reports", TTL: 0}, // report status changes between polls
		{Pattern: "/v2/profiles", TTL: 10 * time.Minute},
		{Pattern: "/v2/campaigns", TTL: time.Minute},
		{Pattern: "/v2/adGroups", TTL: time.Minute},
	},
	retry: resilience.RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Jitter:     true,
	},
	timeout: 30 * time.Second,
}

// Advertising is the Sponsored Ads API façade.
type Advertising struct {
	client *pipeline.Client
}

// NewAdvertising creates the Advertising façade.
func NewAdvertising(opts Options) (*Advertising, error) {
	client, err := newClient(advertisingDefaults, opts)
	if err != nil {
		return nil, err
	}
	return &Advertising{client: client}, nil
}

// Pipeline exposes the underlying client for health checks and manual
// invalidation.
func (a *Advertising) Pipeline() *pipeline.Client {
	return a.client
}

// ListCampaignsParams filter a campaign listing.
type ListCampaignsParams struct {
	StateFilter string
	StartIndex  int
	Count       int
}

func (p ListCampaignsParams) query() url.Values {
	q := url.Values{}
	if p.StateFilter != "" {
		q.Set("stateFilter", p.StateFilter)
	}
	if p.StartIndex > 0 {
		q.Set("startIndex", strconv.Itoa(p.StartIndex))
	}
	if p.Count > 0 {
		q.Set("count", strconv.Itoa(p.Count))
	}
	return q
}

// ListCampaigns returns the campaign collection.
func (a *Advertising) ListCampaigns(ctx context.Context, params ListCampaignsParams) (*pipeline.Response, error) {
	return a.client.Get(ctx, "/v2/campaigns", pipeline.CallOptions{
		Operation: "ListCampaigns",
		Query:     params.query(),
	})
}

// GetCampaign returns one campaign by ID.
func (a *Advertising) GetCampaign(ctx context.Context, campaignID int64) (*pipeline.Response, error) {
	if campaignID <= 0 {
		return nil, ErrInvalidID
	}
	return a.client.Get(ctx, fmt.Sprintf("/v2/campaigns/%d", campaignID), pipeline.CallOptions{
		Operation: "GetCampaign",
	})
}

// CreateCampaign creates campaigns from the given JSON payload and
// invalidates the cached campaign collection.
func (a *Advertising) CreateCampaign(ctx context.Context, body []byte) (*pipeline.Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return a.client.Post(ctx, "/v2/campaigns", body, pipeline.CallOptions{
		Operation:          "CreateCampaign",
		InvalidatePrefixes: []string{"/v2/campaigns"},
	})
}

// UpdateCampaign updates one campaign and invalidates both the item and
// the collection.
func (a *Advertising) UpdateCampaign(ctx context.Context, campaignID int64, body []byte) (*pipeline.Response, error) {
	if campaignID <= 0 {
		return nil, ErrInvalidID
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return a.client.Put(ctx, fmt.Sprintf("/v2/campaigns/%d", campaignID), body, pipeline.CallOptions{
		Operation:          "UpdateCampaign",
		InvalidatePrefixes: []string{"/v2/campaigns"},
	})
}

// ArchiveCampaign archives one campaign and invalidates the campaign
// entries.
func (a *Advertising) ArchiveCampaign(ctx context.Context, campaignID int64) (*pipeline.Response, error) {
	if campaignID <= 0 {
		return nil, ErrInvalidID
	}
	return a.client.Delete(ctx, fmt.Sprintf("/v2/campaigns/%d", campaignID), pipeline.CallOptions{
		Operation:          "ArchiveCampaign",
		InvalidatePrefixes: []string{"/v2/campaigns"},
	})
}

// ListAdGroupsParams filter an ad group listing.
type ListAdGroupsParams struct {
	CampaignID  int64
	StateFilter string
}

// ListAdGroups returns the ad group collection, optionally scoped to a
// campaign.
func (a *Advertising) ListAdGroups(ctx context.Context, params ListAdGroupsParams) (*pipeline.Response, error) {
	q := url.Values{}
	if params.CampaignID > 0 {
		q.Set("campaignIdFilter", strconv.FormatInt(params.CampaignID, 10))
	}
	if params.StateFilter != "" {
		q.Set("stateFilter", params.StateFilter)
	}
	return a.client.Get(ctx, "/v2/adGroups", pipeline.CallOptions{
		Operation: "ListAdGroups",
		Query:     q,
	})
}

// RequestReport asks for an asynchronous report over the given record
// type (campaigns, adGroups, keywords, ...).
func (a *Advertising) RequestReport(ctx context.Context, recordType string, body []byte) (*pipeline.Response, error) {
	if recordType == "" {
		return nil, ErrMissingReportID
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return a.client.Post(ctx, "/v2/"+recordType+"/report", body, pipeline.CallOptions{
		Operation: "RequestReport",
	})
}

// GetReport polls a previously requested report. Never cached: status
// moves from IN_PROGRESS to SUCCESS between polls.
func (a *Advertising) GetReport(ctx context.Context, reportID string) (*pipeline.Response, error) {
	if reportID == "" {
		return nil, ErrMissingReportID
	}
	return a.client.Get(ctx, "/v2/reports/"+reportID, pipeline.CallOptions{
		Operation: "GetReport",
	})
}
