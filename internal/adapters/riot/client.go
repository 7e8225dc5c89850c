// Package riot is a cached, rate-limited client for the TFT endpoints of the
// Riot Games API.
//
// Every response goes through the on-disk cache first. Only cache misses
// reach the limiter and the network.
package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/okian/tftscrape/internal/adapters/cache"
	"github.com/okian/tftscrape/internal/domain/region"
	"github.com/okian/tftscrape/pkg/logger"
	"github.com/okian/tftscrape/pkg/metrics"
)

// Cache partitions.
const (
	PartitionLeague   = "get"
	PartitionSummoner = "summoner"
	PartitionMatch    = "match"
)

const tokenHeader = "X-Riot-Token"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // codec config

// Client fetches API resources through a cache.Store.
type Client struct {
	store   *cache.Store
	routing region.Routing
	http    *resty.Client

	token        string
	limiter      Limiter
	timeout      time.Duration
	maxRetries   int
	retryWait    time.Duration
	retryMaxWait time.Duration
	baseURL      func(host string) string

	logger logger.Logger
}

// New creates a client for one region.
func New(store *cache.Store, routing region.Routing, opts ...Option) *Client {
	c := &Client{
		store:        store,
		routing:      routing,
		limiter:      Unlimited(),
		timeout:      10 * time.Second,
		maxRetries:   2,
		retryWait:    500 * time.Millisecond,
		retryMaxWait: 5 * time.Second,
		baseURL:      defaultBaseURL,
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetTimeout(c.timeout).
		SetRetryCount(c.maxRetries).
		SetRetryWaitTime(c.retryWait).
		SetRetryMaxWaitTime(c.retryMaxWait).
		AddRetryCondition(retryOnTransportError).
		SetHeader("Accept", "application/json")

	// every attempt, retries included, waits for the limiter
	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.limiter.Wait(req.Context())
	})
	return c
}

func defaultBaseURL(host string) string {
	return "https://" + host + ".api.riotgames.com"
}

// retryOnTransportError retries only when no response was received. HTTP
// statuses are returned to the caller untouched.
func retryOnTransportError(resp *resty.Response, err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if resp != nil && resp.Request != nil && resp.Request.Context().Err() != nil {
		return false
	}
	return true
}

// URL returns the request URL for path on host.
func (c *Client) URL(host, path string) string {
	return strings.TrimRight(c.baseURL(host), "/") + "/" + strings.TrimLeft(path, "/")
}

// Routing returns the hosts the client talks to.
func (c *Client) Routing() region.Routing { return c.routing }

// Fetch returns the JSON body for path on host, from the cache when present.
// With skipIfPresent a cached entry yields (nil, nil). Bodies of non-success
// statuses are returned but not cached.
func (c *Client) Fetch(ctx context.Context, partition, host, path string, skipIfPresent bool) (json.RawMessage, error) {
	body, _, err := c.fetch(ctx, partition, host, path, skipIfPresent)
	return body, err
}

// fetch is Fetch that also reports the upstream status, 0 when the body came
// from the cache.
func (c *Client) fetch(ctx context.Context, partition, host, path string, skipIfPresent bool) (json.RawMessage, int, error) {
	u := c.URL(host, path)
	status := 0
	body, err := c.store.GetOrFetch(ctx, partition, u, func(ctx context.Context) (cache.Result, error) {
		res, code, err := c.get(ctx, partition, u)
		status = code
		return res, err
	}, skipIfPresent)
	return body, status, err
}

func (c *Client) get(ctx context.Context, partition, u string) (cache.Result, int, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(tokenHeader, c.token).
		Get(u)
	if err != nil {
		metrics.RecordUpstreamRequest(partition, 0, time.Since(start))
		return cache.Result{}, 0, fmt.Errorf("%w: GET %s: %w", ErrTransport, u, err)
	}
	metrics.RecordUpstreamRequest(partition, resp.StatusCode(), time.Since(start))

	body := resp.Body()
	if !jsonAPI.Valid(body) {
		return cache.Result{}, resp.StatusCode(), fmt.Errorf("%w: GET %s: status %d: body is not JSON", ErrDecode, u, resp.StatusCode())
	}
	if !resp.IsSuccess() {
		c.logger.Warn(ctx, "upstream returned non-success status",
			logger.String("partition", partition),
			logger.String("url", u),
			logger.Int("status", resp.StatusCode()),
		)
	}
	return cache.Result{Body: json.RawMessage(body), NoStore: !resp.IsSuccess()}, resp.StatusCode(), nil
}

// GetLeague returns the league listing. The listing is refetched only after
// the league partition is purged.
func (c *Client) GetLeague(ctx context.Context, league string) (json.RawMessage, error) {
	return c.Fetch(ctx, PartitionLeague, c.routing.Platform, "tft/league/v1/"+url.PathEscape(league), false)
}

// GetSummoner returns the summoner record for an encrypted summoner id.
func (c *Client) GetSummoner(ctx context.Context, summonerID string) (json.RawMessage, error) {
	return c.Fetch(ctx, PartitionSummoner, c.routing.Platform, "tft/summoner/v1/summoners/"+url.PathEscape(summonerID), false)
}

// GetMatchIDsFor returns the recent match ids of a player.
func (c *Client) GetMatchIDsFor(ctx context.Context, puuid string) (json.RawMessage, error) {
	return c.Fetch(ctx, PartitionSummoner, c.routing.Gateway, "tft/match/v1/matches/by-puuid/"+url.PathEscape(puuid)+"/ids", false)
}

// GetMatch makes sure the match body is cached. It returns (nil, nil) when it
// already was. A non-success status yields ErrStatus since nothing was
// cached.
func (c *Client) GetMatch(ctx context.Context, matchID string) (json.RawMessage, error) {
	body, status, err := c.fetch(ctx, PartitionMatch, c.routing.Gateway, "tft/match/v1/matches/"+url.PathEscape(matchID), true)
	if err != nil {
		return nil, err
	}
	if status != 0 && !isSuccess(status) {
		return nil, fmt.Errorf("%w: match %s: status %d", ErrStatus, matchID, status)
	}
	return body, nil
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }
