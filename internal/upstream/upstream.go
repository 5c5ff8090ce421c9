// Package upstream implements the gateway's outbound HTTP client
// (spec.md §4.F): credential injection, rate-limit admission, retry
// with a linear backoff knob, response classification, and an
// optional caching adapter.
package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/joonake9644/koreagate/internal/apikey"
	"github.com/joonake9644/koreagate/internal/apperrors"
	"github.com/joonake9644/koreagate/internal/cache"
	"github.com/joonake9644/koreagate/internal/ratelimit"
	"github.com/joonake9644/koreagate/internal/telemetry"
)

// Config configures one Client.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	EnableCache      bool
	EnableRateLimit  bool
	APIKeyProvider   string
}

// Envelope is the normalized result of one upstream call.
type Envelope struct {
	Data     any            `json:"data"`
	Cached   bool           `json:"cached"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Stats summarizes client activity across its lifetime.
type Stats struct {
	TotalRequests       int64   `json:"totalRequests"`
	SuccessfulRequests  int64   `json:"successfulRequests"`
	FailedRequests      int64   `json:"failedRequests"`
	CachedRequests      int64   `json:"cachedRequests"`
	RateLimitedRequests int64   `json:"rateLimitedRequests"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	SuccessRate         float64 `json:"successRate"`
}

// Client dispatches requests to a single upstream Korean public-data
// endpoint family.
type Client struct {
	cfg     Config
	http    *http.Client
	keys    *apikey.Registry
	limiter *ratelimit.Limiter
	cache   *cache.Cache
	logger  *slog.Logger

	mu                  sync.Mutex
	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	cachedRequests      int64
	rateLimitedRequests int64
}

// New constructs a Client. cache and limiter may be nil, in which case
// caching/rate-limit gating is effectively disabled regardless of the
// Config flags.
func New(cfg Config, keys *apikey.Registry, limiter *ratelimit.Limiter, c *cache.Cache, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		keys:    keys,
		limiter: limiter,
		cache:   c,
		logger:  logger,
	}
}

// linearBackOff reproduces spec.md's "i × baseDelay" retry schedule
// through backoff.BackOff so the retry loop stays driven by a strategy
// object rather than a hand-rolled sleep.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.attempt++
	return time.Duration(l.attempt) * l.base
}

// Get performs a GET against endpoint with params, injecting the
// configured provider's credential as serviceKey.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (Envelope, error) {
	return c.do(ctx, http.MethodGet, endpoint, params, nil)
}

// Post performs a POST against endpoint with params as the query
// string and body as the JSON payload.
func (c *Client) Post(ctx context.Context, endpoint string, params url.Values, body []byte) (Envelope, error) {
	return c.do(ctx, http.MethodPost, endpoint, params, body)
}

// GetCached is the caching adapter from spec.md §4.F: it serves a
// stored envelope on a cache hit, or calls through on a miss and
// stores the result only if the call succeeds.
func (c *Client) GetCached(ctx context.Context, typ cache.Type, endpoint string, params url.Values) (Envelope, error) {
	if !c.cfg.EnableCache || c.cache == nil {
		return c.Get(ctx, endpoint, params)
	}

	key := cacheKey(endpoint, params)
	if res := c.cache.Get(typ, key); res.Hit {
		c.mu.Lock()
		c.cachedRequests++
		c.mu.Unlock()
		env := res.Value.(Envelope)
		env.Cached = true
		if env.Metadata == nil {
			env.Metadata = map[string]any{}
		}
		env.Metadata["cached"] = true
		return env, nil
	}

	env, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return Envelope{}, err
	}
	c.cache.Set(typ, key, env)
	return env, nil
}

// cacheKey builds "{endpoint}?{k1=v1&k2=v2...}" with params sorted
// lexicographically by key, per spec.md §4.F.
func cacheKey(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params.Get(k))
	}
	return b.String()
}

// InvalidateCache clears one type's cache entries, or the whole cache
// when typ is empty.
func (c *Client) InvalidateCache(typ cache.Type) {
	if c.cache == nil {
		return
	}
	if typ == "" {
		c.cache.Clear()
		return
	}
	c.cache.DeleteByType(typ)
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body []byte) (Envelope, error) {
	c.mu.Lock()
	c.totalRequests++
	c.mu.Unlock()

	secret, err := c.keys.Get(c.cfg.APIKeyProvider)
	if err != nil {
		c.recordFailure()
		return Envelope{}, err
	}

	if c.cfg.EnableRateLimit && c.limiter != nil {
		identifier := hashIdentifier(c.cfg.APIKeyProvider)
		decision := c.limiter.CheckLimit(identifier, ratelimit.TierAuthenticated)
		if !decision.Allowed {
			c.mu.Lock()
			c.rateLimitedRequests++
			c.failedRequests++
			c.mu.Unlock()
			return Envelope{}, apperrors.NewRateLimitExceeded("upstream admission denied by rate limiter")
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("serviceKey", secret)

	fullURL := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")

	c.logger.Info("upstream request",
		"method", method,
		"url", strings.SplitN(fullURL, "?", 2)[0],
		"params", maskedParams(params),
	)

	start := time.Now()
	env, err := c.sendWithRetry(ctx, method, fullURL, params, body)
	telemetry.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		c.recordFailure()
		telemetry.UpstreamRequestsTotal.WithLabelValues("failure").Inc()
		return Envelope{}, err
	}

	c.mu.Lock()
	c.successfulRequests++
	c.mu.Unlock()
	telemetry.UpstreamRequestsTotal.WithLabelValues("success").Inc()

	return env, nil
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.failedRequests++
	c.mu.Unlock()
}

func maskedParams(params url.Values) string {
	masked := url.Values{}
	for k, v := range params {
		if k == "serviceKey" && len(v) > 0 {
			masked.Set(k, apikey.Mask(v[0]))
			continue
		}
		for _, val := range v {
			masked.Add(k, val)
		}
	}
	return masked.Encode()
}

func hashIdentifier(provider string) string {
	sum := sha256.Sum256([]byte(provider))
	return hex.EncodeToString(sum[:])
}

// sendWithRetry executes the request, retrying network errors, 429s,
// and 5xx responses with the linear i*baseDelay schedule; 4xx errors
// other than 429 short-circuit immediately.
func (c *Client) sendWithRetry(ctx context.Context, method, fullURL string, params url.Values, body []byte) (Envelope, error) {
	bo := &linearBackOff{base: c.cfg.RetryBaseDelay}

	result, err := backoff.Retry(ctx, func() (Envelope, error) {
		env, classified := c.sendOnce(ctx, method, fullURL, params, body)
		if classified == nil {
			return env, nil
		}
		appErr, _ := apperrors.As(classified)
		if appErr != nil && !appErr.Retryable {
			return Envelope{}, backoff.Permanent(classified)
		}
		return Envelope{}, classified
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
	)
	if err != nil {
		return Envelope{}, err
	}
	return result, nil
}

func (c *Client) sendOnce(ctx context.Context, method, fullURL string, params url.Values, body []byte) (Envelope, error) {
	reqURL := fullURL + "?" + params.Encode()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = strings.NewReader(string(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return Envelope{}, apperrors.Wrap(apperrors.InternalServerError, "building upstream request", err)
	}
	req.Header.Set("Accept", "application/json, application/xml")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Envelope{}, apperrors.NewTimeoutError("upstream request deadline exceeded")
		}
		return Envelope{}, apperrors.Wrap(apperrors.ExternalAPIError, "calling upstream", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Envelope{}, apperrors.NewRateLimitExceeded("upstream returned 429")
	case resp.StatusCode >= 500:
		return Envelope{}, apperrors.NewExternalAPIError(fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		nonRetriable := apperrors.NewExternalAPIError(fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode))
		nonRetriable.Retryable = false
		return Envelope{}, nonRetriable
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Envelope{}, apperrors.Wrap(apperrors.ExternalAPIError, "reading upstream body", err)
	}

	var data any
	if err := decodeBody(resp.Header.Get("Content-Type"), raw, &data); err != nil {
		nonRetriable := apperrors.Wrap(apperrors.ExternalAPIError, "decoding upstream body", err)
		nonRetriable.Retryable = false
		return Envelope{}, nonRetriable
	}

	return Envelope{Data: data, Cached: false}, nil
}

// Stats returns a snapshot of client activity.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cacheHitRate, successRate float64
	if c.totalRequests > 0 {
		successRate = float64(c.successfulRequests) / float64(c.totalRequests) * 100
		servedFromCache := c.cachedRequests
		if servedFromCache+c.totalRequests > 0 {
			cacheHitRate = float64(servedFromCache) / float64(servedFromCache+c.totalRequests) * 100
		}
	}

	return Stats{
		TotalRequests:       c.totalRequests,
		SuccessfulRequests:  c.successfulRequests,
		FailedRequests:      c.failedRequests,
		CachedRequests:      c.cachedRequests,
		RateLimitedRequests: c.rateLimitedRequests,
		CacheHitRate:        cacheHitRate,
		SuccessRate:         successRate,
	}
}
