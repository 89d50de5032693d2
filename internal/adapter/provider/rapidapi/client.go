// Package rapidapi provides a client for the RapidAPI mutual fund NAV endpoint.
package rapidapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/simaogato/fundfolio-backend/internal/cache"
	"github.com/simaogato/fundfolio-backend/internal/domain"
)

const (
	// DefaultTimeout bounds every provider call
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second)
	DefaultRateLimit = 5

	// DefaultCacheTTL is how long the fund family listing is reused
	DefaultCacheTTL = time.Hour

	DefaultFundFamily = "Axis Mutual Fund"
	DefaultSchemeType = "Open"

	// FamilyCacheKey is the single key the family listing is cached under
	FamilyCacheKey = "mutual_fund_data"
)

// Client implements domain.FundProvider against RapidAPI
type Client struct {
	baseURL    string
	host       string
	apiKey     string
	fundFamily string
	schemeType string
	fields     FieldPaths
	httpClient *http.Client
	timeout    time.Duration
	logger     arbor.ILogger
	limiter    *rate.Limiter
	cache      *cache.TTL[[]domain.FundRecord]
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the bound on each provider call. It applies to the
// client's own copy of any HTTP client given through WithHTTPClient.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithFundFamily sets the fund family used by the bulk listing
func WithFundFamily(family string) ClientOption {
	return func(c *Client) {
		if family != "" {
			c.fundFamily = family
		}
	}
}

// WithSchemeType sets the scheme type sent with every query
func WithSchemeType(schemeType string) ClientOption {
	return func(c *Client) {
		if schemeType != "" {
			c.schemeType = schemeType
		}
	}
}

// WithFieldPaths overrides the JSONPath expressions used to read records
func WithFieldPaths(paths FieldPaths) ClientOption {
	return func(c *Client) {
		c.fields = paths.withDefaults()
	}
}

// WithCache sets the cache holding the family listing
func WithCache(familyCache *cache.TTL[[]domain.FundRecord]) ClientOption {
	return func(c *Client) {
		c.cache = familyCache
	}
}

// NewClient creates a new provider client.
// baseURL, host and apiKey may be empty; calls then fail with ErrConfigurationMissing.
func NewClient(baseURL, host, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		host:       host,
		apiKey:     apiKey,
		fundFamily: DefaultFundFamily,
		schemeType: DefaultSchemeType,
		fields:     DefaultFieldPaths(),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:  arbor.NewLogger(),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		cache:   cache.NewTTL[[]domain.FundRecord](DefaultCacheTTL),
	}

	for _, opt := range opts {
		opt(c)
	}

	httpClient := *c.httpClient
	httpClient.Timeout = c.timeout
	c.httpClient = &httpClient

	return c
}

// APIError represents a non-success response from the provider
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rapidapi error: %s (status %d)", e.Message, e.StatusCode)
}

func (c *Client) configured() bool {
	return c.baseURL != "" && c.host != "" && c.apiKey != ""
}

// get performs one rate-limited GET and decodes the JSON array response
func (c *Client) get(ctx context.Context, params url.Values) ([]map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider url: %w", err)
	}
	query := reqURL.Query()
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("url", c.baseURL).
		Str("query", params.Encode()).
		Msg("RapidAPI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var items []map[string]any
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return items, nil
}

// FetchFamilySchemes retrieves all open-ended schemes of the configured fund
// family. Successful non-empty listings are cached under FamilyCacheKey.
func (c *Client) FetchFamilySchemes(ctx context.Context) ([]domain.FundRecord, error) {
	if !c.configured() {
		c.logger.Error().Msg("Missing required API configuration")
		return nil, domain.ErrConfigurationMissing
	}

	if cached, ok := c.cache.Get(FamilyCacheKey); ok {
		c.logger.Info().Int("count", len(cached)).Msg("Using cached data")
		return cloneRecords(cached), nil
	}

	params := url.Values{}
	params.Set("Mutual_Fund_Family", c.fundFamily)
	params.Set("Scheme_Type", c.schemeType)

	items, err := c.get(ctx, params)
	if err != nil {
		c.logFetchError(err, "")
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	records := make([]domain.FundRecord, 0, len(items))
	for _, item := range items {
		records = append(records, c.fields.record(item))
	}

	if len(records) > 0 {
		c.cache.Set(FamilyCacheKey, records)
	}

	c.logger.Info().
		Str("fund_family", c.fundFamily).
		Int("count", len(records)).
		Msg("Fetched fund family schemes")

	return cloneRecords(records), nil
}

func cloneRecords(records []domain.FundRecord) []domain.FundRecord {
	out := make([]domain.FundRecord, len(records))
	for i, record := range records {
		out[i] = record.Clone()
	}
	return out
}

// FetchScheme retrieves the current record of one scheme. The first entry of
// the provider response is used. Results are never cached.
func (c *Client) FetchScheme(ctx context.Context, schemeCode string) (*domain.FundRecord, error) {
	if !c.configured() {
		c.logger.Error().Msg("Missing required API configuration")
		return nil, domain.ErrConfigurationMissing
	}

	params := url.Values{}
	params.Set("Scheme_Type", c.schemeType)
	params.Set("Scheme_Code", schemeCode)

	items, err := c.get(ctx, params)
	if err != nil {
		c.logFetchError(err, schemeCode)
		return nil, fmt.Errorf("%w: scheme %s: %w", domain.ErrFetchFailed, schemeCode, err)
	}

	if len(items) == 0 {
		c.logger.Warn().Str("scheme_code", schemeCode).Msg("Provider returned no record for scheme")
		return nil, fmt.Errorf("%w: scheme %s: empty response", domain.ErrFetchFailed, schemeCode)
	}

	record := c.fields.record(items[0])
	if record.SchemeCode == "" {
		record.SchemeCode = schemeCode
	}

	return &record, nil
}

func (c *Client) logFetchError(err error, schemeCode string) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn().
			Int("status", apiErr.StatusCode).
			Str("scheme_code", schemeCode).
			Msg("Error fetching data")
		return
	}
	c.logger.Error().
		Err(err).
		Str("scheme_code", schemeCode).
		Msg("Error fetching data")
}
