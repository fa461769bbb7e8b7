// Package brapi provides a client for the brapi.dev market-quote API
package brapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
)

const (
	DefaultBaseURL   = "https://brapi.dev/api"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second

	// StatisticsModule is the module carrying defaultKeyStatistics.dividendYield
	StatisticsModule = "defaultKeyStatistics"
)

// Client implements the QuoteClient interface against the brapi quote endpoint
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new quote API client. token may be empty for the
// handful of tickers the API serves without authentication.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	if string(data) == "null" {
		*f = 0
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// quoteResult is one entry of the results array
type quoteResult struct {
	Symbol                     string      `json:"symbol"`
	ShortName                  string      `json:"shortName"`
	LongName                   string      `json:"longName"`
	RegularMarketPrice         flexFloat64 `json:"regularMarketPrice"`
	RegularMarketChange        flexFloat64 `json:"regularMarketChange"`
	RegularMarketChangePercent flexFloat64 `json:"regularMarketChangePercent"`
	RegularMarketVolume        flexFloat64 `json:"regularMarketVolume"`
}

type quoteResponse struct {
	Results []quoteResult `json:"results"`
}

// QuoteURL builds the quote endpoint URL for one or more tickers.
func (c *Client) QuoteURL(tickers []string, params url.Values) string {
	escaped := make([]string, len(tickers))
	for i, t := range tickers {
		escaped[i] = url.PathEscape(strings.ToUpper(strings.TrimSpace(t)))
	}

	if params == nil {
		params = url.Values{}
	}
	if c.token != "" {
		params.Set("token", c.token)
	}

	reqURL := fmt.Sprintf("%s/quote/%s", c.baseURL, strings.Join(escaped, ","))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return reqURL
}

// get performs a rate-limited GET and hands the raw body to decode
func (c *Client) get(ctx context.Context, tickers []string, params url.Values, opts []interfaces.RequestOption, decode func(io.Reader) error) error {
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers requested")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.QuoteURL(tickers, params)
	endpoint := "/quote/" + strings.Join(tickers, ",")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(req)
	}

	c.logger.Debug().Str("endpoint", endpoint).Msg("Quote API request")

	start := c.now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Dur("elapsed", elapsed).Msg("Quote API request failed")
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn().Str("endpoint", endpoint).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Quote API non-OK response")
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   endpoint,
		}
	}

	if err := decode(resp.Body); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Quote API call")
	return nil
}

// GetQuotes retrieves quotes for several tickers in one request.
// Entries are returned as the API sent them; filtering is the caller's job.
func (c *Client) GetQuotes(ctx context.Context, tickers []string, opts ...interfaces.RequestOption) ([]models.Quote, error) {
	var apiResp quoteResponse
	err := c.get(ctx, tickers, nil, opts, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&apiResp)
	})
	if err != nil {
		return nil, err
	}

	fetchedAt := c.now()
	quotes := make([]models.Quote, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		if r.Symbol == "" {
			continue
		}
		name := r.ShortName
		if name == "" {
			name = r.LongName
		}
		quotes = append(quotes, models.Quote{
			Symbol:    strings.ToUpper(r.Symbol),
			Name:      name,
			Price:     float64(r.RegularMarketPrice),
			Change:    float64(r.RegularMarketChange),
			ChangePct: float64(r.RegularMarketChangePercent),
			Volume:    int64(r.RegularMarketVolume),
			FetchedAt: fetchedAt,
		})
	}
	return quotes, nil
}

// GetQuote retrieves a single ticker's quote.
func (c *Client) GetQuote(ctx context.Context, ticker string, opts ...interfaces.RequestOption) (*models.Quote, error) {
	quotes, err := c.GetQuotes(ctx, []string{ticker}, opts...)
	if err != nil {
		return nil, err
	}
	want := strings.ToUpper(strings.TrimSpace(ticker))
	for i := range quotes {
		if quotes[i].Symbol == want {
			return &quotes[i], nil
		}
	}
	if len(quotes) == 1 {
		return &quotes[0], nil
	}
	return nil, fmt.Errorf("no result for ticker %s", ticker)
}

// GetDividendYields calls the statistics module and extracts
// defaultKeyStatistics.dividendYield for every result that carries one.
func (c *Client) GetDividendYields(ctx context.Context, tickers []string, opts ...interfaces.RequestOption) (map[string]float64, error) {
	params := url.Values{}
	params.Set("modules", StatisticsModule)

	var doc any
	err := c.get(ctx, tickers, params, opts, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&doc)
	})
	if err != nil {
		return nil, err
	}

	return extractDividendYields(doc)
}
