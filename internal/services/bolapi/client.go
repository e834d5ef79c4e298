// Package bolapi is the token-based alternative to the partner-portal
// browser workflow: it lists invoices for a billing window over the
// retailer REST API and downloads each specification spreadsheet.
package bolapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/tcftrading/reportfetch/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the retailer API.
	DefaultBaseURL = "https://api.bol.com"

	// DefaultTokenURL is the client-credentials token endpoint.
	DefaultTokenURL = "https://login.bol.com/token"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5

	// acceptMedia is the versioned media type every retailer call sends.
	acceptMedia = "application/vnd.retailer.v10+json"

	// acceptSpreadsheet is the media type for specification downloads.
	acceptSpreadsheet = "application/vnd.retailer.v10+openxmlformat"

	// downloadAttempts bounds the per-invoice download retry loop.
	downloadAttempts = 3
)

// Client is a retailer API client holding one bearer token source.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	retryBase  time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client, replacing the token-fetching
// one. Intended for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithRetryBaseDelay sets the base delay of the download backoff
// (doubled on each attempt). Intended for tests.
func WithRetryBaseDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryBase = d
	}
}

// NewClient creates a retailer API client. The token is fetched lazily
// by the oauth2 transport on the first request and held for the run.
func NewClient(ctx context.Context, clientID, clientSecret, tokenURL string, opts ...ClientOption) *Client {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	creds := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: creds.Client(ctx),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retryBase:  time.Second,
	}
	c.httpClient.Timeout = DefaultTimeout

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListInvoices returns every invoice whose billing period falls in the
// given window.
func (c *Client) ListInvoices(ctx context.Context, window models.Period) ([]Invoice, error) {
	params := url.Values{}
	params.Set("period-start-date", window.Start.Format("2006-01-02"))
	params.Set("period-end-date", window.End.Format("2006-01-02"))

	var list invoiceListResponse
	if err := c.getJSON(ctx, "/retailer/invoices", params, &list); err != nil {
		return nil, err
	}
	return list.Invoices, nil
}

// DownloadSpecification fetches one invoice's specification spreadsheet,
// retrying with exponential backoff. Returns the raw file bytes and the
// server-suggested filename.
func (c *Client) DownloadSpecification(ctx context.Context, invoiceID string) ([]byte, string, error) {
	path := fmt.Sprintf("/retailer/invoices/%s/specification", url.PathEscape(invoiceID))

	var lastErr error
	for attempt := 1; attempt <= downloadAttempts; attempt++ {
		data, name, err := c.getBinary(ctx, path)
		if err == nil {
			return data, name, nil
		}
		lastErr = err

		if attempt < downloadAttempts {
			delay := c.retryBase << (attempt - 1)
			if c.logger != nil {
				c.logger.Warn().
					Err(err).
					Str("invoice", invoiceID).
					Int("attempt", attempt).
					Dur("retry_in", delay).
					Msg("⚠️ Specification download failed, retrying")
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, "", ctx.Err()
			}
		}
	}

	return nil, "", &models.TransportError{Endpoint: path, Err: fmt.Errorf("exhausted %d attempts: %w", downloadAttempts, lastErr)}
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, result interface{}) error {
	resp, err := c.do(ctx, path, params, acceptMedia)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &models.TransportError{Endpoint: path, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) getBinary(ctx context.Context, path string) ([]byte, string, error) {
	resp, err := c.do(ctx, path, nil, acceptSpreadsheet)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &models.TransportError{Endpoint: path, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return data, suggestedFilename(resp), nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &models.TransportError{Endpoint: path, Err: err}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &models.TransportError{Endpoint: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", accept)

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Retailer API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.TransportError{Endpoint: path, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &models.TransportError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)),
		}
	}

	return resp, nil
}

// suggestedFilename extracts the filename from Content-Disposition, with
// a generic fallback when the header is absent.
func suggestedFilename(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return "specification.xlsx"
}
