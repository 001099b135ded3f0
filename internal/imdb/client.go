// Package imdb looks up titles through the public IMDb suggestion endpoint.
package imdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

const (
	// BaseURL is the suggestion endpoint; the query and ".json" are appended to it.
	BaseURL = "https://v3.sg.media-imdb.com/suggestion/x/"

	// TitleURLPrefix is the public page of a title, followed by its ID.
	TitleURLPrefix = "https://www.imdb.com/title/"

	// HTTP client configuration.
	httpTimeout = 10 * time.Second

	// Rate limiting configuration (~5 requests/second).
	rateLimitInterval = 200 * time.Millisecond

	// HTTP status codes.
	httpStatusBadRequest = 400 // First status code indicating an error

	titleIDPrefix = "tt"
)

// titleKinds are the result kinds TitleInfo accepts.
var titleKinds = map[string]bool{
	"movie":        true,
	"tvSeries":     true,
	"tvMovie":      true,
	"tvMiniSeries": true,
	"short":        true,
	"videoGame":    true,
	"video":        true,
}

// Title is the summary of one title.
type Title struct {
	ID       string `json:"id"                 yaml:"id"`
	Title    string `json:"title"              yaml:"title"`
	Year     int    `json:"year,omitempty"     yaml:"year,omitempty"`
	Type     string `json:"type"               yaml:"type"`
	URL      string `json:"url"                yaml:"url"`
	ImageURL string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

type suggestion struct {
	ID    string `json:"id"`
	Label string `json:"l"`
	Year  int    `json:"y"`
	Kind  string `json:"qid"`
	Image *struct {
		URL string `json:"imageUrl"`
	} `json:"i"`
}

type suggestionResponse struct {
	Results []suggestion `json:"d"`
}

// Client is an IMDb suggestion client with rate limiting.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	logger      *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = l
	}
}

// WithTimeout sets the HTTP request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(u string) ClientOption {
	return func(client *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		client.baseURL = u
	}
}

// WithRateInterval sets the minimum delay between two requests. Zero disables pacing.
func WithRateInterval(d time.Duration) ClientOption {
	return func(client *Client) {
		if d <= 0 {
			client.rateLimiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		client.rateLimiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewClient creates a new IMDb client.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient:  &http.Client{Timeout: httpTimeout},
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitInterval), 1),
		baseURL:     BaseURL,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// FirstTitleID returns the ID of the first result that is a title.
func (c *Client) FirstTitleID(ctx context.Context, name string) (string, error) {
	ids, err := c.LookUp(ctx, name)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// LookUp returns the IDs of every result that is a title, in result order.
func (c *Client) LookUp(ctx context.Context, name string) ([]string, error) {
	resp, err := c.suggest(ctx, name)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, result := range resp.Results {
		if strings.HasPrefix(result.ID, titleIDPrefix) {
			ids = append(ids, result.ID)
		}
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrTitleNotFound, name)
	}
	return ids, nil
}

// TitleInfo returns the first result whose kind is a movie, series, short or game.
func (c *Client) TitleInfo(ctx context.Context, name string) (*Title, error) {
	resp, err := c.suggest(ctx, name)
	if err != nil {
		return nil, err
	}

	for _, result := range resp.Results {
		if !titleKinds[result.Kind] || !strings.HasPrefix(result.ID, titleIDPrefix) {
			continue
		}
		title := &Title{
			ID:    result.ID,
			Title: result.Label,
			Year:  result.Year,
			Type:  result.Kind,
			URL:   TitleURLPrefix + result.ID + "/",
		}
		if result.Image != nil {
			title.ImageURL = result.Image.URL
		}
		return title, nil
	}

	return nil, fmt.Errorf("%w: %q", apperrors.ErrTitleNotFound, name)
}

// TitleImage returns the image URL of the first result for titleID.
func (c *Client) TitleImage(ctx context.Context, titleID string) (string, error) {
	resp, err := c.suggest(ctx, titleID)
	if err != nil {
		return "", err
	}

	if len(resp.Results) == 0 || resp.Results[0].Image == nil || resp.Results[0].Image.URL == "" {
		return "", fmt.Errorf("%w: no image for %q", apperrors.ErrTitleNotFound, titleID)
	}
	return resp.Results[0].Image.URL, nil
}

// suggest performs one rate-limited suggestion request.
func (c *Client) suggest(ctx context.Context, query string) (*suggestionResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrEmptyInput
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + url.PathEscape(query) + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "API request", "query", query)
	startTime := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		c.logger.WarnContext(ctx, "failed to close response body", "error", closeErr)
	}
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= httpStatusBadRequest {
		return nil, apperrors.NewHTTPError(resp.StatusCode, string(respBody))
	}

	var result suggestionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	c.logger.DebugContext(ctx, "API response",
		"query", query, "status", resp.StatusCode, "results", len(result.Results), "duration", time.Since(startTime))

	return &result, nil
}
