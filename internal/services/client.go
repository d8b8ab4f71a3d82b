package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBaseURL string = "http://127.0.0.1:8080"

// ClientOptions configures a [Client].
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	RateLimit  float64 // requests per second, zero disables limiting
	Timeout    time.Duration
	Logger     *log.Logger
}

// Client talks to the collection backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

var _ navigator.Fetcher = (*Client)(nil)

// NewClient creates a client. An empty base URL defaults to the local dev backend.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		logger:     opts.Logger.WithPrefix("client"),
	}
}

// NewClientFromConfig creates a client from the [client] configuration section.
func NewClientFromConfig(cfg shared.ClientConfig, logger *log.Logger) *Client {
	return NewClient(ClientOptions{
		BaseURL:   cfg.BaseURL,
		RateLimit: cfg.RateLimit,
		Timeout:   cfg.Timeout(),
		Logger:    logger,
	})
}

// BaseURL returns the backend address requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

type response struct {
	status int
	header http.Header
	body   []byte
}

// get performs a rate limited GET and maps failures onto the shared transport errors.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetworkFailure, err)
	}

	c.logger.Debug("request complete", "path", path, "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(path, resp.StatusCode, body)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func statusError(path string, status int, body []byte) error {
	kind := shared.ErrServerError
	if status == http.StatusNotFound {
		kind = shared.ErrNotFound
	}

	var errResp struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if msg := errResp.Error + errResp.Detail; msg != "" {
			return fmt.Errorf("%w: %s (status %d): %s", kind, path, status, msg)
		}
	}
	return fmt.Errorf("%w: %s (status %d)", kind, path, status)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, result any) error {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, result); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", shared.ErrServerError, path, err)
	}
	return nil
}

func descriptorQuery(d navigator.Descriptor) url.Values {
	q := url.Values{}
	for k, v := range d.Params {
		q.Set(k, v)
	}
	return q
}

// FetchPage implements [navigator.Fetcher].
func (c *Client) FetchPage(ctx context.Context, d navigator.Descriptor, page int) ([]byte, error) {
	if d.PageEndpoint == "" {
		return nil, fmt.Errorf("%w: collection %q has no page endpoint", shared.ErrMissingConfig, d.Name)
	}

	q := descriptorQuery(d)
	q.Set("page", strconv.Itoa(page))

	resp, err := c.get(ctx, d.PageEndpoint, q)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// FetchCount implements [navigator.Fetcher].
func (c *Client) FetchCount(ctx context.Context, d navigator.Descriptor) (int, error) {
	if d.CountEndpoint == "" {
		return 0, fmt.Errorf("%w: collection %q has no count endpoint", shared.ErrMissingConfig, d.Name)
	}

	resp, err := c.get(ctx, d.CountEndpoint, descriptorQuery(d))
	if err != nil {
		return 0, err
	}

	last, err := strconv.Atoi(strings.TrimSpace(string(resp.body)))
	if err != nil {
		return 0, fmt.Errorf("%w: count for %q is not an integer: %q", shared.ErrServerError, d.Name, resp.body)
	}
	if last < 0 {
		return 0, fmt.Errorf("%w: collection %q", shared.ErrNotFound, d.Name)
	}
	return last, nil
}

// filename extracts the attachment name from a Content-Disposition header.
func filename(header http.Header) string {
	_, params, err := mime.ParseMediaType(header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}

// IsTransportError reports whether err is one of the backend failure kinds.
func IsTransportError(err error) bool {
	return errors.Is(err, shared.ErrNetworkFailure) ||
		errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrServerError)
}
