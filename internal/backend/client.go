package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/schooldesk/console/internal/metrics"
	"github.com/sirupsen/logrus"
)

const maxErrorBody = 64 << 10

// Client is the uniform request helper used for every call to the school
// backend. The timeout set at construction is the only request timeout.
type Client struct {
	baseURL  string
	basePath string
	http     *http.Client
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its timeout is
// overridden by the one passed to New when that one is positive.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMetrics records every backend call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for transport failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New constructs a Client for baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	if u, err := url.Parse(c.baseURL); err == nil {
		c.basePath = strings.TrimRight(u.Path, "/")
	}
	for _, opt := range opts {
		opt(c)
	}
	if timeout > 0 {
		hc := *c.http
		hc.Timeout = timeout
		c.http = &hc
	}
	if c.log == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		c.log = logger
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a JSON request. body is encoded when non-nil; out is decoded
// from a 2xx response when non-nil. token, when set, is sent as a bearer
// credential.
func (c *Client) Do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, token, out)
}

func (c *Client) send(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	endpoint := c.endpointName(req.URL.Path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(endpoint, "transport_error", time.Since(start))
		c.log.WithError(err).WithField("endpoint", endpoint).Warn("backend request failed")
		return fmt.Errorf("%s %s: %w", req.Method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveBackend(endpoint, "http_"+statusClass(resp.StatusCode), time.Since(start))
		return decodeError(resp)
	}
	c.metrics.ObserveBackend(endpoint, "ok", time.Since(start))

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) endpointURL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(raw, &payload); err == nil {
		message = rawMessage(payload.Message)
		if message == "" {
			message = payload.Error
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" || strings.HasPrefix(message, "<") {
		message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: message}
}

// rawMessage accepts a plain string or a list of strings.
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return ""
}

// endpointName labels a request by its first path segment below the base
// URL, keeping "auth/<op>" together.
func (c *Client) endpointName(path string) string {
	path = strings.Trim(strings.TrimPrefix(path, c.basePath), "/")
	parts := strings.Split(path, "/")
	switch {
	case len(parts) >= 2 && parts[0] == "auth":
		return parts[0] + "/" + parts[1]
	case parts[0] == "":
		return "root"
	default:
		return parts[0]
	}
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
