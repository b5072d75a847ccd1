// Package gateway is the client for the remote launch service: proxy
// address, server version, user status and ad-block rules.
//
// Every call is a GET with an explicit timeout. Transport failures map to
// domain.ErrGatewayUnreachable, responses that cannot be decoded in the
// expected shape to domain.ErrGatewayBadResponse.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"maskbrowser/backend/domain"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxJSONBytes = 1 * 1024 * 1024
	defaultMaxRuleBytes = 8 * 1024 * 1024

	// logBodyLimit bodies at or above this length are logged by size only.
	logBodyLimit = 50
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	Timeout      time.Duration
	MaxJSONBytes int64
	MaxRuleBytes int64
	Logger       *slog.Logger

	// Transport overrides the HTTP transport (tests, proxy routing).
	Transport http.RoundTripper
}

// Client talks to one gateway base URL.
type Client struct {
	base   *url.URL
	http   *http.Client
	opts   Options
	logger *slog.Logger
}

// Error is returned by every fetch. It matches both its Kind and Cause under errors.Is.
type Error struct {
	Op     string
	URL    string
	Status int
	Kind   error
	Cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// New validates base (http/https only) and builds a client.
func New(base string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(base), "/"))
	if err != nil || u == nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: api base %q must be an http(s) URL", domain.ErrConfigIncomplete, base)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxJSONBytes <= 0 {
		opts.MaxJSONBytes = defaultMaxJSONBytes
	}
	if opts.MaxRuleBytes <= 0 {
		opts.MaxRuleBytes = defaultMaxRuleBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		base:   u,
		http:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		opts:   opts,
		logger: logger,
	}, nil
}

// Base returns the normalized base URL.
func (c *Client) Base() string {
	return c.base.String()
}

// UserStatus is the decoded /user response.
type UserStatus struct {
	Authorized bool
	Label      string
	Tier       string
}

// FetchProxy returns the proxy address the session should use.
func (c *Client) FetchProxy(ctx context.Context) (string, error) {
	var body struct {
		Proxy *string `json:"proxy"`
	}
	target, err := c.getJSON(ctx, "px", nil, &body)
	if err != nil {
		return "", err
	}
	if body.Proxy == nil {
		return "", c.badShape("px", target, `missing "proxy"`)
	}
	return strings.TrimSpace(*body.Proxy), nil
}

// FetchServerVersion returns the server's application version string.
func (c *Client) FetchServerVersion(ctx context.Context) (string, error) {
	var body struct {
		Version *string `json:"version"`
	}
	target, err := c.getJSON(ctx, "version", nil, &body)
	if err != nil {
		return "", err
	}
	if body.Version == nil || strings.TrimSpace(*body.Version) == "" {
		return "", c.badShape("version", target, `missing "version"`)
	}
	return strings.TrimSpace(*body.Version), nil
}

// FetchUserStatus returns the authorization status for username.
// The wire shape is {"status": [authorized, label, tier]}.
func (c *Client) FetchUserStatus(ctx context.Context, username string) (UserStatus, error) {
	var body struct {
		Status []json.RawMessage `json:"status"`
	}
	params := url.Values{"username": {username}}
	target, err := c.getJSON(ctx, "user", params, &body)
	if err != nil {
		return UserStatus{}, err
	}
	if len(body.Status) != 3 {
		return UserStatus{}, c.badShape("user", target, fmt.Sprintf(`"status" has %d elements, want 3`, len(body.Status)))
	}
	var st UserStatus
	if err := json.Unmarshal(body.Status[0], &st.Authorized); err != nil {
		return UserStatus{}, c.badShape("user", target, "status[0] is not a boolean")
	}
	if err := json.Unmarshal(body.Status[1], &st.Label); err != nil {
		return UserStatus{}, c.badShape("user", target, "status[1] is not a string")
	}
	if err := json.Unmarshal(body.Status[2], &st.Tier); err != nil {
		return UserStatus{}, c.badShape("user", target, "status[2] is not a string")
	}
	return st, nil
}

// FetchAdblockRules returns the raw rule list split into lines. Lines are
// not parsed here; blank lines are dropped.
func (c *Client) FetchAdblockRules(ctx context.Context) ([]string, error) {
	text, _, err := c.get(ctx, "adblock", nil, c.opts.MaxRuleBytes)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	rules := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rules = append(rules, line)
	}
	return rules, nil
}

func (c *Client) getJSON(ctx context.Context, op string, params url.Values, out any) (string, error) {
	text, target, err := c.get(ctx, op, params, c.opts.MaxJSONBytes)
	if err != nil {
		return target, err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return target, &Error{Op: op, URL: target, Kind: domain.ErrGatewayBadResponse, Cause: err}
	}
	return target, nil
}

func (c *Client) get(ctx context.Context, op string, params url.Values, maxBytes int64) (body, target string, err error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + op
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	target = u.String()

	c.logger.Info("gateway request", "op", op, "url", target, "params", params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", target, &Error{Op: op, URL: target, Kind: domain.ErrGatewayUnreachable, Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			err = fmt.Errorf("timed out after %s: %w", c.opts.Timeout, err)
		}
		c.logger.Warn("gateway unreachable", "op", op, "url", target, "error", err)
		return "", target, &Error{Op: op, URL: target, Kind: domain.ErrGatewayUnreachable, Cause: err}
	}
	defer resp.Body.Close()

	// Read at most maxBytes+1 to detect overflow deterministically.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return "", target, &Error{Op: op, URL: target, Status: resp.StatusCode, Kind: domain.ErrGatewayUnreachable, Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", target, &Error{Op: op, URL: target, Status: resp.StatusCode, Kind: domain.ErrGatewayBadResponse}
	}
	if int64(len(data)) > maxBytes {
		return "", target, &Error{Op: op, URL: target, Status: resp.StatusCode, Kind: domain.ErrGatewayBadResponse,
			Cause: fmt.Errorf("response larger than %d bytes", maxBytes)}
	}

	body = string(data)
	if len(body) < logBodyLimit {
		c.logger.Debug("gateway response", "op", op, "status", resp.StatusCode, "body", body)
	} else {
		c.logger.Debug("gateway response", "op", op, "status", resp.StatusCode, "len", len(body))
	}
	return body, target, nil
}

func (c *Client) badShape(op, target, detail string) error {
	return &Error{Op: op, URL: target, Kind: domain.ErrGatewayBadResponse, Cause: errors.New(detail)}
}
