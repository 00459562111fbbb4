// Package gateway issues calls to the remote reporting API on behalf of a
// credential store, attaching the bearer credential and evicting it when the
// remote service rejects it.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/credential"
	"github.com/ecoai-civic/ecoai-client/internal/navigation"
	"github.com/ecoai-civic/ecoai-client/internal/observability"
)

// ErrUnauthorized is returned after a 401 evicted the stored credentials and a
// redirect to the login view was requested. It is not recoverable locally.
var ErrUnauthorized = errors.New("unauthorized")

const contentTypeJSON = "application/json"

// Options configures a Gateway.
type Options struct {
	BaseURL    string
	LoginPath  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// Gateway is shared by all callers. Bind it to a store to make authenticated calls.
type Gateway struct {
	baseURL   string
	loginPath string
	http      *http.Client
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// New builds a gateway.
func New(opts Options) *Gateway {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Gateway{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		loginPath: loginPath,
		http:      client,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Request describes one outbound call. Path is relative to the API base URL.
//
// Body may be nil, a *Form (sent as multipart), an io.Reader or []byte (sent
// as-is), or any other value (sent as JSON).
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

// Client is a gateway bound to one credential store and navigator.
type Client struct {
	g     *Gateway
	store *credential.Store
	nav   navigation.Navigator
}

// Bind returns a client that authenticates with store and reports forced
// navigations to nav.
func (g *Gateway) Bind(store *credential.Store, nav navigation.Navigator) *Client {
	return &Client{g: g, store: store, nav: nav}
}

// Store returns the credential store the client is bound to.
func (c *Client) Store() *credential.Store {
	return c.store
}

// Do issues the request. Any status other than 401 is returned to the caller
// unmodified. A 401 clears the store, requests a redirect to the login view and
// fails with ErrUnauthorized.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.g.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if token, ok := c.store.AccessToken(ctx); ok {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.g.send(httpReq, req.Path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.evict(ctx, req.Path)
		return nil, ErrUnauthorized
	}
	return resp, nil
}

func (c *Client) evict(ctx context.Context, path string) {
	if err := c.store.Clear(ctx); err != nil {
		c.g.logger.Error("clear credentials after 401", zap.String("namespace", c.store.Namespace()), zap.Error(err))
	}
	c.g.metrics.RecordEviction()
	c.g.logger.Info("credentials evicted",
		zap.String("namespace", c.store.Namespace()),
		zap.String("path", path),
	)
	if c.nav != nil {
		c.nav.Redirect(ctx, c.g.loginPath, true)
	}
}

// Anonymous sends the request without credentials and without eviction.
// It serves the login, registration and refresh endpoints.
func (g *Gateway) Anonymous(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := g.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return g.send(httpReq, req.Path)
}

func (g *Gateway) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode %s %s: %w", method, req.Path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.url(req.Path), body.reader)
	if err != nil {
		return nil, fmt.Errorf("gateway: build %s %s: %w", method, req.Path, err)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}

	switch body.kind {
	case bodyMultipart:
		// the boundary lives in the writer's content type; a caller value would break parsing
		httpReq.Header.Set("Content-Type", body.contentType)
	case bodyBinary:
	default:
		if httpReq.Header.Get("Content-Type") == "" {
			httpReq.Header.Set("Content-Type", contentTypeJSON)
		}
	}
	return httpReq, nil
}

func (g *Gateway) send(httpReq *http.Request, path string) (*http.Response, error) {
	start := time.Now()
	resp, err := g.http.Do(httpReq)
	if err != nil {
		g.logger.Warn("upstream call failed",
			zap.String("method", httpReq.Method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("gateway: %s %s: %w", httpReq.Method, path, err)
	}
	g.metrics.RecordUpstream(path, httpReq.Method, resp.StatusCode)
	g.logger.Debug("upstream call",
		zap.String("method", httpReq.Method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (g *Gateway) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.baseURL + path
}

// DecodeJSON decodes the response body into v and closes it.
func DecodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

// OK reports whether the status is 2xx.
func OK(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
