// Package salesforce is a client for the Salesforce REST API.
//
// The client handles the OAuth2 web server flow (authorization code and
// refresh token grants) and exposes sObject CRUD plus SOQL queries. Token
// persistence is pluggable through TokenStore; see package tokenstore.
//
// A Client is not safe for concurrent use while its token is being replaced.
// The client never refreshes or retries on its own: callers check
// AccessToken.NeedsRefresh or react to *AuthenticationError and call
// RefreshToken.
package salesforce

import (
	"context"
	"strings"

	httpclient "github.com/natserract/sfclient/pkg/http"
	"go.uber.org/zap"
)

// Transport executes HTTP requests. *httpclient.Client satisfies it.
type Transport interface {
	Do(opts httpclient.RequestOptions) (*httpclient.Response, error)
}

// Client is the main client for interacting with the Salesforce REST API
type Client struct {
	config      *Config
	transport   Transport
	logger      *zap.Logger
	accessToken *AccessToken
	apiBaseURL  string
}

// NewClient creates a new Salesforce client with default production logger.
// A nil transport gets the default HTTP client.
func NewClient(cfg *Config, transport Transport) *Client {
	logger, _ := zap.NewProduction()
	return NewClientWithLogger(cfg, transport, logger)
}

// NewClientWithLogger creates a new Salesforce client with a custom logger
func NewClientWithLogger(cfg *Config, transport Transport, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if transport == nil {
		transport = httpclient.NewClientWithLogger(logger)
	}
	return &Client{
		config:    cfg,
		transport: transport,
		logger:    logger,
	}
}

// SetAccessToken replaces the current token. Data calls go to the token's APIURL.
func (c *Client) SetAccessToken(token *AccessToken) {
	c.accessToken = token
	c.apiBaseURL = ""
	if token != nil {
		c.apiBaseURL = strings.TrimRight(token.APIURL, "/")
	}
}

// AccessToken returns the current token, or nil.
func (c *Client) AccessToken() *AccessToken {
	return c.accessToken
}

func (c *Client) authHeader() string {
	return "Bearer " + c.accessToken.AccessToken
}

// send issues one request and maps the outcome onto the error taxonomy.
func (c *Client) send(ctx context.Context, opts httpclient.RequestOptions) (*httpclient.Response, error) {
	opts.Context = ctx

	resp, err := c.transport.Do(opts)
	if err != nil {
		c.logger.Error("Salesforce request failed",
			zap.Error(err),
			zap.String("method", opts.Method),
			zap.String("url", stripQuery(opts.URL)))
		return nil, &TransportError{Method: opts.Method, URL: stripQuery(opts.URL), Err: err}
	}

	if err := checkResponse(resp); err != nil {
		c.logger.Error("Salesforce request returned an error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("method", opts.Method),
			zap.String("url", stripQuery(opts.URL)),
			zap.String("response", string(resp.Body)))
		return nil, err
	}

	return resp, nil
}

func stripQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
