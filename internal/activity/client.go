package activity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Priya8975/activity-poller/internal/domain"
)

// DefaultPageSize is the per_page value requested from the events endpoint.
const DefaultPageSize = 30

// Client provides access to the activity REST API for one token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	pageSize   int
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client. An empty token sends unauthenticated requests.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    slog.Default(),
		pageSize:  DefaultPageSize,
		userAgent: "activity-poller",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageSize sets the events page size.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Connector builds an authenticated Client per tenant.
type Connector struct {
	opts []ClientOption
}

// NewConnector returns a Connector applying opts to every client it creates.
func NewConnector(opts ...ClientOption) *Connector {
	return &Connector{opts: opts}
}

// Connect implements domain.Connector. It performs the single
// authentication call for the tenant: resolving its principal user.
func (c *Connector) Connect(ctx context.Context, tenantName string, tenant domain.Tenant, baseURL string) (domain.Principal, error) {
	client := NewClient(baseURL, tenant.Token, c.opts...)
	user, err := client.User(ctx, tenant.User)
	if err != nil {
		return nil, err
	}
	client.logger.Debug("authenticated tenant", "tenant", tenantName, "user", user.Login, "endpoint", baseURL)
	return user, nil
}
