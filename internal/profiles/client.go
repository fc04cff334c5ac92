package profiles

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "http://localhost:8000"
	userAgent       = "spigell/matchdeck"
	DefaultTimeout  = 30 * time.Second
)

// Client talks to the profile search service.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	Endpoint   string
}

func New(logger *zap.Logger, endpoint, token string) *Client {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:    strings.TrimSpace(token),
		Endpoint: endpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// WithTimeout overrides the HTTP timeout. Non-positive values are ignored.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.HTTPClient.Timeout = d
	}
	return c
}
