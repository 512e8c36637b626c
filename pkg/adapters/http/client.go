package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/simgym/internal/logging"
)

// DefaultTimeout bounds every round trip to the control plane.
const DefaultTimeout = 5 * time.Second

// clientBase holds what the step and recorder clients share.
type clientBase struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// Option configures a client.
type Option func(*clientBase)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientBase) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient injects a custom http.Client (e.g. with a tuned transport).
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientBase) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger configures a logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientBase) {
		c.logger = logger
	}
}

func newClientBase(baseURL string, opts []Option) clientBase {
	c := clientBase{
		baseURL: NormalizeBaseURL(baseURL),
		timeout: DefaultTimeout,
		client:  &http.Client{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NormalizeBaseURL strips trailing slashes so endpoint paths can be appended directly.
func NormalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
