package riot

import (
	"time"

	"github.com/okian/tftscrape/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithToken sets the API key sent as X-Riot-Token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLimiter sets the limiter consulted before every upstream call.
func WithLimiter(l Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithTimeout bounds a single upstream request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries bounds retries of transport failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryWait sets the initial and maximum backoff between retries.
func WithRetryWait(initial, maxWait time.Duration) Option {
	return func(c *Client) {
		if initial > 0 && maxWait >= initial {
			c.retryWait = initial
			c.retryMaxWait = maxWait
		}
	}
}

// WithBaseURL replaces how a routing host becomes a base URL. The default
// yields https://{host}.api.riotgames.com.
func WithBaseURL(fn func(host string) string) Option {
	return func(c *Client) {
		if fn != nil {
			c.baseURL = fn
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
