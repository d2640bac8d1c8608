package client

import (
	"net/http"
	"strings"
	"time"
)

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRoles sets the roles sent on every request.  Without roles the
// server applies no-access visibility.
func WithRoles(roles ...string) Option {
	return func(c *Client) {
		c.roles = c.roles[:0]
		for _, r := range roles {
			if r = strings.TrimSpace(r); r != "" {
				c.roles = append(c.roles, r)
			}
		}
	}
}

// WithRetryMax sets the maximum number of retries for GET requests.
func WithRetryMax(retryMax int) Option {
	return func(c *Client) {
		if retryMax >= 0 {
			c.retryMax = retryMax
		}
	}
}

// WithRetryWait sets the backoff bounds.  min must be positive; max is
// applied only when it is at least min.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		if min > 0 {
			c.retryWaitMin = min
			if max >= min {
				c.retryWaitMax = max
			}
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}
