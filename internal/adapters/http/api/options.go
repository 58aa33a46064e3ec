package api

import "github.com/twobeats/worldcup/pkg/logger"

type serverConfig struct {
	jwtSecret           []byte
	rateRPS             float64
	rateBurst           int
	defaultRankingLimit int
	pinger              Pinger
	logger              logger.Logger
}

// Option configures NewServer.
type Option func(*serverConfig)

// WithJWTSecret enables bearer-token participants signed with HS256 and secret.
func WithJWTSecret(secret string) Option {
	return func(c *serverConfig) {
		if secret != "" {
			c.jwtSecret = []byte(secret)
		}
	}
}

// WithRateLimit limits each client IP to rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *serverConfig) {
		if rps > 0 && burst > 0 {
			c.rateRPS, c.rateBurst = rps, burst
		}
	}
}

// WithDefaultRankingLimit sets the page size used when ?limit is absent.
func WithDefaultRankingLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.defaultRankingLimit = n
		}
	}
}

// WithPinger makes /healthz check a dependency such as the database.
func WithPinger(p Pinger) Option {
	return func(c *serverConfig) {
		c.pinger = p
	}
}

// WithLogger sets the logger handlers report failures to.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
