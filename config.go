package currency

import (
	"errors"
	"strings"
	"time"
)

const (
	DefaultCacheTTL          = time.Hour
	DefaultTimeout           = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 10 * time.Second
)

var ErrAPIKeyRequired = errors.New("API key is required")

// Config holds the per-provider settings. Every field except APIKey has a
// default; a provider cannot be constructed without a key.
type Config struct {
	APIKey            string
	BaseURL           string
	CacheTTL          time.Duration
	Timeout           time.Duration
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	MaxRetries        int
}

func (c Config) WithDefaults() Config {
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.InitialRetryDelay == 0 {
		c.InitialRetryDelay = DefaultInitialRetryDelay
	}

	if c.MaxRetryDelay == 0 {
		c.MaxRetryDelay = DefaultMaxRetryDelay
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}

	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrAPIKeyRequired
	}

	return nil
}
