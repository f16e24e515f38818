package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/caarlos0/env/v6"
)

// Settings holds the tunables of a dispatch client. Zero fields are filled
// with defaults by Load and by the client constructor.
type Settings struct {
	// MaxConns caps in-flight connections on the pooled transport.
	MaxConns int `env:"WEBREQ_MAX_CONNS"`
	// MaxConnsPerHost caps pooled connections per host.
	MaxConnsPerHost int `env:"WEBREQ_MAX_CONNS_PER_HOST"`
	// Workers is the size of the pool running blocking requests.
	Workers int `env:"WEBREQ_WORKERS"`
	// Timeout is the session-wide default deadline. 0 means none.
	Timeout time.Duration `env:"WEBREQ_TIMEOUT"`
	// UserAgent is sent when request headers carry no User-Agent.
	UserAgent string `env:"WEBREQ_USER_AGENT"`
	// LogLevel is used by the command-line runner.
	LogLevel string `env:"WEBREQ_LOG_LEVEL"`
	// CacheSize enables the response cache when positive.
	CacheSize int `env:"WEBREQ_CACHE_SIZE"`
	// CacheTTL is how long cached responses stay valid.
	CacheTTL time.Duration `env:"WEBREQ_CACHE_TTL"`
	// RateLimit caps dispatches per second when positive.
	RateLimit float64 `env:"WEBREQ_RATE_LIMIT"`
	// RateBurst is the rate limiter's burst size.
	RateBurst int `env:"WEBREQ_RATE_BURST"`
}

// Default values
const (
	DefaultMaxConns        = 100
	DefaultMaxConnsPerHost = 30
	DefaultLogLevel        = "info"
	DefaultCacheTTL        = 5 * time.Minute
	DefaultRateBurst       = 1

	// DefaultUserAgent mimics a desktop browser; some sites reject
	// obvious bot agents outright.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/101.0.4951.64 Safari/537.36"
)

// DefaultWorkers returns the default worker pool size, scaled to the
// machine and capped so a wide batch of blocking requests cannot fan out
// into hundreds of goroutines holding sockets.
func DefaultWorkers() int {
	n := runtime.NumCPU() + 4
	if n > 32 {
		n = 32
	}
	return n
}

// Default returns Settings with every field at its default value.
func Default() *Settings {
	s := &Settings{}
	ApplyDefaults(s)
	return s
}

// Load builds Settings from WEBREQ_* environment variables, applying
// defaults for anything unset.
func Load() (*Settings, error) {
	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	ApplyDefaults(s)

	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return s, nil
}

// ApplyDefaults sets default values for unset fields.
func ApplyDefaults(s *Settings) {
	if s.MaxConns == 0 {
		s.MaxConns = DefaultMaxConns
	}
	if s.MaxConnsPerHost == 0 {
		s.MaxConnsPerHost = DefaultMaxConnsPerHost
	}
	if s.Workers == 0 {
		s.Workers = DefaultWorkers()
	}
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	if s.CacheTTL == 0 {
		s.CacheTTL = DefaultCacheTTL
	}
	if s.RateBurst == 0 {
		s.RateBurst = DefaultRateBurst
	}
	// Timeout, CacheSize and RateLimit default to 0: no session deadline,
	// cache disabled, no rate limit.
}

// Validate checks the settings for errors.
func Validate(s *Settings) error {
	if s.MaxConns < 1 {
		return fmt.Errorf("maxConns must be positive")
	}

	if s.MaxConnsPerHost < 1 {
		return fmt.Errorf("maxConnsPerHost must be positive")
	}

	if s.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}

	if s.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	if s.CacheSize < 0 {
		return fmt.Errorf("cacheSize must be non-negative")
	}

	if s.CacheSize > 0 && s.CacheTTL <= 0 {
		return fmt.Errorf("cacheTTL must be positive when the cache is enabled")
	}

	if s.RateLimit < 0 {
		return fmt.Errorf("rateLimit must be non-negative")
	}

	if s.RateLimit > 0 && s.RateBurst < 1 {
		return fmt.Errorf("rateBurst must be positive when rate limiting is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[s.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	return nil
}
