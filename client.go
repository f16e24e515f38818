package webrequester

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/JoseVL92/web-requester/internal/cache"
	"github.com/JoseVL92/web-requester/internal/config"
	"github.com/JoseVL92/web-requester/internal/connpool"
	"github.com/JoseVL92/web-requester/internal/workerpool"
)

// Client dispatches batches of HTTP requests over two transports: a
// shared pooled client for plain requests and a bounded worker pool for
// requests that need an isolated exchange. A Client is safe for
// concurrent use and should be reused across batches; Close releases its
// workers and idle connections.
type Client struct {
	settings  *config.Settings
	logger    zerolog.Logger
	workers   *workerpool.Pool
	pooled    *pooledTransport
	worker    *workerTransport
	respCache *cache.Cache[Result]
	limiter   *rate.Limiter
}

type clientConfig struct {
	settings  *config.Settings
	logger    zerolog.Logger
	tlsConfig *tls.Config
}

// ClientOption adjusts a Client at construction time.
type ClientOption func(*clientConfig)

// WithSettings replaces the whole settings block. Zero fields are filled
// with defaults afterwards.
func WithSettings(s *config.Settings) ClientOption {
	return func(cc *clientConfig) {
		copied := *s
		cc.settings = &copied
	}
}

// WithLogger sets the logger for the client and every batch it runs.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(cc *clientConfig) { cc.logger = logger }
}

// WithMaxConns caps concurrent pooled connections across all hosts.
func WithMaxConns(n int) ClientOption {
	return func(cc *clientConfig) { cc.settings.MaxConns = n }
}

// WithMaxConnsPerHost caps concurrent pooled connections to a single host.
func WithMaxConnsPerHost(n int) ClientOption {
	return func(cc *clientConfig) { cc.settings.MaxConnsPerHost = n }
}

// WithWorkers sets the size of the worker pool.
func WithWorkers(n int) ClientOption {
	return func(cc *clientConfig) { cc.settings.Workers = n }
}

// WithTimeout sets the default per-request timeout applied when a request
// does not carry its own.
func WithTimeout(d time.Duration) ClientOption {
	return func(cc *clientConfig) { cc.settings.Timeout = d }
}

// WithUserAgent sets the User-Agent sent when a request does not override it.
func WithUserAgent(ua string) ClientOption {
	return func(cc *clientConfig) { cc.settings.UserAgent = ua }
}

// WithTLSConfig sets the TLS configuration used by both transports.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(cc *clientConfig) { cc.tlsConfig = cfg }
}

// WithResponseCache enables caching of GET responses.
func WithResponseCache(size int, ttl time.Duration) ClientOption {
	return func(cc *clientConfig) {
		cc.settings.CacheSize = size
		cc.settings.CacheTTL = ttl
	}
}

// WithRateLimit throttles dispatched requests to rps requests per second
// with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(cc *clientConfig) {
		cc.settings.RateLimit = rps
		cc.settings.RateBurst = burst
	}
}

// New creates a Client. Settings left unset fall back to defaults.
func New(opts ...ClientOption) (*Client, error) {
	cc := &clientConfig{
		settings: config.Default(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cc)
	}

	config.ApplyDefaults(cc.settings)
	if err := config.Validate(cc.settings); err != nil {
		return nil, fmt.Errorf("invalid client settings: %w", err)
	}

	gate := connpool.New(cc.settings.MaxConns, cc.settings.MaxConnsPerHost)
	workers := workerpool.New(cc.settings.Workers)

	c := &Client{
		settings: cc.settings,
		logger:   cc.logger,
		workers:  workers,
		pooled:   newPooledTransport(gate, cc.settings.MaxConns, cc.settings.MaxConnsPerHost, cc.tlsConfig),
		worker:   newWorkerTransport(workers, cc.tlsConfig),
	}

	if cc.settings.CacheSize > 0 {
		respCache, err := cache.New[Result](cc.settings.CacheSize, cc.settings.CacheTTL)
		if err != nil {
			workers.Close()
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		c.respCache = respCache
	}

	if cc.settings.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cc.settings.RateLimit), cc.settings.RateBurst)
	}

	return c, nil
}

// Close stops the worker pool and releases cached state and idle
// connections. Batches already in flight are allowed to finish their
// pooled exchanges, but requests still waiting for a worker fail.
func (c *Client) Close() {
	c.workers.Close()
	if c.respCache != nil {
		c.respCache.Close()
	}
	c.pooled.close()
}

func (c *Client) sessionDefaults() sessionDefaults {
	return sessionDefaults{
		userAgent: c.settings.UserAgent,
		timeout:   c.settings.Timeout,
	}
}
