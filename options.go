package webrequester

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Callback post-processes a response. It receives the response with its
// body still open and must not close it; the returned value lands in
// Result.Value instead of the decoded body text. Setting a callback forces
// the request onto the worker transport.
type Callback func(*http.Response) (any, error)

// Options carries request options, either shared by a whole batch (common
// options) or overriding the common ones for a single target. The zero
// value is valid and means "inherit everything".
type Options struct {
	// Method is the HTTP method, case-insensitive. Empty means GET.
	Method string

	// Data is sent verbatim as the request body. When both Data and JSON
	// are set, Data wins.
	Data []byte

	// JSON is marshaled into the request body with an application/json
	// content type.
	JSON any

	// Params are appended to the target's query string.
	Params map[string]string

	// Headers are set on the request. A target's Headers replace the
	// common ones wholesale; the default User-Agent applies only when
	// the resolved set carries none.
	Headers map[string]string

	// Proxy routes the request through a proxy. See ProxyURL and ProxyMap.
	Proxy Proxy

	// Timeout bounds the whole exchange. See TimeoutSeconds,
	// TimeoutDuration and NoTimeout. Unset inherits the common options'
	// timeout, then the session default.
	Timeout Timeout

	// AllowAsync permits the pooled transport. nil means true.
	AllowAsync *bool

	// Callback post-processes the response on the worker transport.
	Callback Callback

	// Transport tunes redirect handling for this request.
	Transport *TransportOptions

	// Logger overrides the client's logger: on common options for the
	// whole batch, on per-target options for that one request.
	Logger *zerolog.Logger

	// Client, when set on the common options, carries the batch's pooled
	// requests instead of the dispatcher's own HTTP client. Its lifetime
	// stays with the caller; it is never closed here. Ignored on
	// per-target options.
	Client *http.Client
}

// TransportOptions are passed through to the underlying HTTP client.
type TransportOptions struct {
	// FollowRedirects controls whether redirects are followed. nil means
	// true. When disabled, the redirect response itself becomes the
	// result.
	FollowRedirects *bool `json:"followRedirects"`

	// MaxRedirects caps the redirect chain. 0 means the default of 10.
	MaxRedirects int `json:"maxRedirects"`
}

// merge resolves per-target options over common ones. Overriding is per
// field: a set field replaces the common value entirely, map fields
// included. The returned Options owns copies of all mutable state, so
// concurrently dispatched requests never share maps with the caller or
// with each other. Client stays common-only and is never overridden.
func (o *Options) merge(per *Options) Options {
	var out Options
	if o != nil {
		out = *o
	}
	if per != nil {
		if per.Method != "" {
			out.Method = per.Method
		}
		if per.Data != nil {
			out.Data = per.Data
		}
		if per.JSON != nil {
			out.JSON = per.JSON
		}
		if per.Params != nil {
			out.Params = per.Params
		}
		if per.Headers != nil {
			out.Headers = per.Headers
		}
		if !per.Proxy.IsZero() {
			out.Proxy = per.Proxy
		}
		if !per.Timeout.IsZero() {
			out.Timeout = per.Timeout
		}
		if per.AllowAsync != nil {
			out.AllowAsync = per.AllowAsync
		}
		if per.Callback != nil {
			out.Callback = per.Callback
		}
		if per.Transport != nil {
			out.Transport = per.Transport
		}
		if per.Logger != nil {
			out.Logger = per.Logger
		}
	}

	out.Data = append([]byte(nil), out.Data...)
	out.Params = copyMap(out.Params)
	out.Headers = copyMap(out.Headers)
	out.Proxy = out.Proxy.clone()
	if out.Transport != nil {
		t := *out.Transport
		out.Transport = &t
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Timeout is a per-request deadline covering the whole exchange, including
// the wait for a free connection slot on the pooled transport. The zero
// value means "not set".
type Timeout struct {
	set  bool
	none bool
	d    time.Duration
}

// TimeoutSeconds returns a Timeout of n seconds.
func TimeoutSeconds(n float64) Timeout {
	return Timeout{set: true, d: time.Duration(n * float64(time.Second))}
}

// TimeoutDuration returns a Timeout of exactly d.
func TimeoutDuration(d time.Duration) Timeout {
	return Timeout{set: true, d: d}
}

// NoTimeout returns a Timeout that explicitly disables the deadline,
// overriding common options and the session default.
func NoTimeout() Timeout {
	return Timeout{set: true, none: true}
}

// IsZero reports whether the timeout is unset.
func (t Timeout) IsZero() bool { return !t.set }

// duration resolves the timeout against the session default. 0 means no
// deadline at all.
func (t Timeout) duration(sessionDefault time.Duration) time.Duration {
	if !t.set {
		return sessionDefault
	}
	if t.none {
		return 0
	}
	return t.d
}

// UnmarshalJSON accepts a number of seconds or a string. A string of
// digits also means seconds; any other string disables the timeout
// explicitly. null leaves the timeout unset.
func (t *Timeout) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*t = Timeout{}
	case float64:
		*t = Timeout{set: true, d: time.Duration(val * float64(time.Second))}
	case string:
		if !isDigits(val) {
			*t = Timeout{set: true, none: true}
			return nil
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("timeout %q out of range", val)
		}
		*t = Timeout{set: true, d: time.Duration(n) * time.Second}
	default:
		return fmt.Errorf("invalid timeout value of type %T", val)
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Proxy selects a proxy per target scheme. The zero value means no proxy
// is configured and the process environment decides.
type Proxy struct {
	entries map[string]string
}

// ProxyURL routes both http and https requests through raw. An empty raw
// still counts as configured: it proxies nothing, but keeps the request
// off the pooled transport like any other proxy setup.
func ProxyURL(raw string) Proxy {
	if raw == "" {
		return Proxy{entries: map[string]string{}}
	}
	return Proxy{entries: map[string]string{schemeHTTP: raw, schemeHTTPS: raw}}
}

// ProxyMap routes requests per target scheme. Schemes missing from the map
// connect directly. A non-nil empty map still counts as configured, which
// keeps such requests off the pooled transport.
func ProxyMap(entries map[string]string) Proxy {
	if entries == nil {
		return Proxy{}
	}
	m := make(map[string]string, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return Proxy{entries: m}
}

// IsZero reports whether no proxy is configured.
func (p Proxy) IsZero() bool { return p.entries == nil }

// ForScheme returns the proxy URL for a scheme, or "" for none.
func (p Proxy) ForScheme(scheme string) string {
	return p.entries[scheme]
}

// UnmarshalJSON accepts a proxy URL string, applied to both schemes, or an
// object keyed by scheme. An empty string or empty object counts as
// configured. Any other value is discarded and leaves no proxy configured.
func (p *Proxy) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*p = ProxyURL(val)
	case map[string]any:
		m := make(map[string]string, len(val))
		for k, raw := range val {
			s, ok := raw.(string)
			if !ok {
				*p = Proxy{}
				return nil
			}
			m[k] = s
		}
		*p = Proxy{entries: m}
	default:
		*p = Proxy{}
	}
	return nil
}

func (p Proxy) clone() Proxy {
	if p.entries == nil {
		return Proxy{}
	}
	m := make(map[string]string, len(p.entries))
	for k, v := range p.entries {
		m[k] = v
	}
	return Proxy{entries: m}
}

// proxyFunc adapts the per-scheme table to http.Transport's Proxy hook. An
// unconfigured Proxy falls back to the environment, matching the pooled
// transport's behavior.
func (p Proxy) proxyFunc() func(*http.Request) (*url.URL, error) {
	if p.IsZero() {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		entry := p.entries[req.URL.Scheme]
		if entry == "" {
			return nil, nil
		}
		return url.Parse(entry)
	}
}
