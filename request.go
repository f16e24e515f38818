package webrequester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultMaxRedirects = 10

// sessionDefaults are the client-level values a request inherits when its
// options leave them unset.
type sessionDefaults struct {
	userAgent string
	timeout   time.Duration
}

// requestSpec is a fully resolved plan for one target: options merged,
// URL and option values validated, body built, transport picked. Specs
// for the whole batch are built before anything is dispatched, so
// structural problems surface as a single error with no requests sent.
type requestSpec struct {
	index   int
	url     *url.URL
	opts    Options
	method  string
	body    []byte
	header  http.Header
	timeout time.Duration
	route   TransportKind
}

// buildSpec resolves one target against the common options and the
// session defaults.
func buildSpec(index int, target Target, common *Options, defaults sessionDefaults) (*requestSpec, error) {
	opts := common.merge(target.Options)

	u, err := url.Parse(target.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTarget, err)
	}
	if u.Scheme != schemeHTTP && u.Scheme != schemeHTTPS {
		return nil, fmt.Errorf("%w: %q", ErrBadScheme, target.URL)
	}

	if err := validateOptions(&opts); err != nil {
		return nil, err
	}

	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	if len(opts.Params) > 0 {
		q := u.Query()
		for k, v := range opts.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	body, contentType, err := buildBody(&opts)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	for k, v := range opts.Headers {
		header.Set(k, v)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", defaults.userAgent)
	}

	return &requestSpec{
		index:   index,
		url:     u,
		opts:    opts,
		method:  method,
		body:    body,
		header:  header,
		timeout: opts.Timeout.duration(defaults.timeout),
		route:   selectTransport(u, &opts),
	}, nil
}

// validateOptions rejects option values that cannot be dispatched. These
// are structural failures and refuse the whole batch.
func validateOptions(o *Options) error {
	if o.Timeout.set && !o.Timeout.none && o.Timeout.d < 0 {
		return fmt.Errorf("%w: timeout must be non-negative", ErrBadOptions)
	}
	if o.Transport != nil && o.Transport.MaxRedirects < 0 {
		return fmt.Errorf("%w: maxRedirects must be non-negative", ErrBadOptions)
	}
	for scheme, entry := range o.Proxy.entries {
		if entry == "" {
			continue
		}
		if _, err := url.Parse(entry); err != nil {
			return fmt.Errorf("%w: proxy for %s: %v", ErrBadOptions, scheme, err)
		}
	}
	return nil
}

// buildBody returns the request body and the content type it implies.
// Data wins over JSON when both are set.
func buildBody(o *Options) ([]byte, string, error) {
	if o.Data != nil {
		return o.Data, "", nil
	}
	if o.JSON == nil {
		return nil, "", nil
	}
	b, err := json.Marshal(o.JSON)
	if err != nil {
		return nil, "", fmt.Errorf("%w: json body: %v", ErrBadOptions, err)
	}
	return b, "application/json", nil
}

// httpRequest turns the resolved plan into an http.Request. Every call
// builds a fresh request, so the two transports and the fallback retry
// never share body readers.
func (s *requestSpec) httpRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if len(s.body) > 0 {
		body = bytes.NewReader(s.body)
	}
	req, err := http.NewRequestWithContext(ctx, s.method, s.url.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = s.header.Clone()
	return req, nil
}

// cacheable reports whether the exchange may be served from or stored in
// the client's response cache.
func (s *requestSpec) cacheable() bool {
	return s.method == http.MethodGet && s.opts.Callback == nil && len(s.body) == 0
}

// cacheKey identifies the exchange in the response cache.
func (s *requestSpec) cacheKey() string {
	return s.method + " " + s.url.String()
}

// redirectPolicy builds the CheckRedirect hook honoring the transport
// options. With redirects disabled the 3xx response itself is returned to
// the caller; otherwise the chain is capped.
func redirectPolicy(o *TransportOptions) func(*http.Request, []*http.Request) error {
	follow := true
	limit := defaultMaxRedirects
	if o != nil {
		if o.FollowRedirects != nil {
			follow = *o.FollowRedirects
		}
		if o.MaxRedirects > 0 {
			limit = o.MaxRedirects
		}
	}
	if !follow {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= limit {
			return errTooManyRedirects
		}
		return nil
	}
}
