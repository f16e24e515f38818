package webrequester

import "net/url"

// TransportKind identifies which transport carried a request.
type TransportKind string

const (
	// TransportPooled is the shared transport with pooled connections.
	TransportPooled TransportKind = "pooled"
	// TransportWorker is the blocking transport run on the worker pool.
	TransportWorker TransportKind = "worker"
)

// selectTransport decides which transport a request runs on. The pooled
// transport is preferred; a request is routed to the worker transport when
// any of these hold, checked in order:
//
//   - the caller disabled the pooled transport with AllowAsync=false
//   - a callback is set (callbacks run on the worker transport only)
//   - the target is https
//   - a proxy is configured without an entry for plain http
//   - the proxy entry for plain http is itself an https URL
//
// The decision is pure: no I/O, no logging, no state.
func selectTransport(target *url.URL, opts *Options) TransportKind {
	if opts.AllowAsync != nil && !*opts.AllowAsync {
		return TransportWorker
	}
	if opts.Callback != nil {
		return TransportWorker
	}
	if target.Scheme == schemeHTTPS {
		return TransportWorker
	}
	if !opts.Proxy.IsZero() {
		entry := opts.Proxy.ForScheme(schemeHTTP)
		if entry == "" {
			return TransportWorker
		}
		if u, err := url.Parse(entry); err != nil || u.Scheme == schemeHTTPS {
			return TransportWorker
		}
	}
	return TransportPooled
}
