package webrequester

import (
	"encoding/json"
	"net/http"
)

// HTTPInfo describes the HTTP exchange behind a result.
type HTTPInfo struct {
	// URL is the final URL, after any redirects.
	URL string `json:"url"`
	// StatusCode is the response status.
	StatusCode int `json:"statusCode"`
	// Header holds the response headers.
	Header http.Header `json:"header"`
	// RequestHeader holds the headers of the request as it was sent.
	RequestHeader http.Header `json:"requestHeader"`
}

// Result is the outcome of one target. It is either fully populated, with
// the transport that carried it, the exchange info and a body, or absent:
// the request failed, the failure was logged, and every other field is
// zero. There is no in-between state.
type Result struct {
	// Transport identifies which transport completed the request.
	Transport TransportKind `json:"transport"`
	// Info describes the underlying HTTP exchange.
	Info *HTTPInfo `json:"info"`
	// Text is the decoded response body.
	Text string `json:"text"`
	// Value is the callback's return value, when a callback ran.
	Value any `json:"value,omitempty"`
	// Absent marks a request that produced no response.
	Absent bool `json:"-"`
}

// OK reports whether the request produced a response.
func (r Result) OK() bool { return !r.Absent }

// MarshalJSON renders absent results as null, keeping serialized result
// lists aligned with their targets.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Absent {
		return []byte("null"), nil
	}
	type plain Result
	return json.Marshal(plain(r))
}

// newResult builds a populated Result from a finished exchange. resp's
// Request field points at the last request of the redirect chain, which is
// where the final URL and the as-sent headers come from.
func newResult(kind TransportKind, resp *http.Response, text string, value any) Result {
	return Result{
		Transport: kind,
		Info: &HTTPInfo{
			URL:           resp.Request.URL.String(),
			StatusCode:    resp.StatusCode,
			Header:        resp.Header,
			RequestHeader: resp.Request.Header,
		},
		Text:  text,
		Value: value,
	}
}

// absentResult fills the slot of a failed request.
func absentResult() Result {
	return Result{Absent: true}
}

// clone returns a copy sharing no mutable state with the receiver.
// Results cross the response-cache boundary as clones, so a caller
// mutating a returned header never corrupts later cache hits.
func (r Result) clone() Result {
	out := r
	if r.Info != nil {
		info := *r.Info
		info.Header = r.Info.Header.Clone()
		info.RequestHeader = r.Info.RequestHeader.Clone()
		out.Info = &info
	}
	return out
}
