package webrequester

import (
	"context"
	"errors"
	"io"
	"net"
)

// Structural errors abort the whole batch before any request is sent.
var (
	// ErrBadTarget is returned when a batch entry is not a URL string or
	// a [url, options] pair.
	ErrBadTarget = errors.New("at least one URL attribute has an incorrect format")

	// ErrBadOptions is returned when an option bundle cannot be decoded
	// or carries out-of-range values.
	ErrBadOptions = errors.New("invalid request options")

	// ErrBadScheme is returned for target URLs whose scheme is neither
	// http nor https.
	ErrBadScheme = errors.New("url scheme must be http or https")
)

// errConnect tags pooled-transport failures where the exchange never got
// established. They are the only failures retried on the worker transport.
var errConnect = errors.New("connection failed")

// errTooManyRedirects caps redirect chains.
var errTooManyRedirects = errors.New("too many redirects")

// isTimeout reports whether err is a deadline failure, either the
// request's own timeout or an expired context.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isConnectError reports whether err belongs to the connection-failure
// class: dialing, DNS, resets and disconnects, anything where the server
// never delivered a usable response. Timeouts, redirect caps and protocol
// errors are final and do not qualify.
func isConnectError(err error) bool {
	if isTimeout(err) || errors.Is(err, context.Canceled) || errors.Is(err, errTooManyRedirects) {
		return false
	}
	var op *net.OpError
	if errors.As(err, &op) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
