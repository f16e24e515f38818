package webrequester

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/JoseVL92/web-requester/internal/connpool"
	"github.com/JoseVL92/web-requester/internal/textenc"
)

// maxDrainBytes bounds how much of an unwanted body is read to keep the
// connection reusable.
const maxDrainBytes = 64 << 10

// proxyKey carries a per-request proxy override through the request
// context into the shared transport.
type proxyKey struct{}

// pooledTransport serves requests from one shared HTTP client with pooled
// connections. Each exchange holds a slot from the connection gate for its
// duration, so a saturated pool queues callers instead of rejecting them.
type pooledTransport struct {
	client *http.Client
	gate   *connpool.Gate
}

func newPooledTransport(gate *connpool.Gate, maxConns, maxConnsPerHost int, tlsCfg *tls.Config) *pooledTransport {
	transport := &http.Transport{
		Proxy:               proxyFromContext,
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     tlsCfg,
	}

	return &pooledTransport{
		client: &http.Client{Transport: transport},
		gate:   gate,
	}
}

// proxyFromContext routes a request through the proxy attached to its
// context, falling back to the process environment when none is set.
func proxyFromContext(req *http.Request) (*url.URL, error) {
	if p, ok := req.Context().Value(proxyKey{}).(*url.URL); ok {
		return p, nil
	}
	return http.ProxyFromEnvironment(req)
}

// roundTrip executes one exchange on the shared client. A non-nil error
// leaves the result slot absent, except for errConnect-tagged errors,
// which the coordinator retries on the worker transport. The request's
// timeout is applied as a context deadline, so it also covers the wait for
// a connection slot.
func (t *pooledTransport) roundTrip(ctx context.Context, spec *requestSpec, logger zerolog.Logger) (Result, error) {
	logger = logger.With().Str("transport", string(TransportPooled)).Str("url", spec.url.String()).Logger()

	if spec.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.timeout)
		defer cancel()
	}

	release, err := t.gate.Acquire(ctx, spec.url.Host)
	if err != nil {
		logger.Warn().Err(err).Msg("gave up waiting for a connection slot")
		return Result{}, err
	}
	defer release()

	if entry := spec.opts.Proxy.ForScheme(schemeHTTP); entry != "" {
		proxyURL, perr := url.Parse(entry)
		if perr != nil {
			return Result{}, perr
		}
		ctx = context.WithValue(ctx, proxyKey{}, proxyURL)
	}

	req, err := spec.httpRequest(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build request")
		return Result{}, err
	}

	resp, err := t.requestClient(spec).Do(req)
	if err != nil {
		switch {
		case isTimeout(err):
			logger.Warn().Err(err).Msg("request timed out")
			return Result{}, err
		case errors.Is(err, context.Canceled):
			return Result{}, err
		case isConnectError(err):
			logger.Warn().Err(err).Msg("connection failed")
			return Result{}, fmt.Errorf("%w: %v", errConnect, err)
		default:
			logger.Warn().Err(err).Msg("request failed")
			return Result{}, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		logger.Warn().Int("status", resp.StatusCode).Msg("error status")
		return Result{}, fmt.Errorf("http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// The server delivered a status line, so the connection was
		// established; losing it mid-body is final, not retryable.
		logger.Warn().Err(err).Msg("failed to read response body")
		return Result{}, err
	}

	text := textenc.Decode(body, textenc.Charset(resp.Header.Get("Content-Type")))
	logger.Debug().Int("status", resp.StatusCode).Msg("request succeeded")
	return newResult(TransportPooled, resp, text, nil), nil
}

// requestClient adapts the shared client to one request's redirect policy
// without copying the underlying transport or its connection pools. When
// the batch carries an external client, that client's transport is used
// and per-request proxies do not apply to it.
func (t *pooledTransport) requestClient(spec *requestSpec) *http.Client {
	base := t.client
	if spec.opts.Client != nil {
		base = spec.opts.Client
	}
	c := *base
	c.CheckRedirect = redirectPolicy(spec.opts.Transport)
	return &c
}

// close releases idle pooled connections.
func (t *pooledTransport) close() {
	t.client.CloseIdleConnections()
}
