package webrequester

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/JoseVL92/web-requester/internal/textenc"
	"github.com/JoseVL92/web-requester/internal/workerpool"
)

// workerTransport serves requests that cannot share pooled connections.
// Every exchange builds its own transport, runs on a bounded worker pool
// and tears its connections down afterwards, so slow or stateful requests
// never occupy the shared pool.
type workerTransport struct {
	pool   *workerpool.Pool
	tlsCfg *tls.Config
}

func newWorkerTransport(pool *workerpool.Pool, tlsCfg *tls.Config) *workerTransport {
	return &workerTransport{
		pool:   pool,
		tlsCfg: tlsCfg,
	}
}

// roundTrip schedules the exchange on the worker pool and waits for it.
// The context bounds only the wait for a worker; once running, the
// exchange is limited by the request's own timeout.
func (t *workerTransport) roundTrip(ctx context.Context, spec *requestSpec, logger zerolog.Logger) (Result, error) {
	logger = logger.With().Str("transport", string(TransportWorker)).Str("url", spec.url.String()).Logger()

	var (
		res  Result
		rerr error
	)
	err := t.pool.Do(ctx, func() {
		res, rerr = t.execute(spec, logger)
	})
	if err != nil {
		if errors.Is(err, workerpool.ErrClosed) {
			logger.Warn().Msg("worker pool is closed")
		} else {
			logger.Warn().Err(err).Msg("gave up waiting for a worker")
		}
		return Result{}, err
	}
	return res, rerr
}

// execute performs one isolated exchange. It runs on a pool worker, so it
// must not block on anything other than the request itself.
func (t *workerTransport) execute(spec *requestSpec, logger zerolog.Logger) (Result, error) {
	transport := &http.Transport{
		Proxy:           spec.opts.Proxy.proxyFunc(),
		TLSClientConfig: t.tlsCfg,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport:     transport,
		Timeout:       spec.timeout,
		CheckRedirect: redirectPolicy(spec.opts.Transport),
	}

	req, err := spec.httpRequest(context.Background())
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build request")
		return Result{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			logger.Warn().Err(err).Msg("request timed out")
		} else {
			logger.Warn().Err(err).Msg("request failed")
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		logger.Warn().Int("status", resp.StatusCode).Msg("error status")
		return Result{}, fmt.Errorf("http status %d", resp.StatusCode)
	}

	if cb := spec.opts.Callback; cb != nil {
		value, cerr := cb(resp)
		if cerr != nil {
			logger.Warn().Err(cerr).Msg("callback failed")
			return Result{}, cerr
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		logger.Debug().Int("status", resp.StatusCode).Msg("request succeeded")
		return newResult(TransportWorker, resp, "", value), nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read response body")
		return Result{}, err
	}

	text := textenc.Decode(body, textenc.Charset(resp.Header.Get("Content-Type")))
	logger.Debug().Int("status", resp.StatusCode).Msg("request succeeded")
	return newResult(TransportWorker, resp, text, nil), nil
}
