package webrequester

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dispatch runs one batch on a throwaway client with default settings.
// Programs issuing more than one batch should build a Client and reuse it.
func Dispatch(ctx context.Context, targets []Target, common *Options) ([]Result, error) {
	c, err := New()
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Dispatch(ctx, targets, common)
}

// Dispatch fans the targets out concurrently and returns one result per
// target, in input order. A target whose exchange failed occupies its slot
// as an absent result. A malformed target or option aborts the whole
// batch before anything is dispatched, as does cancelling the context.
func (c *Client) Dispatch(ctx context.Context, targets []Target, common *Options) ([]Result, error) {
	specs := make([]*requestSpec, len(targets))
	defaults := c.sessionDefaults()

	var pooledCount, workerCount int
	for i, target := range targets {
		spec, err := buildSpec(i, target, common, defaults)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		specs[i] = spec
		if spec.route == TransportPooled {
			pooledCount++
		} else {
			workerCount++
		}
	}

	batchID := uuid.NewString()
	logger := c.logger
	if common != nil && common.Logger != nil {
		logger = *common.Logger
	}
	logger = logger.With().Str("batch", batchID).Logger()

	logger.Info().
		Int("targets", len(specs)).
		Int("pooled", pooledCount).
		Int("worker", workerCount).
		Msg("dispatching batch")

	results := make([]Result, len(specs))
	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Add(1)
		go func(spec *requestSpec) {
			defer wg.Done()
			results[spec.index] = c.dispatchOne(ctx, spec, batchID, logger)
		}(spec)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) dispatchOne(ctx context.Context, spec *requestSpec, batchID string, logger zerolog.Logger) Result {
	// A per-target Logger replaces the batch logger for this request only,
	// transports included; the batch correlation ID carries over.
	if spec.opts.Logger != nil {
		logger = spec.opts.Logger.With().Str("batch", batchID).Logger()
	}
	logger = logger.With().Int("target", spec.index).Logger()

	var key string
	if c.respCache != nil && spec.cacheable() {
		key = spec.cacheKey()
		if res, ok := c.respCache.Get(key); ok {
			logger.Debug().Str("url", spec.url.String()).Msg("served from cache")
			return res.clone()
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			logger.Warn().Err(err).Msg("rate limiter wait aborted")
			return absentResult()
		}
	}

	res := c.attempt(ctx, spec, logger)
	if key != "" && res.OK() {
		c.respCache.Set(key, res.clone())
	}
	return res
}

// attempt runs the exchange on the selected transport. When the pooled
// transport cannot establish a connection, the request is retried once on
// the worker transport, whose fresh per-request transport sidesteps
// whatever state the shared pool accumulated. Any other failure leaves
// the slot absent.
func (c *Client) attempt(ctx context.Context, spec *requestSpec, logger zerolog.Logger) Result {
	if spec.route == TransportWorker {
		res, err := c.worker.roundTrip(ctx, spec, logger)
		if err != nil {
			return absentResult()
		}
		return res
	}

	res, err := c.pooled.roundTrip(ctx, spec, logger)
	if err == nil {
		return res
	}
	if !errors.Is(err, errConnect) || ctx.Err() != nil {
		return absentResult()
	}

	logger.Warn().Str("url", spec.url.String()).Msg("retrying on the worker transport")
	res, err = c.worker.roundTrip(ctx, spec, logger)
	if err != nil {
		return absentResult()
	}
	return res
}
