package webrequester

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseVL92/web-requester/internal/config"
)

func TestNewDefaults(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, config.DefaultMaxConns, c.settings.MaxConns)
	assert.Equal(t, config.DefaultMaxConnsPerHost, c.settings.MaxConnsPerHost)
	assert.Equal(t, config.DefaultUserAgent, c.settings.UserAgent)
	assert.Equal(t, time.Duration(0), c.settings.Timeout)
	assert.Nil(t, c.respCache)
	assert.Nil(t, c.limiter)
}

func TestNewAppliesOptions(t *testing.T) {
	c, err := New(
		WithMaxConns(5),
		WithMaxConnsPerHost(2),
		WithWorkers(3),
		WithTimeout(4*time.Second),
		WithUserAgent("custom-agent"),
		WithResponseCache(16, time.Minute),
		WithRateLimit(100, 5),
	)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 5, c.settings.MaxConns)
	assert.Equal(t, 2, c.settings.MaxConnsPerHost)
	assert.Equal(t, 3, c.settings.Workers)
	assert.Equal(t, 4*time.Second, c.settings.Timeout)
	assert.Equal(t, "custom-agent", c.settings.UserAgent)
	assert.NotNil(t, c.respCache)
	assert.NotNil(t, c.limiter)
}

func TestNewWithSettings(t *testing.T) {
	s := &config.Settings{MaxConns: 7}
	c, err := New(WithSettings(s))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 7, c.settings.MaxConns)
	assert.Equal(t, config.DefaultMaxConnsPerHost, c.settings.MaxConnsPerHost)

	// The caller's struct is copied, not retained.
	s.MaxConns = 99
	assert.Equal(t, 7, c.settings.MaxConns)
}

func TestNewInvalidSettings(t *testing.T) {
	_, err := New(WithMaxConns(-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid client settings")
}

func TestCloseIsIdempotent(t *testing.T) {
	c, err := New(WithResponseCache(8, time.Minute))
	require.NoError(t, err)

	c.Close()
	c.Close()
}

func TestDispatchAfterClose(t *testing.T) {
	c, err := New(WithWorkers(1))
	require.NoError(t, err)
	c.Close()

	targets := []Target{{
		URL:     "http://127.0.0.1:9/",
		Options: &Options{AllowAsync: boolPtr(false)},
	}}
	results, err := c.Dispatch(context.Background(), targets, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Absent)
}
