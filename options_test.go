package rpccore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/joeycumines/go-rpccore/rpclog"
)

func TestResolveOptionsRequiresLoop(t *testing.T) {
	_, err := resolveOptions(nil)
	require.Error(t, err)
}

func TestResolveOptionsDefaultsLogger(t *testing.T) {
	cfg, err := resolveOptions([]Option{WithLoop(&syncLoop{})})
	require.NoError(t, err)
	assert.IsType(t, rpclog.NopLogger{}, cfg.logger)
}

func TestResolveOptionsWithLoopNilRejected(t *testing.T) {
	_, err := resolveOptions([]Option{WithLoop(nil)})
	require.Error(t, err)
}

func TestResolveOptionsAppliesEncodingConfig(t *testing.T) {
	cfg, err := resolveOptions([]Option{
		WithLoop(&syncLoop{}),
		WithServerCompression(true),
		WithMaxReceiveMessageLength(1024),
		WithRequestBufferLimit(8),
	})
	require.NoError(t, err)
	assert.True(t, cfg.encoding.ServerCompressionEnabled)
	assert.Equal(t, 1024, cfg.encoding.MaxReceiveMessageLength)
	assert.Equal(t, 8, cfg.encoding.RequestBufferLimit)
}

func TestResolveOptionsMethodAdmissionRates(t *testing.T) {
	cfg, err := resolveOptions([]Option{
		WithLoop(&syncLoop{}),
		WithMethodAdmissionRates("/svc/Method", map[time.Duration]int{time.Second: 1}),
	})
	require.NoError(t, err)
	require.Contains(t, cfg.limiters, "/svc/Method")
}

func TestResolveOptionsNilOptionIsSkipped(t *testing.T) {
	_, err := resolveOptions([]Option{WithLoop(&syncLoop{}), nil})
	require.NoError(t, err)
}

func TestResolveOptionsInterceptors(t *testing.T) {
	ic := NopInterceptor{}
	cfg, err := resolveOptions([]Option{WithLoop(&syncLoop{}), WithInterceptors(ic)})
	require.NoError(t, err)
	assert.Len(t, cfg.interceptors, 1)
}
