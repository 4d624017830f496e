package rpccore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/stats"
)

type recordingStatsHandler struct {
	tagged  []string
	events  []stats.RPCStats
}

func (h *recordingStatsHandler) TagRPC(ctx context.Context, info *stats.RPCTagInfo) context.Context {
	h.tagged = append(h.tagged, info.FullMethodName)
	return ctx
}

func (h *recordingStatsHandler) HandleRPC(ctx context.Context, s stats.RPCStats) {
	h.events = append(h.events, s)
}

func (h *recordingStatsHandler) TagConn(ctx context.Context, _ *stats.ConnTagInfo) context.Context {
	return ctx
}

func (h *recordingStatsHandler) HandleConn(context.Context, stats.ConnStats) {}

func TestStatsHooksNilReceiverSafe(t *testing.T) {
	var h *statsHooks
	ctx := context.Background()
	// must not panic with a nil *statsHooks (the pre-Router-wiring zero value)
	assert.Equal(t, ctx, h.tagRPC(ctx, "/x/Y"))
	h.begin(ctx, false, false)
	h.end(ctx, nil)
	h.inHeader(ctx, HeaderMap{}, "/x/Y")
	h.inPayload(ctx, "m", 0)
	h.outHeader(ctx, HeaderMap{})
	h.outPayload(ctx, "m", 0)
}

func TestStatsHooksNilHandlerSafe(t *testing.T) {
	h := &statsHooks{}
	ctx := context.Background()
	assert.Equal(t, ctx, h.tagRPC(ctx, "/x/Y"))
	h.begin(ctx, false, false)
}

func TestStatsHooksEmitsLifecycleEvents(t *testing.T) {
	rec := &recordingStatsHandler{}
	h := &statsHooks{handler: rec}
	ctx := h.tagRPC(context.Background(), "/test/Method")
	require.Equal(t, []string{"/test/Method"}, rec.tagged)

	h.begin(ctx, true, false)
	h.inHeader(ctx, HeaderMap{"k": []string{"v"}}, "/test/Method")
	h.inPayload(ctx, "req", 5)
	h.outHeader(ctx, HeaderMap{})
	h.outPayload(ctx, "resp", 7)
	h.end(ctx, nil)

	require.Len(t, rec.events, 6)

	begin, ok := rec.events[0].(*stats.Begin)
	require.True(t, ok)
	assert.True(t, begin.IsClientStream)
	assert.False(t, begin.IsServerStream)

	in, ok := rec.events[2].(*stats.InPayload)
	require.True(t, ok)
	assert.Equal(t, 5, in.WireLength)

	out, ok := rec.events[4].(*stats.OutPayload)
	require.True(t, ok)
	assert.Equal(t, 7, out.WireLength)

	end, ok := rec.events[5].(*stats.End)
	require.True(t, ok)
	assert.NoError(t, end.Error)
}
