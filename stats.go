package rpccore

import (
	"context"
	"time"

	"google.golang.org/grpc/stats"
)

// statsHooks wraps an optional stats.Handler with nil-receiver-safe
// convenience methods, the server-side half of the teacher's
// statsHandlerHelper (inprocgrpc/stats.go) — adapted here to a real,
// wire-connected Handler rather than an in-process one, so OutPayload's
// WireLength/Length are the actual serialized frame sizes. InPayload is
// reported with a length of 0: the Handler records it after decoding, where
// the frame size is no longer at hand.
type statsHooks struct {
	handler stats.Handler
}

func (h *statsHooks) tagRPC(ctx context.Context, method string) context.Context {
	if h == nil || h.handler == nil {
		return ctx
	}
	return h.handler.TagRPC(ctx, &stats.RPCTagInfo{FullMethodName: method})
}

func (h *statsHooks) begin(ctx context.Context, clientStream, serverStream bool) {
	if h == nil || h.handler == nil {
		return
	}
	h.handler.HandleRPC(ctx, &stats.Begin{
		BeginTime:      time.Now(),
		IsClientStream: clientStream,
		IsServerStream: serverStream,
	})
}

func (h *statsHooks) end(ctx context.Context, err error) {
	if h == nil || h.handler == nil {
		return
	}
	h.handler.HandleRPC(ctx, &stats.End{EndTime: time.Now(), Error: err})
}

func (h *statsHooks) inHeader(ctx context.Context, md HeaderMap, method string) {
	if h == nil || h.handler == nil {
		return
	}
	h.handler.HandleRPC(ctx, &stats.InHeader{FullMethod: method, Header: md})
}

func (h *statsHooks) inPayload(ctx context.Context, payload any, wireLength int) {
	if h == nil || h.handler == nil {
		return
	}
	h.handler.HandleRPC(ctx, &stats.InPayload{Payload: payload, RecvTime: time.Now(), WireLength: wireLength, Length: wireLength})
}

func (h *statsHooks) outHeader(ctx context.Context, md HeaderMap) {
	if h == nil || h.handler == nil {
		return
	}
	h.handler.HandleRPC(ctx, &stats.OutHeader{Header: md})
}

func (h *statsHooks) outPayload(ctx context.Context, payload any, wireLength int) {
	if h == nil || h.handler == nil {
		return
	}
	h.handler.HandleRPC(ctx, &stats.OutPayload{Payload: payload, SentTime: time.Now(), WireLength: wireLength, Length: wireLength})
}
