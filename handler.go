package rpccore

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
)

// Cardinality tags a Handler's streaming shape (SPEC_FULL.md §4.5/§9). Per
// the Design Notes, the four parallel handler variants of the source are
// collapsed into one Handler type carrying this tag; dispatch differences
// are localized to message arrival, send-response permission checks, and
// completion wiring.
type Cardinality uint8

const (
	Unary Cardinality = iota
	ClientStreaming
	ServerStreaming
	Bidirectional
)

func (c Cardinality) String() string {
	switch c {
	case Unary:
		return "unary"
	case ClientStreaming:
		return "client_streaming"
	case ServerStreaming:
		return "server_streaming"
	case Bidirectional:
		return "bidirectional"
	default:
		return "unknown"
	}
}

// handlerPhase is the common state machine shared by every cardinality
// (SPEC_FULL.md §4.5): Idle -> CreatedContext -> Invoked -> Completed.
type handlerPhase uint8

const (
	phaseIdle handlerPhase = iota
	phaseCreatedContext
	phaseInvoked
	phaseCompleted
)

// clientStreamObserver is the type-erased form of a user's client-streaming
// observer (SPEC_FULL.md §4.5.2); the typed facade in handler_clientstream.go
// adapts a generic ClientStreamObserver[Req, Res] down to this.
type clientStreamObserver interface {
	OnMessage(msg any) error
	OnEnd() (resp any, err error)
}

// bidiStreamObserver is the bidirectional analog: OnEnd reports only
// end-of-request-stream, since the response side may still be open
// (SPEC_FULL.md §4.5.4).
type bidiStreamObserver interface {
	OnMessage(msg any) error
	OnEnd() error
}

// HandlerFactory constructs a Handler for one new stream. Router holds one
// HandlerFactory per registered method path.
type HandlerFactory func(cc ConstructContext, writer ResponseWriter, interceptors []Interceptor) *Handler

// Handler is the single, cardinality-tagged implementation of
// SPEC_FULL.md §4.5's four CallHandler variants. It owns the call's
// CallContext, its InterceptorPipeline, and the two layers of streamState
// the design calls for (outer: transport<->pipeline; inner:
// pipeline<->handler). It is created on receipt of a new stream and torn
// down (references dropped) once it emits End.
type Handler struct {
	cardinality Cardinality
	loop        Loop
	writer      ResponseWriter
	pipeline    *Pipeline
	logger      loggerFields
	errProc     ErrorProcessor
	encoding    EncodingConfig
	stats       *statsHooks
	statsCtx    context.Context

	outer streamState
	inner streamState
	phase handlerPhase

	ctx         *CallContext
	msgCount    int
	reqBuf      requestBuffer
	headersSent bool
	deadline    time.Time
	hasDeadline bool

	observerStarted bool

	// rejectStatus, if set, short-circuits the call to this Status as soon
	// as metadata is received, without waiting for a message (Router's
	// unregistered-method/admission-rejected paths).
	rejectStatus *Status

	deserialize func([]byte) (any, error)
	serialize   func(any) ([]byte, error)

	unaryFunc           func(ctx *CallContext, req any) (any, error)
	csObserverFactory   func(ctx *CallContext) (clientStreamObserver, error)
	csObserver          clientStreamObserver
	ssFunc              func(ctx *CallContext, req any) (Status, error)
	bidiObserverFactory func(ctx *CallContext) (bidiStreamObserver, error)
	bidiObserver        bidiStreamObserver
}

// loggerFields bundles a rpclog.Logger with the method path for convenience;
// defined in logging.go.
type loggerFields = logFields

func newHandler(cardinality Cardinality, cc ConstructContext, writer ResponseWriter, interceptors []Interceptor) *Handler {
	h := &Handler{
		cardinality: cardinality,
		loop:        cc.Loop,
		writer:      writer,
		pipeline:    NewPipeline(interceptors),
		logger:      loggerFields{logger: cc.Logger, method: cc.Path},
		errProc:     ErrorProcessor{Delegate: cc.ErrorDelegate},
		encoding:    cc.Encoding,
		reqBuf:      requestBuffer{limit: cc.Encoding.RequestBufferLimit},
		deadline:    cc.Deadline,
		hasDeadline: cc.HasDeadline,
		stats:       &statsHooks{handler: cc.StatsHandler},
	}
	h.statsCtx = h.stats.tagRPC(context.Background(), cc.Path)
	h.pipeline.SetFinal(h.consumeRequestPart)
	h.pipeline.SetSink(h.sinkResponsePart)
	return h
}

// --- Inbound contract (SPEC_FULL.md §6), self-marshalling onto the Loop ---

// ReceiveMetadata delivers the request headers for a new stream.
func (h *Handler) ReceiveMetadata(md HeaderMap) {
	_ = h.loop.Submit(func() {
		if !h.outer.receiveHeaders() {
			h.raiseLibraryError(&ProtocolViolationError{Detail: "metadata received out of order"})
			return
		}
		h.pipeline.DeliverRequest(RequestPart{Kind: RequestMetadata, Metadata: md})
	})
}

// ReceiveMessage delivers one raw inbound message frame.
func (h *Handler) ReceiveMessage(b []byte) {
	_ = h.loop.Submit(func() {
		if h.phase == phaseCompleted {
			return // tolerated: a message racing an already-emitted End.
		}
		if !h.outer.receiveMessage() {
			h.raiseLibraryError(&ProtocolViolationError{Detail: "message received out of order"})
			return
		}
		if err := checkMessageSize(b, h.encoding.MaxReceiveMessageLength); err != nil {
			h.raiseLibraryError(err)
			return
		}
		msg, err := h.deserialize(b)
		if err != nil {
			h.raiseLibraryError(err)
			return
		}
		h.pipeline.DeliverRequest(RequestPart{Kind: RequestMessage, Message: msg})
	})
}

// ReceiveEnd delivers end-of-request-stream.
func (h *Handler) ReceiveEnd() {
	_ = h.loop.Submit(func() {
		if h.phase == phaseCompleted {
			return
		}
		if !h.outer.receiveEnd() {
			h.raiseLibraryError(&ProtocolViolationError{Detail: "end received out of order"})
			return
		}
		h.pipeline.DeliverRequest(RequestPart{Kind: RequestEnd})
	})
}

// ReceiveError delivers a transport-level fault (e.g. stream reset).
func (h *Handler) ReceiveError(err error) {
	_ = h.loop.Submit(func() {
		h.raiseLibraryError(&LibraryError{Detail: "transport error", Err: err, Code: codes.Unavailable})
	})
}

// Finish is delivered exactly once at transport teardown; it is the last
// signal the Handler accepts.
func (h *Handler) Finish() {
	_ = h.loop.Submit(func() {
		if h.phase != phaseCompleted {
			h.raiseLibraryError(&LibraryError{Detail: "stream aborted", Code: codes.Unavailable})
		}
		h.pipeline.Close()
	})
}

// --- Inner (pipeline -> handler) dispatch ---

func (h *Handler) consumeRequestPart(part RequestPart) {
	if h.phase == phaseCompleted {
		return // tolerated: late-arriving parts from an asynchronous interceptor.
	}
	switch part.Kind {
	case RequestMetadata:
		if !h.inner.receiveHeaders() {
			h.raiseLibraryError(&ProtocolViolationError{Detail: "metadata observed twice by handler"})
			return
		}
		h.onMetadata(part.Metadata)
	case RequestMessage:
		if !h.inner.receiveMessage() {
			h.raiseLibraryError(&ProtocolViolationError{Detail: "message observed before headers or after end"})
			return
		}
		h.stats.inPayload(h.statsCtx, part.Message, 0)
		h.onMessage(part.Message)
	case RequestEnd:
		if !h.inner.receiveEnd() {
			h.raiseLibraryError(&ProtocolViolationError{Detail: "end observed twice by handler"})
			return
		}
		h.onRequestEnd()
	}
}

// onMetadata implements "Idle + Metadata -> CreatedContext": build
// CallContext, enqueue empty response headers.
func (h *Handler) onMetadata(md HeaderMap) {
	h.ctx = newCallContext(md, h.deadline, h.hasDeadline)
	// sendResponse/completeStatus are reachable from arbitrary goroutines (a
	// user function's own goroutine, or any code later holding the
	// CallContext), so each self-marshals onto the loop rather than touching
	// loop-owned Handler state directly. completeResponse is only ever
	// invoked from callbacks invokeUnary/feedObserver already submitted onto
	// the loop themselves, so it needs no such wrapping. Only the
	// streaming-response cardinalities get a send-response hook and a
	// status_sink; the unary-response ones get the response_sink.
	if h.cardinality == ServerStreaming || h.cardinality == Bidirectional {
		h.ctx.sendResponse = func(msg any, meta MessageMetadata) AckFuture {
			ack := newAck()
			_ = h.loop.Submit(func() { forwardAck(h.handleSendResponse(msg, meta), ack) })
			return ack
		}
		h.ctx.completeStatus = func(st Status, err error) {
			_ = h.loop.Submit(func() { h.handleCompleteStatus(st, err) })
		}
	} else {
		h.ctx.completeResponse = h.handleCompleteResponse
	}
	h.phase = phaseCreatedContext
	h.stats.begin(h.statsCtx, h.cardinality == ClientStreaming || h.cardinality == Bidirectional, h.cardinality == ServerStreaming || h.cardinality == Bidirectional)
	h.stats.inHeader(h.statsCtx, md, h.logger.method)
	h.emitMetadata()
	if h.rejectStatus != nil {
		h.emitEnd(*h.rejectStatus)
	}
}

// onMessage dispatches message arrival per cardinality (Design Notes: one of
// the three methods where cardinality differences are localized).
func (h *Handler) onMessage(msg any) {
	switch h.cardinality {
	case Unary, ServerStreaming:
		h.msgCount++
		if h.phase == phaseInvoked {
			h.raiseLibraryError(&ProtocolViolationError{Detail: fmt.Sprintf("multiple messages on %s", h.cardinality)})
			return
		}
		if h.msgCount > 1 {
			h.raiseLibraryError(&ProtocolViolationError{Detail: fmt.Sprintf("multiple messages on %s", h.cardinality)})
			return
		}
		h.phase = phaseInvoked
		if h.cardinality == Unary {
			h.invokeUnary(msg)
		} else {
			h.invokeServerStreaming(msg)
		}
	case ClientStreaming, Bidirectional:
		if !h.observerStarted {
			h.observerStarted = true
			h.phase = phaseInvoked
			h.startObserverFactory()
		}
		h.deliverToObserverOrBuffer(RequestPart{Kind: RequestMessage, Message: msg})
	}
}

// onRequestEnd dispatches end-of-request-stream per cardinality.
func (h *Handler) onRequestEnd() {
	switch h.cardinality {
	case Unary, ServerStreaming:
		if h.msgCount == 0 {
			h.raiseLibraryError(&StreamCardinalityViolationError{Detail: fmt.Sprintf("no message received for %s", h.cardinality)})
		}
		// else: End on the request side of a unary/server-streaming call
		// carries no further action; the response side completes via the
		// sink set up when the message arrived.
	case ClientStreaming, Bidirectional:
		if !h.observerStarted {
			h.observerStarted = true
			h.phase = phaseInvoked
			h.startObserverFactory()
		}
		h.deliverToObserverOrBuffer(RequestPart{Kind: RequestEnd})
	}
}

// --- Outbound emission ---

func (h *Handler) emitMetadata() {
	if h.headersSent {
		return
	}
	h.headersSent = true
	if !h.inner.sendHeaders() {
		return
	}
	ack := newAck()
	h.pipeline.DeliverResponse(ResponsePart{Kind: ResponseMetadata, Metadata: HeaderMap{}}, ack)
}

// handleSendResponse backs CallContext.SendResponse for streaming-response
// cardinalities. Permitted whenever phase is CreatedContext or Invoked and
// not Completed (SPEC_FULL.md §4.5.3/§4.5.4).
func (h *Handler) handleSendResponse(msg any, meta MessageMetadata) AckFuture {
	ack := newAck()
	if h.cardinality != ServerStreaming && h.cardinality != Bidirectional {
		return resolvedAck(ErrAlreadyComplete)
	}
	if h.phase != phaseCreatedContext && h.phase != phaseInvoked {
		return resolvedAck(ErrAlreadyComplete)
	}
	meta.Compress = meta.Compress && h.encoding.ServerCompressionEnabled
	if !h.inner.sendMessage() {
		return resolvedAck(ErrAlreadyComplete)
	}
	h.pipeline.DeliverResponse(ResponsePart{Kind: ResponseMessage, Message: msg, MessageMeta: meta}, ack)
	return ack
}

// handleCompleteResponse fulfils response_sink for Unary/ClientStreaming.
func (h *Handler) handleCompleteResponse(resp any, err error) {
	if err != nil {
		h.raiseObserverError(err)
		return
	}
	if h.phase == phaseCompleted {
		return
	}
	meta := MessageMetadata{Compress: h.ctx.Compression() && h.encoding.ServerCompressionEnabled}
	if !h.inner.sendMessage() {
		return
	}
	ack := newAck()
	h.pipeline.DeliverResponse(ResponsePart{Kind: ResponseMessage, Message: resp, MessageMeta: meta}, ack)
	h.completeOK()
}

// handleCompleteStatus fulfils status_sink for ServerStreaming/Bidirectional.
func (h *Handler) handleCompleteStatus(st Status, err error) {
	if err != nil {
		h.raiseObserverError(err)
		return
	}
	if h.phase == phaseCompleted {
		return
	}
	h.emitEnd(st)
}

func (h *Handler) completeOK() {
	h.emitEnd(OKStatus)
}

// emitEnd sends the terminal End and tears the call down. Always an
// implicit flush point (SPEC_FULL.md §9); emitEnd itself never sets
// MessageMetadata.Flush on the message it may have just sent.
func (h *Handler) emitEnd(st Status) {
	if h.phase == phaseCompleted {
		return
	}
	h.phase = phaseCompleted
	trailers := HeaderMap{}
	if h.ctx != nil {
		trailers = h.ctx.Trailers()
		h.ctx.markDone()
	}
	if !h.inner.sendEnd() {
		h.pipeline.Close()
		return
	}
	ack := newAck()
	h.pipeline.DeliverResponse(ResponsePart{Kind: ResponseEnd, Status: st, Trailers: trailers}, ack)
	h.pipeline.Close()
}

// sinkResponsePart is the pipeline's terminal response consumer: the
// transport<->pipeline boundary, gated by the outer streamState.
func (h *Handler) sinkResponsePart(part ResponsePart, ack Ack) {
	switch part.Kind {
	case ResponseMetadata:
		if !h.outer.sendHeaders() {
			ack.settle(ErrAlreadyComplete)
			return
		}
		h.stats.outHeader(h.statsCtx, part.Metadata)
		forwardAck(h.writer.SendMetadata(part.Metadata, false), ack)
	case ResponseMessage:
		b, err := h.serialize(part.Message)
		if err != nil {
			cerr := &CodecError{Op: "serialize", Err: err}
			ack.settle(cerr)
			h.raiseLibraryError(cerr)
			return
		}
		if !h.outer.sendMessage() {
			ack.settle(ErrAlreadyComplete)
			return
		}
		h.stats.outPayload(h.statsCtx, part.Message, len(b))
		forwardAck(h.writer.SendMessage(b, part.MessageMeta), ack)
	case ResponseEnd:
		if !h.outer.sendEnd() {
			ack.settle(ErrAlreadyComplete)
			return
		}
		h.stats.end(h.statsCtx, part.Status.Err())
		forwardAck(h.writer.SendEnd(part.Status, part.Trailers), ack)
	}
}

// forwardAck settles dst once src resolves, without blocking the caller.
func forwardAck(src Ack, dst Ack) {
	go func() { dst.settle(src.Wait(context.Background())) }()
}

// --- Error handling (SPEC_FULL.md §4.6/§7) ---

func (h *Handler) raiseLibraryError(err error) {
	if h.phase == phaseCompleted {
		if h.errProc.Delegate != nil {
			h.errProc.Delegate.ObserveLibraryError(err)
		}
		return
	}
	trailers := HeaderMap{}
	if h.ctx != nil {
		trailers = h.ctx.Trailers()
	}
	st, tr := h.errProc.ProcessLibraryError(err, trailers)
	if h.phase == phaseIdle {
		// no CallContext yet (e.g. headers never arrived); synthesize one
		// solely to carry trailers/compression defaults through emitEnd.
		h.ctx = newCallContext(HeaderMap{}, time.Time{}, false)
	}
	h.ctx.trailers = tr
	h.emitEnd(st)
}

func (h *Handler) raiseObserverError(err error) {
	if h.phase == phaseCompleted {
		h.logger.error("user function failed after the call completed", err, nil)
		if h.errProc.Delegate != nil {
			h.errProc.Delegate.ObserveObserverError(err)
		}
		return
	}
	trailers := HeaderMap{}
	if h.ctx != nil {
		trailers = h.ctx.Trailers()
	}
	st, tr := h.errProc.ProcessObserverError(err, trailers)
	if h.ctx != nil {
		h.ctx.trailers = tr
	}
	h.emitEnd(st)
}
