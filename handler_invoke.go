package rpccore

// This file implements the three cardinality-specific actions the Design
// Notes call out as the localized dispatch points: invoking a unary/server-
// streaming user function, starting a client-/bidi-streaming observer
// factory, and feeding buffered/live request parts to an installed observer.
//
// Every user-supplied function (SPEC_FULL.md §5's "Future"-returning hooks)
// is run on its own goroutine, exactly as the teacher's Channel.Invoke
// launches a handler goroutine and submits its result back onto the Loop —
// the idiomatic Go reading of "the future may resolve on any context; the
// handler re-enters the call's context when wiring the result."

// invokeUnary runs the unary user function and wires its result back via
// completeResponse once it returns.
func (h *Handler) invokeUnary(msg any) {
	fn := h.unaryFunc
	ctx := h.ctx
	go func() {
		resp, err := fn(ctx, msg)
		_ = h.loop.Submit(func() { h.handleCompleteResponse(resp, err) })
	}()
}

// invokeServerStreaming runs the server-streaming user function and wires
// its result back via completeStatus once it returns.
func (h *Handler) invokeServerStreaming(msg any) {
	fn := h.ssFunc
	ctx := h.ctx
	go func() {
		st, err := fn(ctx, msg)
		_ = h.loop.Submit(func() { h.handleCompleteStatus(st, err) })
	}()
}

// startObserverFactory runs the client-/bidi-streaming observer factory and
// installs the resulting observer back on the loop, draining anything
// buffered in the meantime.
func (h *Handler) startObserverFactory() {
	ctx := h.ctx
	switch h.cardinality {
	case ClientStreaming:
		factory := h.csObserverFactory
		go func() {
			obs, err := factory(ctx)
			_ = h.loop.Submit(func() { h.installClientStreamObserver(obs, err) })
		}()
	case Bidirectional:
		factory := h.bidiObserverFactory
		go func() {
			obs, err := factory(ctx)
			_ = h.loop.Submit(func() { h.installBidiObserver(obs, err) })
		}()
	}
}

func (h *Handler) installClientStreamObserver(obs clientStreamObserver, err error) {
	if h.phase == phaseCompleted {
		return
	}
	if err != nil {
		h.raiseObserverError(err)
		return
	}
	h.csObserver = obs
	h.drainBuffered()
}

func (h *Handler) installBidiObserver(obs bidiStreamObserver, err error) {
	if h.phase == phaseCompleted {
		return
	}
	if err != nil {
		h.raiseObserverError(err)
		return
	}
	h.bidiObserver = obs
	h.drainBuffered()
}

// drainBuffered feeds every RequestPart buffered before the observer
// resolved into the now-installed observer, in arrival order.
func (h *Handler) drainBuffered() {
	for _, part := range h.reqBuf.drain() {
		h.feedObserver(part)
	}
}

// deliverToObserverOrBuffer either feeds part straight to the installed
// observer, or buffers it (bounded by request_buffer_limit) while the
// observer factory is still resolving.
func (h *Handler) deliverToObserverOrBuffer(part RequestPart) {
	if h.csObserver == nil && h.bidiObserver == nil {
		if err := h.reqBuf.push(part); err != nil {
			h.raiseLibraryError(err)
		}
		return
	}
	h.feedObserver(part)
}

// feedObserver calls OnMessage/OnEnd on whichever observer is installed.
// Invoked synchronously on the loop: SPEC_FULL.md describes observer message
// delivery as plain calls, not Future-returning, unlike the factory itself.
func (h *Handler) feedObserver(part RequestPart) {
	switch h.cardinality {
	case ClientStreaming:
		switch part.Kind {
		case RequestMessage:
			if err := h.csObserver.OnMessage(part.Message); err != nil {
				h.raiseObserverError(err)
			}
		case RequestEnd:
			resp, err := h.csObserver.OnEnd()
			if err != nil {
				h.raiseObserverError(err)
				return
			}
			h.handleCompleteResponse(resp, nil)
		}
	case Bidirectional:
		switch part.Kind {
		case RequestMessage:
			if err := h.bidiObserver.OnMessage(part.Message); err != nil {
				h.raiseObserverError(err)
			}
		case RequestEnd:
			if err := h.bidiObserver.OnEnd(); err != nil {
				h.raiseObserverError(err)
			}
			// Response side may still be open; completion is driven
			// exclusively by the user calling CallContext.Complete/
			// CompleteError (SPEC_FULL.md §4.5.4).
		}
	}
}
