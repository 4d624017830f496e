package rpccore

// BidiStreamObserver is the user-supplied state machine driving a
// bidirectional call's request half (SPEC_FULL.md §4.5.4). OnMessage is
// called once per inbound message; OnEnd is called once, after the last
// message, and reports only end-of-request-stream — unlike client-streaming,
// it does not itself fulfil the call. Completion is driven exclusively by
// the observer (or any other code holding the CallContext) calling
// ctx.Complete/ctx.CompleteError, since the response side may still be open
// when the request side ends.
type BidiStreamObserver[Req any] interface {
	OnMessage(req Req) error
	OnEnd() error
}

// BidiStreamObserverFactory builds a fresh BidiStreamObserver for one call.
// It runs on its own goroutine, the same as UnaryFunc.
type BidiStreamObserverFactory[Req any] func(ctx *CallContext) (BidiStreamObserver[Req], error)

type typedBidiObserver[Req any] struct {
	obs BidiStreamObserver[Req]
}

func (a typedBidiObserver[Req]) OnMessage(msg any) error { return a.obs.OnMessage(msg.(Req)) }

func (a typedBidiObserver[Req]) OnEnd() error { return a.obs.OnEnd() }

// NewBidiStreamHandler builds a HandlerFactory for a bidirectional-streaming
// method.
func NewBidiStreamHandler[Req, Res any](codec Codec[Req], resCodec Codec[Res], factory BidiStreamObserverFactory[Req]) HandlerFactory {
	return func(cc ConstructContext, writer ResponseWriter, interceptors []Interceptor) *Handler {
		h := newHandler(Bidirectional, cc, writer, interceptors)
		h.deserialize = func(b []byte) (any, error) { return codec.Deserialize(b) }
		h.serialize = func(v any) ([]byte, error) { return resCodec.Serialize(v.(Res)) }
		h.bidiObserverFactory = func(ctx *CallContext) (bidiStreamObserver, error) {
			obs, err := factory(ctx)
			if err != nil {
				return nil, err
			}
			return typedBidiObserver[Req]{obs: obs}, nil
		}
		return h
	}
}
