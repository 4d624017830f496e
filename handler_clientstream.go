package rpccore

// ClientStreamObserver is the user-supplied state machine driving a
// client-streaming call's request half (SPEC_FULL.md §4.5.2). OnMessage is
// called once per inbound message, in order; OnEnd is called exactly once,
// after the last message, and its return value fulfils the call's single
// response (or fails it).
type ClientStreamObserver[Req, Res any] interface {
	OnMessage(req Req) error
	OnEnd() (Res, error)
}

// ClientStreamObserverFactory builds a fresh ClientStreamObserver for one
// call. It runs on its own goroutine, the same as UnaryFunc.
type ClientStreamObserverFactory[Req, Res any] func(ctx *CallContext) (ClientStreamObserver[Req, Res], error)

// typedClientStreamObserver adapts a generic ClientStreamObserver[Req, Res]
// to the Handler core's type-erased clientStreamObserver.
type typedClientStreamObserver[Req, Res any] struct {
	obs ClientStreamObserver[Req, Res]
}

func (a typedClientStreamObserver[Req, Res]) OnMessage(msg any) error {
	return a.obs.OnMessage(msg.(Req))
}

func (a typedClientStreamObserver[Req, Res]) OnEnd() (any, error) {
	return a.obs.OnEnd()
}

// NewClientStreamHandler builds a HandlerFactory for a client-streaming
// method (SPEC_FULL.md §4.5.2).
func NewClientStreamHandler[Req, Res any](codec Codec[Req], resCodec Codec[Res], factory ClientStreamObserverFactory[Req, Res]) HandlerFactory {
	return func(cc ConstructContext, writer ResponseWriter, interceptors []Interceptor) *Handler {
		h := newHandler(ClientStreaming, cc, writer, interceptors)
		h.deserialize = func(b []byte) (any, error) { return codec.Deserialize(b) }
		h.serialize = func(v any) ([]byte, error) { return resCodec.Serialize(v.(Res)) }
		h.csObserverFactory = func(ctx *CallContext) (clientStreamObserver, error) {
			obs, err := factory(ctx)
			if err != nil {
				return nil, err
			}
			return typedClientStreamObserver[Req, Res]{obs: obs}, nil
		}
		return h
	}
}
