package rpccore

// ServerStreamFunc is a server-streaming RPC's user-supplied implementation
// (SPEC_FULL.md §4.5.3). It runs on its own goroutine; it may call
// ctx.SendResponse any number of times before returning. Its return value
// (st, nil) or (_, err) fulfils status_sink once invocation completes.
type ServerStreamFunc[Req any] func(ctx *CallContext, req Req) (Status, error)

// NewServerStreamHandler builds a HandlerFactory for a server-streaming
// method.
func NewServerStreamHandler[Req, Res any](codec Codec[Req], resCodec Codec[Res], fn ServerStreamFunc[Req]) HandlerFactory {
	return func(cc ConstructContext, writer ResponseWriter, interceptors []Interceptor) *Handler {
		h := newHandler(ServerStreaming, cc, writer, interceptors)
		h.deserialize = func(b []byte) (any, error) { return codec.Deserialize(b) }
		h.serialize = func(v any) ([]byte, error) { return resCodec.Serialize(v.(Res)) }
		h.ssFunc = func(ctx *CallContext, req any) (Status, error) {
			return fn(ctx, req.(Req))
		}
		return h
	}
}
