package rpccore

// UnaryFunc is a unary RPC's user-supplied implementation. It runs on its
// own goroutine (SPEC_FULL.md §4.5.1/§5); returning (resp, nil) fulfils the
// call with resp and an OK status, returning (_, err) fails the call with
// err's resolved Status.
type UnaryFunc[Req, Res any] func(ctx *CallContext, req Req) (Res, error)

// NewUnaryHandler builds a HandlerFactory for a unary method, the Go
// realization of SPEC_FULL.md §4.5.1's CallHandler{Cardinality: Unary},
// shaped after connect-go's NewUnaryHandler constructor: one generic
// entry point per cardinality wrapping the shared, type-erased Handler core.
func NewUnaryHandler[Req, Res any](codec Codec[Req], resCodec Codec[Res], fn UnaryFunc[Req, Res]) HandlerFactory {
	return func(cc ConstructContext, writer ResponseWriter, interceptors []Interceptor) *Handler {
		h := newHandler(Unary, cc, writer, interceptors)
		h.deserialize = func(b []byte) (any, error) { return codec.Deserialize(b) }
		h.serialize = func(v any) ([]byte, error) { return resCodec.Serialize(v.(Res)) }
		h.unaryFunc = func(ctx *CallContext, req any) (any, error) {
			return fn(ctx, req.(Req))
		}
		return h
	}
}
