// Package rpccore implements the server-side RPC call pipeline shared by
// every streaming cardinality: a per-stream state machine, a typed message
// codec, an interceptor pipeline, and the error/cancellation protocol that
// turns user handler code into a well-formed gRPC response.
//
// A call is driven entirely on a single-threaded execution context (a
// [Loop]): the transport feeds inbound parts in, the [Handler] advances a
// small state machine and invokes user code, and outbound parts are pushed
// to a transport-supplied [ResponseWriter]. The four streaming cardinalities
// (unary, client-streaming, server-streaming, bidirectional) share one
// [Handler] implementation tagged by [Cardinality]; only message arrival,
// send-response permission checks, and completion wiring differ between
// them.
package rpccore
