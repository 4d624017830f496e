// Package grpcbridge wires a *rpccore.Router onto a real *grpc.Server,
// dispatching by method path the same way the teacher's Channel dispatches
// in-process, but framing messages over an actual grpc.ServerStream instead
// of passing Go values directly.
package grpcbridge

import (
	"errors"

	"google.golang.org/grpc/encoding"
)

// rawFrame carries an already-serialized message payload through
// grpc.ServerStream.RecvMsg/SendMsg, undecoded: rpccore.Handler owns
// deserialization via its own Codec, so the transport layer never needs to
// know the concrete proto type.
type rawFrame struct{ Data []byte }

var errUnsupportedRawFrame = errors.New("grpcbridge: codec only supports *rawFrame")

// rawCodec overrides grpc-go's default "proto" content-subtype with a
// pass-through codec, the same technique reverse-proxy gateways use to
// forward opaque gRPC frames without a compiled proto type on the server
// side. A *grpc.Server using grpcbridge.Serve must be dedicated to rpccore
// dispatch: registering rawCodec globally affects every RPC on that server.
type rawCodec struct{}

func (rawCodec) Name() string { return "proto" }

func (rawCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*rawFrame)
	if !ok {
		return nil, errUnsupportedRawFrame
	}
	return f.Data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*rawFrame)
	if !ok {
		return errUnsupportedRawFrame
	}
	f.Data = append([]byte(nil), data...)
	return nil
}

func init() {
	encoding.RegisterCodec(rawCodec{})
}
