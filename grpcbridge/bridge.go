package grpcbridge

import (
	"io"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	rpccore "github.com/joeycumines/go-rpccore"
)

// Serve returns a grpc.StreamHandler that dispatches every RPC arriving on
// a *grpc.Server through router, by full method path — the wire-connected
// counterpart of the teacher's in-process Channel.Invoke/NewStream dispatch
// (grounded on internal/grpcutil's method-lookup helpers and
// internal/transport's ServerTransportStream, adapted from direct Go-value
// handoff to framed bytes). Register it via:
//
//	grpc.NewServer(grpc.UnknownServiceHandler(grpcbridge.Serve(router)))
//
// A *grpc.Server configured this way must not also register compiled
// ServiceDesc services: rawCodec overrides the server's default codec
// globally (see codec.go).
func Serve(router *rpccore.Router) grpc.StreamHandler {
	return func(_ any, stream grpc.ServerStream) error {
		method, ok := grpc.MethodFromServerStream(stream)
		if !ok {
			return status.Error(codes.Internal, "grpcbridge: method not found on server stream")
		}

		var remoteAddr net.Addr
		if p, ok := peer.FromContext(stream.Context()); ok {
			remoteAddr = p.Addr
		}
		md, _ := metadata.FromIncomingContext(stream.Context())

		writer := newServerWriter(stream)
		h := router.NewCall(method, remoteAddr, writer, nil)

		h.ReceiveMetadata(rpccore.HeaderMap(md))

		for {
			var frame rawFrame
			if err := stream.RecvMsg(&frame); err != nil {
				if err == io.EOF {
					h.ReceiveEnd()
				} else {
					h.ReceiveError(err)
				}
				break
			}
			h.ReceiveMessage(frame.Data)
		}

		<-writer.done
		h.Finish()
		return writer.finalErr
	}
}
