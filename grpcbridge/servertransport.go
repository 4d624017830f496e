package grpcbridge

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	rpccore "github.com/joeycumines/go-rpccore"
)

// serverWriter adapts a live grpc.ServerStream to rpccore.ResponseWriter,
// the wire-framing analog of the teacher's
// internal/transport.UnaryServerTransportStream: there, header/trailer
// state is buffered until Finish; here, grpc.ServerStream already owns that
// bookkeeping, so serverWriter only needs to translate calls and capture the
// terminal error to return from the stream handler.
type serverWriter struct {
	stream   grpc.ServerStream
	done     chan struct{}
	finalErr error
}

func newServerWriter(stream grpc.ServerStream) *serverWriter {
	return &serverWriter{stream: stream, done: make(chan struct{})}
}

func (w *serverWriter) SendMetadata(h rpccore.HeaderMap, flush bool) rpccore.Ack {
	return rpccore.NewSettledAck(w.stream.SendHeader(metadata.MD(h)))
}

func (w *serverWriter) SendMessage(b []byte, meta rpccore.MessageMetadata) rpccore.Ack {
	return rpccore.NewSettledAck(w.stream.SendMsg(&rawFrame{Data: b}))
}

// SendEnd records trailers and the final Status, then unblocks Serve's
// caller, which is waiting to return the RPC's terminal error to grpc-go.
func (w *serverWriter) SendEnd(st rpccore.Status, trailers rpccore.HeaderMap) rpccore.Ack {
	w.stream.SetTrailer(metadata.MD(trailers))
	w.finalErr = st.Err()
	close(w.done)
	return rpccore.NewSettledAck(nil)
}
