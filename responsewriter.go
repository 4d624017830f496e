package rpccore

import "context"

// Ack is the one-shot completion signal for an outbound write, settled after
// the transport accepts the bytes (or fails to). A zero-value Ack is not
// usable; construct with newAck.
type Ack struct {
	ch chan error
}

func newAck() Ack {
	return Ack{ch: make(chan error, 1)}
}

func resolvedAck(err error) Ack {
	a := newAck()
	a.ch <- err
	return a
}

// Wait blocks until the ack settles, or ctx is done, whichever comes first.
func (a Ack) Wait(ctx context.Context) error {
	select {
	case err := <-a.ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a Ack) settle(err error) {
	select {
	case a.ch <- err:
	default:
	}
}

// NewSettledAck builds an Ack already settled with err, for ResponseWriter
// implementations (e.g. grpcbridge) outside this package whose underlying
// writes are synchronous.
func NewSettledAck(err error) Ack { return resolvedAck(err) }

// AckFuture is the user-facing handle returned by CallContext.SendResponse:
// an alias of Ack kept as a distinct name at the API boundary to match
// SPEC_FULL.md §4.3's send_response(msg, metadata) -> AckFuture.
type AckFuture = Ack

// ResponseWriter is the transport-supplied sink to which a Handler writes
// serialized response parts. Implementations must tolerate concurrent calls
// being effectively serialized by the Handler's execution context: a
// ResponseWriter never needs to lock against itself for ordering, but may do
// so if the underlying transport is shared.
type ResponseWriter interface {
	// SendMetadata sends response headers. flush forces an immediate flush.
	SendMetadata(h HeaderMap, flush bool) Ack
	// SendMessage sends one serialized response message.
	SendMessage(b []byte, meta MessageMetadata) Ack
	// SendEnd sends the terminal status and trailing metadata. It is always
	// an implicit flush point (SPEC_FULL.md §9).
	SendEnd(st Status, trailers HeaderMap) Ack
}
