package rpccore

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
)

// MessageMetadata carries per-message outbound hints. Compress is advisory
// (honored only when server compression is enabled); Flush forces the
// transport to flush after the write. End always flushes unconditionally at
// the ResponseWriter contract level (SPEC_FULL.md §9), so Handler never sets
// Flush on the MessageMetadata it synthesizes for an End-adjacent message.
type MessageMetadata struct {
	Compress bool
	Flush    bool
}

// Serializer converts a typed value to wire bytes.
type Serializer[T any] interface {
	Serialize(v T) ([]byte, error)
}

// Deserializer converts wire bytes to a typed value.
type Deserializer[T any] interface {
	Deserialize(b []byte) (T, error)
}

// Codec bundles a Serializer and Deserializer for one message type, the
// shape every RegistrableService method registration supplies to Router.
type Codec[T any] interface {
	Serializer[T]
	Deserializer[T]
}

// ProtoCodec is the default Codec, backed by google.golang.org/protobuf, the
// wire format every repo in the retrieved pack treats as the gRPC default.
type ProtoCodec[T proto.Message] struct {
	// New constructs a new, empty T for Deserialize to unmarshal into.
	// Required because a generic T constrained only by proto.Message cannot
	// otherwise be instantiated.
	New func() T
}

func (c ProtoCodec[T]) Serialize(v T) ([]byte, error) {
	b, err := proto.Marshal(v)
	if err != nil {
		return nil, &CodecError{Op: "serialize", Err: err}
	}
	return b, nil
}

func (c ProtoCodec[T]) Deserialize(b []byte) (T, error) {
	v := c.New()
	if err := proto.Unmarshal(b, v); err != nil {
		var zero T
		return zero, &CodecError{Op: "deserialize", Err: err}
	}
	return v, nil
}

// checkMessageSize enforces max_receive_message_length (SPEC_FULL.md §6).
// limit of 0 means unbounded.
func checkMessageSize(b []byte, limit int) error {
	if limit > 0 && len(b) > limit {
		return &LibraryError{
			Detail: fmt.Sprintf("received message of %d bytes exceeds limit of %d", len(b), limit),
			Code:   codes.ResourceExhausted,
		}
	}
	return nil
}
