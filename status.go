package rpccore

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Code is the gRPC status code set. It is google.golang.org/grpc/codes.Code
// directly rather than a redeclared enum.
type Code = codes.Code

// Status is the terminal outcome of a call: a code, an optional message, and
// an optional underlying cause retained for logging (never serialized to the
// wire).
type Status struct {
	Code    Code
	Message string
	Cause   error
}

// OKStatus is the zero-cost success status.
var OKStatus = Status{Code: codes.OK}

// NewStatus builds a Status with no cause.
func NewStatus(code Code, message string) Status {
	return Status{Code: code, Message: message}
}

// StatusFromError builds a Status from an arbitrary error, preferring a
// status projection (an error satisfying the same interface grpc/status.FromError
// checks for) and falling back to INTERNAL.
func StatusFromError(err error) Status {
	if err == nil {
		return OKStatus
	}
	if st, ok := status.FromError(err); ok {
		return Status{Code: st.Code(), Message: st.Message(), Cause: err}
	}
	return Status{Code: codes.Internal, Message: err.Error(), Cause: err}
}

// GRPCStatus lets a Status satisfy the interface google.golang.org/grpc/status.FromError
// looks for, so a Status can itself be returned/wrapped as an error.
func (s Status) GRPCStatus() *status.Status {
	return status.New(s.Code, s.Message)
}

// Err returns s as an error, or nil if s.Code is codes.OK.
func (s Status) Err() error {
	if s.Code == codes.OK {
		return nil
	}
	return statusError{s}
}

type statusError struct{ s Status }

func (e statusError) Error() string {
	if e.s.Message == "" {
		return fmt.Sprintf("rpccore: status %s", e.s.Code)
	}
	return fmt.Sprintf("rpccore: status %s: %s", e.s.Code, e.s.Message)
}

func (e statusError) GRPCStatus() *status.Status { return e.s.GRPCStatus() }

func (e statusError) Unwrap() error { return e.s.Cause }

// taxonomyError is satisfied by every member of the error taxonomy in
// SPEC_FULL.md §7; it lets ErrorProcessor resolve a default Status without a
// type switch over every concrete type.
type taxonomyError interface {
	error
	defaultCode() Code
}

// ProtocolViolationError reports an inbound part arriving out of the order
// StreamState permits (headers twice, a message before headers, and so on).
// It is never propagated to user code.
type ProtocolViolationError struct{ Detail string }

func (e *ProtocolViolationError) Error() string {
	return "rpccore: protocol violation: " + e.Detail
}
func (e *ProtocolViolationError) defaultCode() Code { return codes.Internal }

// StreamCardinalityViolationError reports the wrong number of messages for
// the handler's declared cardinality: a unary/server-streaming request that
// ends with no message. A second message on such a request is reported as a
// ProtocolViolationError instead.
type StreamCardinalityViolationError struct{ Detail string }

func (e *StreamCardinalityViolationError) Error() string {
	return "rpccore: stream cardinality violation: " + e.Detail
}
func (e *StreamCardinalityViolationError) defaultCode() Code { return codes.Internal }

// CodecError wraps a serialize/deserialize failure from a MessageCodec.
type CodecError struct {
	Op  string // "serialize" or "deserialize"
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("rpccore: codec %s failed: %v", e.Op, e.Err)
}
func (e *CodecError) defaultCode() Code { return codes.Internal }
func (e *CodecError) Unwrap() error     { return e.Err }

// LibraryError reports a failure originating in the runtime or transport
// itself, as opposed to user code. Code defaults to codes.Internal when left
// at the zero value (codes.OK); set it explicitly for taxonomy members that
// need a different default, e.g. codes.ResourceExhausted for an over-size
// message or an exceeded request_buffer_limit.
type LibraryError struct {
	Detail string
	Err    error
	Code   Code
}

func (e *LibraryError) Error() string {
	if e.Err != nil {
		return "rpccore: library error: " + e.Detail + ": " + e.Err.Error()
	}
	return "rpccore: library error: " + e.Detail
}
func (e *LibraryError) defaultCode() Code {
	if e.Code == codes.OK {
		return codes.Internal
	}
	return e.Code
}
func (e *LibraryError) Unwrap() error { return e.Err }

// ObserverError wraps an error raised by user code (a handler function or a
// stream observer).
type ObserverError struct{ Err error }

func (e *ObserverError) Error() string { return "rpccore: observer error: " + e.Err.Error() }
func (e *ObserverError) defaultCode() Code {
	return StatusFromError(e.Err).Code
}
func (e *ObserverError) Unwrap() error { return e.Err }

// ErrAlreadyComplete is returned on ack-futures for writes that arrive after
// the call has already emitted its terminal End. It is a recoverable, local
// condition, never surfaced on the wire.
var ErrAlreadyComplete = errors.New("rpccore: call already complete")

// ErrorDelegate is the user-supplied hook for transforming and observing
// errors, per SPEC_FULL.md §4.6 / §9. All methods have usable defaults via
// NopErrorDelegate; embedders only override what they need.
type ErrorDelegate interface {
	// TransformLibraryError may return a Status and optional trailers for an
	// error the runtime itself raised. Returning ok=false defers to the
	// error's own status projection, or INTERNAL.
	TransformLibraryError(err error) (st Status, trailers metadata.MD, ok bool)
	// TransformObserverError is the same hook for errors raised by user code.
	TransformObserverError(err error) (st Status, trailers metadata.MD, ok bool)
	// ObserveLibraryError is a side-channel notification, independent of
	// transformation, fired for every library error.
	ObserveLibraryError(err error)
	// ObserveObserverError is the observer-error analog of ObserveLibraryError.
	ObserveObserverError(err error)
}

// NopErrorDelegate is an ErrorDelegate whose methods are all no-ops /
// declines to transform. Embed it to implement only the methods you need.
type NopErrorDelegate struct{}

func (NopErrorDelegate) TransformLibraryError(error) (Status, metadata.MD, bool) {
	return Status{}, nil, false
}

func (NopErrorDelegate) TransformObserverError(error) (Status, metadata.MD, bool) {
	return Status{}, nil, false
}

func (NopErrorDelegate) ObserveLibraryError(error)  {}
func (NopErrorDelegate) ObserveObserverError(error) {}

// ErrorProcessor maps arbitrary errors to a (Status, trailers) pair,
// consulting an optional ErrorDelegate first. A zero-value ErrorProcessor is
// usable (no delegate).
type ErrorProcessor struct {
	Delegate ErrorDelegate
}

// ProcessLibraryError implements SPEC_FULL.md §4.6's process_library_error.
func (p ErrorProcessor) ProcessLibraryError(err error, ctxTrailers metadata.MD) (Status, metadata.MD) {
	if p.Delegate != nil {
		p.Delegate.ObserveLibraryError(err)
	}
	return p.resolve(err, ctxTrailers, true)
}

// ProcessObserverError implements SPEC_FULL.md §4.6's process_observer_error.
func (p ErrorProcessor) ProcessObserverError(err error, ctxTrailers metadata.MD) (Status, metadata.MD) {
	if p.Delegate != nil {
		p.Delegate.ObserveObserverError(err)
	}
	return p.resolve(err, ctxTrailers, false)
}

func (p ErrorProcessor) resolve(err error, ctxTrailers metadata.MD, library bool) (Status, metadata.MD) {
	if p.Delegate != nil {
		var (
			st         Status
			delTrailer metadata.MD
			ok         bool
		)
		if library {
			st, delTrailer, ok = p.Delegate.TransformLibraryError(err)
		} else {
			st, delTrailer, ok = p.Delegate.TransformObserverError(err)
		}
		if ok {
			// call-context trailers take precedence on key conflict.
			return st, mergeHeaders(delTrailer, ctxTrailers)
		}
	}
	var te taxonomyError
	if errors.As(err, &te) {
		return Status{Code: te.defaultCode(), Message: err.Error(), Cause: err}, ctxTrailers
	}
	if st, ok := status.FromError(err); ok {
		return Status{Code: st.Code(), Message: st.Message(), Cause: err}, ctxTrailers
	}
	return Status{Code: codes.Internal, Message: "processing error", Cause: err}, ctxTrailers
}
