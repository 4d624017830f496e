package rpccore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestStatusFromError(t *testing.T) {
	t.Run("nil is OK", func(t *testing.T) {
		assert.Equal(t, OKStatus, StatusFromError(nil))
	})

	t.Run("status-shaped error is projected", func(t *testing.T) {
		src := status.Error(codes.NotFound, "missing")
		st := StatusFromError(src)
		assert.Equal(t, codes.NotFound, st.Code)
		assert.Equal(t, "missing", st.Message)
		assert.Equal(t, src, st.Cause)
	})

	t.Run("plain error falls back to Internal", func(t *testing.T) {
		src := errors.New("boom")
		st := StatusFromError(src)
		assert.Equal(t, codes.Internal, st.Code)
		assert.Equal(t, "boom", st.Message)
	})
}

func TestStatusErrRoundTrip(t *testing.T) {
	assert.Nil(t, OKStatus.Err())

	st := Status{Code: codes.PermissionDenied, Message: "nope"}
	err := st.Err()
	require.Error(t, err)

	got, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.PermissionDenied, got.Code())
	assert.Equal(t, "nope", got.Message())
}

func TestTaxonomyDefaultCodes(t *testing.T) {
	cases := []struct {
		name string
		err  taxonomyError
		code codes.Code
	}{
		{"protocol violation", &ProtocolViolationError{Detail: "x"}, codes.Internal},
		{"cardinality violation", &StreamCardinalityViolationError{Detail: "x"}, codes.Internal},
		{"codec error", &CodecError{Op: "serialize", Err: errors.New("x")}, codes.Internal},
		{"library error default", &LibraryError{Detail: "x"}, codes.Internal},
		{"library error explicit code", &LibraryError{Detail: "x", Code: codes.ResourceExhausted}, codes.ResourceExhausted},
		{"observer error wraps status", &ObserverError{Err: status.Error(codes.Aborted, "x")}, codes.Aborted},
		{"observer error wraps plain", &ObserverError{Err: errors.New("x")}, codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.defaultCode())
		})
	}
}

func TestCodecErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &CodecError{Op: "deserialize", Err: cause}
	assert.ErrorIs(t, err, cause)
}

type transformingDelegate struct {
	NopErrorDelegate
	libSt  Status
	libTr  metadata.MD
	libOK  bool
	obsSt  Status
	obsOK  bool
	libObs int
	obsObs int
}

func (d *transformingDelegate) TransformLibraryError(error) (Status, metadata.MD, bool) {
	return d.libSt, d.libTr, d.libOK
}
func (d *transformingDelegate) TransformObserverError(error) (Status, metadata.MD, bool) {
	return d.obsSt, nil, d.obsOK
}
func (d *transformingDelegate) ObserveLibraryError(error)  { d.libObs++ }
func (d *transformingDelegate) ObserveObserverError(error) { d.obsObs++ }

func TestErrorProcessorResolutionOrder(t *testing.T) {
	t.Run("delegate transform wins", func(t *testing.T) {
		d := &transformingDelegate{libSt: Status{Code: codes.Unavailable, Message: "retry"}, libOK: true}
		p := ErrorProcessor{Delegate: d}
		st, _ := p.ProcessLibraryError(errors.New("x"), nil)
		assert.Equal(t, codes.Unavailable, st.Code)
		assert.Equal(t, 1, d.libObs)
	})

	t.Run("taxonomy default used when delegate declines", func(t *testing.T) {
		p := ErrorProcessor{Delegate: &transformingDelegate{}}
		st, _ := p.ProcessLibraryError(&LibraryError{Detail: "x", Code: codes.ResourceExhausted}, nil)
		assert.Equal(t, codes.ResourceExhausted, st.Code)
	})

	t.Run("status projection used for non-taxonomy status error", func(t *testing.T) {
		p := ErrorProcessor{}
		st, _ := p.ProcessObserverError(status.Error(codes.Canceled, "gone"), nil)
		assert.Equal(t, codes.Canceled, st.Code)
	})

	t.Run("plain error falls back to Internal", func(t *testing.T) {
		p := ErrorProcessor{}
		st, _ := p.ProcessObserverError(errors.New("mystery"), nil)
		assert.Equal(t, codes.Internal, st.Code)
	})

	t.Run("context trailers take precedence over delegate trailers", func(t *testing.T) {
		d := &transformingDelegate{libOK: true, libTr: metadata.MD{"k": []string{"delegate"}}}
		p := ErrorProcessor{Delegate: d}
		ctxTrailers := metadata.MD{"k": []string{"ctx"}}
		_, trailers := p.ProcessLibraryError(errors.New("x"), ctxTrailers)
		assert.Equal(t, []string{"ctx"}, trailers["k"])
	})
}
