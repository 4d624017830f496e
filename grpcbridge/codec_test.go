package grpcbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawCodecName(t *testing.T) {
	assert.Equal(t, "proto", rawCodec{}.Name())
}

func TestRawCodecMarshalUnmarshalRoundTrip(t *testing.T) {
	b, err := rawCodec{}.Marshal(&rawFrame{Data: []byte("payload")})
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), b)

	var got rawFrame
	require.NoError(t, rawCodec{}.Unmarshal([]byte("payload"), &got))
	assert.Equal(t, []byte("payload"), got.Data)
}

func TestRawCodecRejectsOtherTypes(t *testing.T) {
	_, err := rawCodec{}.Marshal("not a rawFrame")
	assert.ErrorIs(t, err, errUnsupportedRawFrame)

	err = rawCodec{}.Unmarshal([]byte("x"), new(string))
	assert.ErrorIs(t, err, errUnsupportedRawFrame)
}

func TestRawCodecUnmarshalCopiesData(t *testing.T) {
	src := []byte("mutate-me")
	var got rawFrame
	require.NoError(t, rawCodec{}.Unmarshal(src, &got))
	src[0] = 'X'
	assert.Equal(t, byte('m'), got.Data[0], "Unmarshal must copy, not alias, the input slice")
}
