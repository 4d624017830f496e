package rpccore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamStateRequestAxis(t *testing.T) {
	var s streamState

	assert.False(t, s.receiveMessage(), "message before headers is illegal")
	assert.False(t, s.receiveEnd(), "end before headers is illegal")

	assert.True(t, s.receiveHeaders())
	assert.False(t, s.receiveHeaders(), "headers twice is illegal")

	assert.True(t, s.receiveMessage())
	assert.True(t, s.receiveMessage(), "repeated messages are legal while open")

	assert.True(t, s.receiveEnd())
	assert.True(t, s.requestTerminal())

	assert.False(t, s.receiveMessage(), "message after end is illegal")
	assert.False(t, s.receiveEnd(), "end twice is illegal")
}

func TestStreamStateResponseAxis(t *testing.T) {
	var s streamState

	assert.False(t, s.sendMessage(), "message before headers is illegal")

	assert.True(t, s.sendHeaders())
	assert.False(t, s.sendHeaders(), "headers twice is illegal")

	assert.True(t, s.sendMessage())
	assert.True(t, s.sendMessage(), "repeated messages are legal while open")

	assert.True(t, s.sendEnd())
	assert.True(t, s.responseTerminal())

	assert.False(t, s.sendMessage(), "message after end is illegal")
	assert.False(t, s.sendEnd(), "end twice is illegal")
}

func TestStreamStateSendEndWithoutHeaders(t *testing.T) {
	var s streamState
	assert.True(t, s.sendEnd(), "end is legal directly from RespIdle (e.g. immediate rejection)")
	assert.True(t, s.responseTerminal())
}

// TestStreamStateAxesAreIndependent pairs every single request-axis step with
// every single response-axis step, each taken from the zero state, and
// asserts that running them on one shared state gives the same legality as
// running them on separate states.
func TestStreamStateAxesAreIndependent(t *testing.T) {
	type step struct {
		name string
		do   func(s *streamState) bool
	}
	reqSteps := []step{
		{"receiveHeaders", (*streamState).receiveHeaders},
		{"receiveMessage", (*streamState).receiveMessage},
		{"receiveEnd", (*streamState).receiveEnd},
	}
	respSteps := []step{
		{"sendHeaders", (*streamState).sendHeaders},
		{"sendMessage", (*streamState).sendMessage},
		{"sendEnd", (*streamState).sendEnd},
	}

	for _, rq := range reqSteps {
		for _, rs := range respSteps {
			t.Run(rq.name+"_then_"+rs.name, func(t *testing.T) {
				var a, b streamState

				okA := rq.do(&a)
				okB := rs.do(&b)

				// interleaved: request step first, then response step, on a
				// shared state, must agree with running them independently.
				var combined streamState
				okReqCombined := rq.do(&combined)
				okRespCombined := rs.do(&combined)

				assert.Equal(t, okA, okReqCombined, "request-axis legality must not depend on response-axis activity")
				assert.Equal(t, okB, okRespCombined, "response-axis legality must not depend on request-axis activity")
			})
		}
	}
}
