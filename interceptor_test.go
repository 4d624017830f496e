package rpccore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingInterceptor appends a tag to a shared log on every part it sees,
// on both edges, then forwards unchanged.
type recordingInterceptor struct {
	tag string
	log *[]string
}

func (r recordingInterceptor) OnRequestPart(part RequestPart, next func(RequestPart)) {
	*r.log = append(*r.log, r.tag+":req")
	next(part)
}

func (r recordingInterceptor) OnResponsePart(part ResponsePart, ack Ack, next func(ResponsePart, Ack)) {
	*r.log = append(*r.log, r.tag+":resp")
	next(part, ack)
}

func TestPipelineOnionOrdering(t *testing.T) {
	var log []string
	p := NewPipeline([]Interceptor{
		recordingInterceptor{tag: "A", log: &log},
		recordingInterceptor{tag: "B", log: &log},
	})

	var finalReq RequestPart
	p.SetFinal(func(part RequestPart) { finalReq = part })

	var sinkPart ResponsePart
	p.SetSink(func(part ResponsePart, ack Ack) {
		sinkPart = part
		ack.settle(nil)
	})

	p.DeliverRequest(RequestPart{Kind: RequestMessage, Message: "hello"})
	assert.Equal(t, "hello", finalReq.Message)
	assert.Equal(t, []string{"A:req", "B:req"}, log, "request parts flow first-registered to last-registered")

	log = nil
	ack := newAck()
	p.DeliverResponse(ResponsePart{Kind: ResponseMessage, Message: "world"}, ack)
	assert.Equal(t, "world", sinkPart.Message)
	assert.Equal(t, []string{"B:resp", "A:resp"}, log, "response parts flow last-registered to first-registered")

	err := ack.Wait(context.Background())
	assert.NoError(t, err)
}

func TestPipelineNopInterceptorPassesThrough(t *testing.T) {
	p := NewPipeline([]Interceptor{NopInterceptor{}})

	var gotReq RequestPart
	p.SetFinal(func(part RequestPart) { gotReq = part })
	p.DeliverRequest(RequestPart{Kind: RequestEnd})
	assert.Equal(t, RequestEnd, gotReq.Kind)

	var gotResp ResponsePart
	p.SetSink(func(part ResponsePart, ack Ack) {
		gotResp = part
		ack.settle(nil)
	})
	ack := newAck()
	p.DeliverResponse(ResponsePart{Kind: ResponseEnd}, ack)
	assert.Equal(t, ResponseEnd, gotResp.Kind)
}

func TestPipelineInterceptorCanShortCircuit(t *testing.T) {
	calledFinal := false

	p := NewPipeline([]Interceptor{blockingInterceptor{}})
	p.SetFinal(func(part RequestPart) { calledFinal = true })

	p.DeliverRequest(RequestPart{Kind: RequestMessage})
	assert.False(t, calledFinal, "an interceptor that doesn't call next must stop the chain")
}

type blockingInterceptor struct{ NopInterceptor }

func (blockingInterceptor) OnRequestPart(part RequestPart, next func(RequestPart)) {
	// deliberately never calls next
}

func TestPipelineDeliverResponseBeforeSinkWiredFailsTheAck(t *testing.T) {
	p := NewPipeline(nil)
	ack := newAck()
	p.DeliverResponse(ResponsePart{Kind: ResponseEnd}, ack)
	err := ack.Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyComplete)
}

func TestPipelineDeliverRequestBeforeFinalWiredIsANoop(t *testing.T) {
	p := NewPipeline(nil)
	// must not panic
	p.DeliverRequest(RequestPart{Kind: RequestMetadata})
}

func TestPipelineCloseDropsClosures(t *testing.T) {
	p := NewPipeline([]Interceptor{NopInterceptor{}})
	calledFinal := false
	p.SetFinal(func(RequestPart) { calledFinal = true })
	p.SetSink(func(ResponsePart, Ack) {})

	p.Close()

	p.DeliverRequest(RequestPart{Kind: RequestMetadata})
	assert.False(t, calledFinal)

	ack := newAck()
	p.DeliverResponse(ResponsePart{Kind: ResponseMetadata}, ack)
	err := ack.Wait(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyComplete)
}

func TestRequestBufferPushAndDrain(t *testing.T) {
	var b requestBuffer
	require.NoError(t, b.push(RequestPart{Kind: RequestMessage, Message: 1}))
	require.NoError(t, b.push(RequestPart{Kind: RequestMessage, Message: 2}))

	items := b.drain()
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Message)
	assert.Equal(t, 2, items[1].Message)

	assert.Empty(t, b.drain(), "drain clears the buffer")
}

func TestRequestBufferLimitEnforced(t *testing.T) {
	b := requestBuffer{limit: 1}
	require.NoError(t, b.push(RequestPart{Kind: RequestMessage}))

	err := b.push(RequestPart{Kind: RequestMessage})
	require.Error(t, err)
	var le *LibraryError
	require.ErrorAs(t, err, &le)
}
