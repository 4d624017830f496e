package rpccore

// RequestPartKind tags the variant of a RequestPart.
type RequestPartKind uint8

const (
	RequestMetadata RequestPartKind = iota
	RequestMessage
	RequestEnd
)

// RequestPart is the tagged union from SPEC_FULL.md §3: always arrives in
// order Metadata -> Message* -> End. Message carries the already-decoded
// value (of whatever concrete Req type the call's Handler was constructed
// with); the pipeline itself is untyped, the same way grpc-go's own
// interceptor chain operates on `any` request/response values and leaves
// the concrete type to the generated stub.
type RequestPart struct {
	Kind     RequestPartKind
	Metadata HeaderMap
	Message  any
}

// ResponsePartKind tags the variant of a ResponsePart.
type ResponsePartKind uint8

const (
	ResponseMetadata ResponsePartKind = iota
	ResponseMessage
	ResponseEnd
)

// ResponsePart is the tagged union from SPEC_FULL.md §3: must leave in order
// Metadata -> Message* -> End; exactly one End terminates the stream.
type ResponsePart struct {
	Kind        ResponsePartKind
	Metadata    HeaderMap
	Message     any
	MessageMeta MessageMetadata
	Status      Status
	Trailers    HeaderMap
}

// Interceptor is a middleware pair of functions observing/transforming
// request and response parts (SPEC_FULL.md §4.4). Every part carries its own
// acknowledgement handle on the response edge; an interceptor must forward
// or fail every ack exactly once.
type Interceptor interface {
	// OnRequestPart observes/transforms an inbound part before forwarding it
	// (or not) to next.
	OnRequestPart(part RequestPart, next func(RequestPart))
	// OnResponsePart observes/transforms an outbound part before forwarding
	// it (or not) to next. Dropping a part without acking it is a pipeline
	// bug; NopInterceptor always forwards.
	OnResponsePart(part ResponsePart, ack Ack, next func(part ResponsePart, ack Ack))
}

// NopInterceptor is a pass-through Interceptor. Embed it to implement only
// one edge.
type NopInterceptor struct{}

func (NopInterceptor) OnRequestPart(part RequestPart, next func(RequestPart)) { next(part) }

func (NopInterceptor) OnResponsePart(part ResponsePart, ack Ack, next func(ResponsePart, Ack)) {
	next(part, ack)
}

// Pipeline is the ordered chain of Interceptors between the transport and a
// Handler (SPEC_FULL.md §4.4). Request parts are driven first-registered to
// last-registered, ending at the Handler; response parts are driven in the
// opposite, onion-style order (last-registered first, closest to the
// Handler), ending at the transport's ResponseWriter. It does not enforce
// StreamState ordering itself — the Handler's state machine is authoritative
// — and it is dismantled (Close) once End has been delivered to the
// transport, to break any reference cycle between pipeline, handler, and
// context.
type Pipeline struct {
	interceptors []Interceptor
	requestIn    func(RequestPart)
	responseIn   func(ResponsePart, Ack)
}

// NewPipeline builds a Pipeline with no terminal consumers. SetFinal wires
// the consumer that receives request parts after they've passed through every
// interceptor; SetSink wires the one that receives response parts after the
// same. Until then either end is unwired, to support constructing the
// pipeline before the Handler that owns it.
func NewPipeline(interceptors []Interceptor) *Pipeline {
	p := &Pipeline{interceptors: interceptors}
	return p
}

// SetFinal wires the terminal request consumer (the Handler) and rebuilds
// the inbound chain.
func (p *Pipeline) SetFinal(final func(RequestPart)) {
	next := final
	for i := len(p.interceptors) - 1; i >= 0; i-- {
		ic := p.interceptors[i]
		prevNext := next
		next = func(part RequestPart) { ic.OnRequestPart(part, prevNext) }
	}
	p.requestIn = next
}

// SetSink wires the terminal response consumer (the transport's
// ResponseWriter, via a Handler-owned closure) and rebuilds the outbound
// chain.
func (p *Pipeline) SetSink(sink func(ResponsePart, Ack)) {
	next := sink
	for i := 0; i < len(p.interceptors); i++ {
		ic := p.interceptors[i]
		prevNext := next
		next = func(part ResponsePart, ack Ack) { ic.OnResponsePart(part, ack, prevNext) }
	}
	p.responseIn = next
}

// DeliverRequest pushes an inbound part into the chain.
func (p *Pipeline) DeliverRequest(part RequestPart) {
	if p.requestIn != nil {
		p.requestIn(part)
	}
}

// DeliverResponse pushes an outbound part into the chain.
func (p *Pipeline) DeliverResponse(part ResponsePart, ack Ack) {
	if p.responseIn != nil {
		p.responseIn(part, ack)
	} else {
		ack.settle(ErrAlreadyComplete)
	}
}

// Close dismantles the pipeline, dropping every closure (and, transitively,
// every interceptor and the Handler reference they closed over) so nothing
// keeps the call's object graph alive after End.
func (p *Pipeline) Close() {
	p.interceptors = nil
	p.requestIn = nil
	p.responseIn = nil
}
