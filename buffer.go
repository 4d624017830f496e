package rpccore

import "google.golang.org/grpc/codes"

// requestBuffer holds inbound Message/End parts that arrive before a
// client-/bidi-streaming Handler's observer future resolves (SPEC_FULL.md
// §4.5.2/§5). It is a plain ordered slice, the same shape as the teacher's
// own HalfStream.buf []any, rather than a generic queue type: the buffering
// need here is exactly "append in arrival order, drain once."
type requestBuffer struct {
	limit int // 0 = unbounded (SPEC_FULL.md §9 open-question decision)
	items []RequestPart
}

// push appends part, or fails with a RESOURCE_EXHAUSTED LibraryError if a
// configured request_buffer_limit would be exceeded.
func (b *requestBuffer) push(part RequestPart) error {
	if b.limit > 0 && len(b.items) >= b.limit {
		return &LibraryError{
			Detail: "request_buffer_limit exceeded",
			Code:   codes.ResourceExhausted,
		}
	}
	b.items = append(b.items, part)
	return nil
}

// drain returns every buffered part in arrival order and clears the buffer.
func (b *requestBuffer) drain() []RequestPart {
	items := b.items
	b.items = nil
	return items
}
