package rpccore

import "github.com/joeycumines/go-eventloop"

// eventLoopAdapter satisfies Loop by wrapping a *eventloop.Loop: the Loop
// interface here takes a bare func(), while eventloop.Loop.Submit takes an
// eventloop.Task{Runnable: ...}, so production callers need this thin
// adapter rather than being able to pass a *eventloop.Loop directly.
type eventLoopAdapter struct{ loop *eventloop.Loop }

// NewEventLoop constructs the default production Loop, backed by
// github.com/joeycumines/go-eventloop.
func NewEventLoop() (Loop, error) {
	l, err := eventloop.New()
	if err != nil {
		return nil, err
	}
	return eventLoopAdapter{loop: l}, nil
}

func (a eventLoopAdapter) Submit(fn func()) error {
	return a.loop.Submit(eventloop.Task{Runnable: fn})
}

func (a eventLoopAdapter) SubmitInternal(fn func()) error {
	return a.loop.SubmitInternal(eventloop.Task{Runnable: fn})
}
