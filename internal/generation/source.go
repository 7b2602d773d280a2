package generation

import (
	"context"
	"iter"
)

// Source produces the events for one generation request.
//
// The returned sequence is lazy, finite and may be ranged over once. Breaking
// out of the loop or cancelling ctx stops generation and releases upstream
// resources. Failures are delivered in-band as a StreamError, after which the
// sequence ends. A sequence contains at most one StreamError or StreamFinish.
type Source interface {
	Stream(ctx context.Context, req *Request) iter.Seq[Event]
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, req *Request) iter.Seq[Event]

// Stream calls f(ctx, req).
func (f SourceFunc) Stream(ctx context.Context, req *Request) iter.Seq[Event] {
	return f(ctx, req)
}

// Events returns a Source that replays the given events for every request.
// It stops early when ctx is cancelled.
func Events(events ...Event) Source {
	return SourceFunc(func(ctx context.Context, _ *Request) iter.Seq[Event] {
		return func(yield func(Event) bool) {
			for _, ev := range events {
				if ctx.Err() != nil {
					yield(StreamError{Err: ctx.Err()})
					return
				}
				if !yield(ev) {
					return
				}
			}
		}
	})
}
