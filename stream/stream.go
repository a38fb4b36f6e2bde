// Package stream carries model output from stage invocations to live
// observers. A Sink receives text deltas in emission order; the Aggregator
// drains a model response stream into a sink while assembling the complete
// stage text.
package stream

import (
	"context"
	"io"
	"strings"

	"github.com/hupe1980/archpipe/model"
)

// Sink receives text deltas as a stage produces them. Write is called from a
// single goroutine per run; implementations need not be concurrency-safe
// unless shared across pipelines.
type Sink interface {
	Write(delta string) error
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(delta string) error

// Write implements Sink.
func (f SinkFunc) Write(delta string) error { return f(delta) }

// Discard drops every delta. Useful when only the aggregated stage results
// matter.
var Discard Sink = SinkFunc(func(string) error { return nil })

// NewWriterSink forwards deltas to w, e.g. os.Stdout for console streaming.
func NewWriterSink(w io.Writer) Sink {
	return SinkFunc(func(delta string) error {
		_, err := io.WriteString(w, delta)
		return err
	})
}

// Aggregator drains one model invocation at a time, forwarding text deltas
// to its sink and returning the assembled text.
type Aggregator struct {
	sink Sink
}

// NewAggregator returns an aggregator writing to sink. A nil sink discards
// deltas.
func NewAggregator(sink Sink) *Aggregator {
	if sink == nil {
		sink = Discard
	}
	return &Aggregator{sink: sink}
}

// Consume drains respCh until it closes and returns the concatenated text.
//
// Partial responses carry incremental deltas and are always forwarded. A
// final response repeats the full text of its turn, so its text counts only
// when no partial preceded it since the last final; that way providers that
// stream deltas and providers that answer with one complete message both
// aggregate to the same string. Errors from errCh, a failed sink write or
// context cancellation abort consumption and surface to the caller.
func (a *Aggregator) Consume(ctx context.Context, respCh <-chan model.Response, errCh <-chan error) (string, error) {
	var b strings.Builder
	sawPartial := false

	for {
		select {
		case <-ctx.Done():
			return b.String(), ctx.Err()
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return b.String(), err
			}
		case resp, ok := <-respCh:
			if !ok {
				// A provider fault may still be buffered on the error
				// channel when the response channel closes.
				if errCh != nil {
					for err := range errCh {
						if err != nil {
							return b.String(), err
						}
					}
				}
				return b.String(), nil
			}
			text := resp.Content.Text()
			if resp.Partial {
				sawPartial = true
			} else if sawPartial {
				// The final repeats text already streamed as deltas.
				sawPartial = false
				continue
			}
			if text == "" {
				continue
			}
			b.WriteString(text)
			if err := a.sink.Write(text); err != nil {
				return b.String(), err
			}
		}
	}
}
