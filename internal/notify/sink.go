package notify

import (
	"context"
	"errors"
	"sync"
)

// DefaultBufferSize is the default per-connection frame queue length.
const DefaultBufferSize = 32

var (
	// ErrSinkClosed is returned when sending to a sink whose stream has ended.
	ErrSinkClosed = errors.New("sink closed")
	// ErrSinkFull is returned when a slow client has not drained its queue.
	ErrSinkFull = errors.New("sink buffer full")
)

// Sink is the write side of one open push stream. Send must not block beyond
// the lifetime of ctx.
type Sink interface {
	Send(ctx context.Context, frame []byte) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, frame []byte) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, frame []byte) error { return f(ctx, frame) }

// StreamSink queues frames for a single stream writer goroutine. Send never
// blocks: frames are dropped with ErrSinkFull when the queue is full.
type StreamSink struct {
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewStreamSink creates a sink with the given queue length.
func NewStreamSink(buffer int) *StreamSink {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &StreamSink{
		frames: make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// Send enqueues one frame.
func (s *StreamSink) Send(ctx context.Context, frame []byte) error {
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}
	select {
	case s.frames <- frame:
		return nil
	case <-s.done:
		return ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSinkFull
	}
}

// Frames returns the queue drained by the stream writer.
func (s *StreamSink) Frames() <-chan []byte { return s.frames }

// Done is closed once the sink is closed.
func (s *StreamSink) Done() <-chan struct{} { return s.done }

// Close marks the sink closed. Safe to call more than once.
func (s *StreamSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
