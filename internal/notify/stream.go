package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultHeartbeatInterval keeps intermediary proxies from closing idle streams.
const DefaultHeartbeatInterval = 25 * time.Second

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// StreamOptions configures ServeStream.
type StreamOptions struct {
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
}

// ServeStream writes server-sent events from sink to w until ctx is done, the
// sink is closed, or a write fails. A failed write, heartbeat included, means
// the connection is dead and is returned as an error so the caller can release
// the registration.
func ServeStream(ctx context.Context, w http.ResponseWriter, sink *StreamSink, opts StreamOptions) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	write := func(frame []byte) error {
		if err := rc.SetWriteDeadline(time.Now().Add(opts.WriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		if _, err := w.Write(frame); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := write(controlFrame(TypeConnected)); err != nil {
		return fmt.Errorf("write connected: %w", err)
	}

	ticker := time.NewTicker(opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sink.Done():
			return nil
		case frame := <-sink.Frames():
			if err := write(frame); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		case <-ticker.C:
			if err := write(controlFrame(TypeHeartbeat)); err != nil {
				return fmt.Errorf("write heartbeat: %w", err)
			}
		}
	}
}
