package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (s *recordingSink) Send(_ context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) events(t *testing.T) []Event {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.frames))
	for _, f := range s.frames {
		out = append(out, decodeFrame(t, f))
	}
	return out
}

func failingSink() *recordingSink {
	return &recordingSink{err: errors.New("transport closed")}
}

func decodeFrame(t *testing.T, frame []byte) Event {
	t.Helper()
	text := string(frame)
	require.True(t, strings.HasPrefix(text, "data: "), "frame prefix: %q", text)
	require.True(t, strings.HasSuffix(text, "\n\n"), "frame suffix: %q", text)
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(text, "data: "), "\n\n")), &ev))
	return ev
}

type staticDirectory struct {
	mu    sync.Mutex
	ids   []string
	err   error
	calls int
}

func (d *staticDirectory) ListUsersByRole(_ context.Context, role string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	if role != AdminRole {
		return nil, nil
	}
	return append([]string(nil), d.ids...), nil
}

func (d *staticDirectory) set(ids ...string) {
	d.mu.Lock()
	d.ids = ids
	d.mu.Unlock()
}
