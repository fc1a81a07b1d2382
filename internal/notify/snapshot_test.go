package notify

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSnapshotJobLogsCounts(t *testing.T) {
	var out syncBuffer
	log := slog.New(slog.NewTextHandler(&out, nil))
	d := NewDispatcher(testLogger(), nil, Options{})
	defer d.RegisterAdminConnection("a1", &recordingSink{})()
	defer d.RegisterAdminConnection("a1", &recordingSink{})()

	job, err := NewSnapshotJob(log, d, "")
	require.NoError(t, err)
	job.Run()

	text := out.String()
	assert.Contains(t, text, "connection snapshot")
	assert.Contains(t, text, "admin_broadcast.connections=2")
	assert.Contains(t, text, "admin_broadcast.recipients=1")
	assert.Contains(t, text, "user_notification.connections=0")
}

func TestSnapshotJobRejectsBadSchedule(t *testing.T) {
	_, err := NewSnapshotJob(testLogger(), NewDispatcher(testLogger(), nil, Options{}), "every tuesday")
	assert.Error(t, err)
}

func TestSnapshotJobStartStop(t *testing.T) {
	job, err := NewSnapshotJob(testLogger(), NewDispatcher(testLogger(), nil, Options{}), "@every 1h")
	require.NoError(t, err)
	job.Start()
	job.Stop()
}
