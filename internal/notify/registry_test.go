package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBroadcastReachesRegisteredConnection(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	h1 := &recordingSink{}
	deregister := r.Register("u1", h1)
	defer deregister()

	d := r.Broadcast(context.Background(), "u1", Event{Type: "TEST", Title: "T", Message: "M"})

	assert.Equal(t, Delivery{Attempted: 1, Delivered: 1}, d)
	events := h1.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventType("TEST"), events[0].Type)
	assert.Equal(t, "T", events[0].Title)
	assert.Equal(t, "M", events[0].Message)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestRegistryDeregisteredConnectionReceivesNothing(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	h1 := &recordingSink{}
	deregister := r.Register("u1", h1)
	deregister()

	d := r.Broadcast(context.Background(), "u1", Event{Type: "TEST", Title: "T", Message: "M"})

	assert.Zero(t, d)
	assert.Zero(t, h1.count())
	assert.Zero(t, r.CountConnections())
	assert.Zero(t, r.Recipients())
}

func TestRegistryFanOutToAllConnectionsOfRecipient(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	h1, h2 := &recordingSink{}, &recordingSink{}
	defer r.Register("u2", h1)()
	defer r.Register("u2", h2)()

	r.Broadcast(context.Background(), "u2", Event{Type: "TEST", Message: "both"})

	e1, e2 := h1.events(t), h2.events(t)
	require.Len(t, e1, 1)
	require.Len(t, e2, 1)
	assert.Equal(t, e1[0], e2[0])
}

func TestRegistryBroadcastIsScopedToRecipient(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	a, b := &recordingSink{}, &recordingSink{}
	defer r.Register("a", a)()
	defer r.Register("b", b)()

	r.Broadcast(context.Background(), "a", Event{Type: "TEST"})

	assert.Equal(t, 1, a.count())
	assert.Zero(t, b.count())
}

func TestRegistryBroadcastToAbsentRecipientIsNoop(t *testing.T) {
	r := NewRegistry(testLogger(), KindVerificationStatus, 0)
	assert.NotPanics(t, func() {
		d := r.Broadcast(context.Background(), "u3", Event{Type: TypeVerificationStatus})
		assert.Zero(t, d)
	})
	assert.Zero(t, r.Recipients())
}

func TestRegistryDeregisterIsIdempotent(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	keep := &recordingSink{}
	defer r.Register("u1", keep)()
	deregister := r.Register("u1", &recordingSink{})
	require.Equal(t, 2, r.CountConnections())

	deregister()
	deregister()

	assert.Equal(t, 1, r.CountConnections())
	assert.Equal(t, 1, r.Recipients())
	r.Broadcast(context.Background(), "u1", Event{Type: "TEST"})
	assert.Equal(t, 1, keep.count())
}

func TestRegistryPrunesRecipientOnLastDeregister(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	d1 := r.Register("u1", &recordingSink{})
	d2 := r.Register("u1", &recordingSink{})
	assert.Equal(t, 1, r.Recipients())

	d1()
	assert.Equal(t, 1, r.Recipients())
	d2()
	assert.Zero(t, r.Recipients())
	r.mu.RLock()
	_, ok := r.conns["u1"]
	r.mu.RUnlock()
	assert.False(t, ok)
}

func TestRegistryFailedWriteDoesNotStopOtherConnections(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	bad, good := failingSink(), &recordingSink{}
	defer r.Register("u1", bad)()
	defer r.Register("u1", good)()

	d := r.Broadcast(context.Background(), "u1", Event{Type: "TEST"})

	assert.Equal(t, Delivery{Attempted: 2, Delivered: 1, Failed: 1}, d)
	assert.Equal(t, 1, good.count())
}

func TestRegistryIgnoresEmptyRecipient(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	deregister := r.Register("  ", &recordingSink{})
	deregister()
	assert.Zero(t, r.CountConnections())
}

func TestRegistryCancelledCallerContextStillDelivers(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	sink := NewStreamSink(4)
	defer r.Register("u1", sink)()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := r.Broadcast(ctx, "u1", Event{Type: "TEST"})

	assert.Equal(t, 1, d.Delivered)
}

func TestRegistrySlowSinkDoesNotBlockBroadcast(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 50*time.Millisecond)
	slow := SinkFunc(func(ctx context.Context, _ []byte) error {
		<-ctx.Done()
		return ctx.Err()
	})
	fast := &recordingSink{}
	defer r.Register("u1", slow)()
	defer r.Register("u1", fast)()

	start := time.Now()
	d := r.Broadcast(context.Background(), "u1", Event{Type: "TEST"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, d.Failed)
	assert.Equal(t, 1, fast.count())
}

func TestRegistryNoWriteAfterDeregisterReturns(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	var (
		mu     sync.Mutex
		closed bool
		late   int
	)
	sink := SinkFunc(func(context.Context, []byte) error {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			late++
		}
		return nil
	})
	deregister := r.Register("u1", sink)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.Broadcast(context.Background(), "u1", Event{Type: "TEST"})
		}
	}()
	time.Sleep(time.Millisecond)
	deregister()
	mu.Lock()
	closed = true
	mu.Unlock()
	wg.Wait()

	assert.Zero(t, late)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry(testLogger(), KindUserNotification, 0)
	const workers = 16
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(2)
		recipient := fmt.Sprintf("u%d", w%4)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				deregister := r.Register(recipient, &recordingSink{})
				if i%3 == 0 {
					deregister()
				}
				deregister()
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				r.Broadcast(context.Background(), recipient, Event{Type: "TEST"})
				_ = r.CountConnections()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent register/broadcast did not finish")
	}
	assert.Zero(t, r.CountConnections())
	assert.Zero(t, r.Recipients())
}
