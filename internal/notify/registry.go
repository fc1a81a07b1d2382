package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultWriteTimeout bounds a single send to one connection.
const DefaultWriteTimeout = 2 * time.Second

// Conn is one open push stream bound to a recipient on one channel kind.
type Conn struct {
	ID        string
	Recipient string
	Kind      Kind

	sink Sink

	// mu orders sends against deregistration: a send holds the read side
	// while it checks closed, so no write starts after close returns.
	mu     sync.RWMutex
	closed bool
}

func (c *Conn) send(ctx context.Context, frame []byte) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false, nil
	}
	return true, c.sink.Send(ctx, frame)
}

func (c *Conn) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Delivery summarizes one broadcast. It is diagnostic only.
type Delivery struct {
	Attempted int
	Delivered int
	Failed    int
}

// Registry tracks live connections per recipient for one channel kind.
type Registry struct {
	kind         Kind
	writeTimeout time.Duration
	logger       *slog.Logger

	mu    sync.RWMutex
	conns map[string]map[string]*Conn
}

// NewRegistry creates an empty registry for kind.
func NewRegistry(log *slog.Logger, kind Kind, writeTimeout time.Duration) *Registry {
	if log == nil {
		log = slog.Default()
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Registry{
		kind:         kind,
		writeTimeout: writeTimeout,
		logger:       log.With(slog.String("component", "notify_registry"), slog.String("kind", kind.String())),
		conns:        map[string]map[string]*Conn{},
	}
}

// Kind returns the channel kind served by the registry.
func (r *Registry) Kind() Kind { return r.kind }

// Register adds sink as a new connection for recipient. The returned function
// removes it again; calling it more than once is a no-op.
func (r *Registry) Register(recipient string, sink Sink) func() {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || sink == nil {
		r.logger.Debug("ignoring registration without recipient or sink")
		return func() {}
	}
	conn := &Conn{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Kind:      r.kind,
		sink:      sink,
	}

	r.mu.Lock()
	set, ok := r.conns[recipient]
	if !ok {
		set = map[string]*Conn{}
		r.conns[recipient] = set
	}
	set[conn.ID] = conn
	r.mu.Unlock()

	r.logger.Debug("connection registered", slog.String("recipient", recipient), slog.String("conn_id", conn.ID))

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if set := r.conns[recipient]; set != nil {
				delete(set, conn.ID)
				if len(set) == 0 {
					delete(r.conns, recipient)
				}
			}
			r.mu.Unlock()
			conn.close()
			r.logger.Debug("connection deregistered", slog.String("recipient", recipient), slog.String("conn_id", conn.ID))
		})
	}
}

// Broadcast serializes event once and sends it to every open connection of
// recipient. Failures are logged per connection and never returned.
func (r *Registry) Broadcast(ctx context.Context, recipient string, event Event) Delivery {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return Delivery{}
	}
	targets := r.snapshot(recipient)
	if len(targets) == 0 {
		return Delivery{}
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	frame, err := EncodeFrame(event)
	if err != nil {
		r.logger.Error("encode event failed", slog.String("recipient", recipient), slog.Any("error", err))
		return Delivery{}
	}
	return r.deliver(ctx, targets, frame)
}

func (r *Registry) deliver(ctx context.Context, targets []*Conn, frame []byte) Delivery {
	if ctx == nil {
		ctx = context.Background()
	}
	// The triggering request may finish before delivery does.
	base := context.WithoutCancel(ctx)

	var d Delivery
	for _, conn := range targets {
		writeCtx, cancel := context.WithTimeout(base, r.writeTimeout)
		open, err := conn.send(writeCtx, frame)
		cancel()
		if !open {
			continue
		}
		d.Attempted++
		if err != nil {
			d.Failed++
			r.logger.Warn("delivery failed",
				slog.String("recipient", conn.Recipient),
				slog.String("conn_id", conn.ID),
				slog.Any("error", err),
			)
			continue
		}
		d.Delivered++
	}
	return d
}

func (r *Registry) snapshot(recipient string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[recipient]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for _, conn := range set {
		out = append(out, conn)
	}
	return out
}

// CountConnections returns the number of tracked connections.
func (r *Registry) CountConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, set := range r.conns {
		total += len(set)
	}
	return total
}

// Recipients returns the number of recipients with at least one connection.
func (r *Registry) Recipients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
