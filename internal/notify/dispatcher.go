package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AdminRole is the directory role whose members receive admin broadcasts.
const AdminRole = "ADMIN"

// DefaultDirectoryTimeout bounds the admin lookup done per admin broadcast.
const DefaultDirectoryTimeout = 3 * time.Second

// AdminDirectory resolves the identities currently holding a role.
type AdminDirectory interface {
	ListUsersByRole(ctx context.Context, role string) ([]string, error)
}

// Notifier is the publish side used by business services.
type Notifier interface {
	BroadcastUserNotification(ctx context.Context, recipientID string, event Event)
	BroadcastVerificationStatus(ctx context.Context, recipientID string, status VerificationStatus, message string)
	BroadcastToAllAdmins(ctx context.Context, event Event)
}

// Options tunes the dispatcher's registries.
type Options struct {
	WriteTimeout     time.Duration
	DirectoryTimeout time.Duration
}

// Stats holds per-kind connection counts.
type Stats struct {
	Connections map[Kind]int `json:"connections"`
	Recipients  map[Kind]int `json:"recipients"`
}

// Dispatcher owns one registry per channel kind and exposes the broadcast API.
type Dispatcher struct {
	registries       map[Kind]*Registry
	directory        AdminDirectory
	directoryTimeout time.Duration
	logger           *slog.Logger
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher builds the three channel registries. directory may be nil,
// in which case admin broadcasts are skipped.
func NewDispatcher(log *slog.Logger, directory AdminDirectory, opts Options) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if opts.DirectoryTimeout <= 0 {
		opts.DirectoryTimeout = DefaultDirectoryTimeout
	}
	registries := make(map[Kind]*Registry, len(Kinds))
	for _, kind := range Kinds {
		registries[kind] = NewRegistry(log, kind, opts.WriteTimeout)
	}
	return &Dispatcher{
		registries:       registries,
		directory:        directory,
		directoryTimeout: opts.DirectoryTimeout,
		logger:           log.With(slog.String("component", "notify_dispatcher")),
	}
}

// Registry returns the registry for kind.
func (d *Dispatcher) Registry(kind Kind) (*Registry, bool) {
	r, ok := d.registries[kind]
	return r, ok
}

// Register adds a connection on the registry for kind.
func (d *Dispatcher) Register(kind Kind, recipientID string, sink Sink) (func(), error) {
	r, ok := d.registries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown channel kind: %q", kind)
	}
	return r.Register(recipientID, sink), nil
}

// RegisterUserNotificationConnection registers a generic notification stream.
func (d *Dispatcher) RegisterUserNotificationConnection(recipientID string, sink Sink) func() {
	return d.registries[KindUserNotification].Register(recipientID, sink)
}

// RegisterVerificationStatusConnection registers a verification status stream.
func (d *Dispatcher) RegisterVerificationStatusConnection(recipientID string, sink Sink) func() {
	return d.registries[KindVerificationStatus].Register(recipientID, sink)
}

// RegisterAdminConnection registers an admin broadcast stream.
func (d *Dispatcher) RegisterAdminConnection(adminID string, sink Sink) func() {
	return d.registries[KindAdminBroadcast].Register(adminID, sink)
}

// BroadcastUserNotification delivers event to every open notification stream
// of recipientID.
func (d *Dispatcher) BroadcastUserNotification(ctx context.Context, recipientID string, event Event) {
	if event.Type == "" {
		event.Type = TypeNotification
	}
	d.registries[KindUserNotification].Broadcast(ctx, recipientID, event)
}

// BroadcastVerificationStatus delivers a status update to recipientID. The
// status is not validated here.
func (d *Dispatcher) BroadcastVerificationStatus(ctx context.Context, recipientID string, status VerificationStatus, message string) {
	d.registries[KindVerificationStatus].Broadcast(ctx, recipientID, Event{
		Type:    TypeVerificationStatus,
		Title:   verificationTitle(status),
		Message: message,
		Status:  status,
	})
}

// BroadcastToAllAdmins resolves the current admins and delivers event to each
// one that has an open admin stream. Membership is looked up on every call.
func (d *Dispatcher) BroadcastToAllAdmins(ctx context.Context, event Event) {
	if d.directory == nil {
		d.logger.Warn("admin broadcast skipped: no directory configured")
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Type == "" {
		event.Type = TypeAdminAlert
	}
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.directoryTimeout)
	admins, err := d.directory.ListUsersByRole(lookupCtx, AdminRole)
	cancel()
	if err != nil {
		d.logger.Error("admin broadcast skipped: directory lookup failed", slog.Any("error", err))
		return
	}
	registry := d.registries[KindAdminBroadcast]
	seen := make(map[string]struct{}, len(admins))
	total := Delivery{}
	for _, adminID := range admins {
		if _, dup := seen[adminID]; dup {
			continue
		}
		seen[adminID] = struct{}{}
		got := registry.Broadcast(ctx, adminID, event)
		total.Attempted += got.Attempted
		total.Delivered += got.Delivered
		total.Failed += got.Failed
	}
	d.logger.Debug("admin broadcast",
		slog.String("type", string(event.Type)),
		slog.Int("admins", len(seen)),
		slog.Int("delivered", total.Delivered),
		slog.Int("failed", total.Failed),
	)
}

// Stats reports connection and recipient counts per kind.
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		Connections: make(map[Kind]int, len(d.registries)),
		Recipients:  make(map[Kind]int, len(d.registries)),
	}
	for _, r := range d.registries {
		s.Connections[r.Kind()] = r.CountConnections()
		s.Recipients[r.Kind()] = r.Recipients()
	}
	return s
}

func verificationTitle(status VerificationStatus) string {
	switch status {
	case StatusApproved:
		return "Verification approved"
	case StatusRejected:
		return "Verification rejected"
	case StatusPending:
		return "Verification pending"
	default:
		return "Verification update"
	}
}
