// Package notify provides the in-process real-time notification core:
// per-channel connection registries, the dispatcher used by business services,
// and the server-sent events stream writer.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind identifies one of the independent delivery channels.
type Kind string

const (
	// KindUserNotification carries generic user-facing alerts.
	KindUserNotification Kind = "user_notification"
	// KindVerificationStatus carries identity-verification results.
	KindVerificationStatus Kind = "verification_status"
	// KindAdminBroadcast carries alerts addressed to every admin.
	KindAdminBroadcast Kind = "admin_broadcast"
)

// Kinds lists every channel kind in a stable order.
var Kinds = []Kind{KindUserNotification, KindVerificationStatus, KindAdminBroadcast}

func (k Kind) String() string { return string(k) }

// ParseKind validates a channel kind name.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	switch k {
	case KindUserNotification, KindVerificationStatus, KindAdminBroadcast:
		return k, nil
	}
	return "", fmt.Errorf("unknown channel kind: %q", raw)
}

// EventType tags an event payload. Values outside the known set are valid and
// must be forwarded untouched.
type EventType string

const (
	// TypeConnected is written once when a stream opens.
	TypeConnected EventType = "connected"
	// TypeHeartbeat is written periodically to keep idle streams alive.
	TypeHeartbeat EventType = "heartbeat"
	// TypeNotification is the default type on the user notification channel.
	TypeNotification EventType = "NOTIFICATION"
	// TypeVerificationStatus tags verification results.
	TypeVerificationStatus EventType = "VERIFICATION_STATUS"
	// TypeAdminAlert is the default type on the admin channel.
	TypeAdminAlert EventType = "ADMIN_ALERT"
)

// IsControl reports whether t is a stream control event rather than content.
func (t EventType) IsControl() bool {
	return t == TypeConnected || t == TypeHeartbeat
}

// VerificationStatus is the outcome reported on the verification channel.
type VerificationStatus string

const (
	// StatusApproved means the submitted documents were accepted.
	StatusApproved VerificationStatus = "APPROVED"
	// StatusRejected means the submitted documents were refused.
	StatusRejected VerificationStatus = "REJECTED"
	// StatusPending means the documents await review.
	StatusPending VerificationStatus = "PENDING"
)

// ParseVerificationStatus normalizes and validates a status tag.
func ParseVerificationStatus(raw string) (VerificationStatus, error) {
	s := VerificationStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusApproved, StatusRejected, StatusPending:
		return s, nil
	}
	return "", fmt.Errorf("invalid verification status: %q", raw)
}

// Event is the payload pushed to clients. Data holds free-form fields that are
// flattened into the top-level JSON object; the named fields win on collision.
type Event struct {
	Type      EventType          `json:"type"`
	Title     string             `json:"title,omitempty"`
	Message   string             `json:"message,omitempty"`
	Status    VerificationStatus `json:"status,omitempty"`
	Timestamp time.Time          `json:"timestamp,omitzero"`
	Data      map[string]any     `json:"-"`
}

type eventFields Event

// MarshalJSON flattens Data next to the named fields.
func (e Event) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(eventFields(e))
	if err != nil {
		return nil, err
	}
	if len(e.Data) == 0 {
		return base, nil
	}
	merged := make(map[string]json.RawMessage, len(e.Data)+5)
	for k, v := range e.Data {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", k, err)
		}
		merged[k] = raw
	}
	var named map[string]json.RawMessage
	if err := json.Unmarshal(base, &named); err != nil {
		return nil, err
	}
	for k, v := range named {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON collects unknown keys into Data.
func (e *Event) UnmarshalJSON(b []byte) error {
	var fields eventFields
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range []string{"type", "title", "message", "status", "timestamp"} {
		delete(all, k)
	}
	*e = Event(fields)
	if len(all) > 0 {
		e.Data = all
	}
	return nil
}

var framePrefix = []byte("data: ")

// EncodeFrame serializes an event into one server-sent events frame:
// "data: <json>\n\n".
func EncodeFrame(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", event.Type, err)
	}
	var buf bytes.Buffer
	buf.Grow(len(framePrefix) + len(payload) + 2)
	buf.Write(framePrefix)
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// controlFrame is used for connected/heartbeat frames, which carry only a type.
func controlFrame(t EventType) []byte {
	return []byte(`data: {"type":"` + string(t) + `"}` + "\n\n")
}
