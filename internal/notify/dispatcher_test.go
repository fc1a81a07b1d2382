package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(dir AdminDirectory) *Dispatcher {
	return NewDispatcher(testLogger(), dir, Options{})
}

func TestDispatcherUserNotificationScenario(t *testing.T) {
	d := newTestDispatcher(nil)
	h1 := &recordingSink{}
	deregister := d.RegisterUserNotificationConnection("u1", h1)

	d.BroadcastUserNotification(context.Background(), "u1", Event{Type: "TEST", Title: "T", Message: "M"})
	require.Equal(t, 1, h1.count())

	deregister()
	assert.NotPanics(t, func() {
		d.BroadcastUserNotification(context.Background(), "u1", Event{Type: "TEST", Title: "T", Message: "M"})
	})
	assert.Equal(t, 1, h1.count())
}

func TestDispatcherChannelsAreIsolated(t *testing.T) {
	d := newTestDispatcher(&staticDirectory{ids: []string{"u1"}})
	user, verify, admin := &recordingSink{}, &recordingSink{}, &recordingSink{}
	defer d.RegisterUserNotificationConnection("u1", user)()
	defer d.RegisterVerificationStatusConnection("u1", verify)()
	defer d.RegisterAdminConnection("u1", admin)()

	d.BroadcastVerificationStatus(context.Background(), "u1", StatusApproved, "ok")

	assert.Zero(t, user.count())
	assert.Zero(t, admin.count())
	events := verify.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, TypeVerificationStatus, events[0].Type)
	assert.Equal(t, StatusApproved, events[0].Status)
	assert.Equal(t, "ok", events[0].Message)
	assert.Equal(t, "Verification approved", events[0].Title)
}

func TestDispatcherVerificationStatusToAbsentRecipient(t *testing.T) {
	d := newTestDispatcher(nil)
	assert.NotPanics(t, func() {
		d.BroadcastVerificationStatus(context.Background(), "u3", "APPROVED", "ok")
	})
}

func TestDispatcherDefaultsUserNotificationType(t *testing.T) {
	d := newTestDispatcher(nil)
	sink := &recordingSink{}
	defer d.RegisterUserNotificationConnection("u1", sink)()

	d.BroadcastUserNotification(context.Background(), "u1", Event{Title: "hello"})

	events := sink.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, TypeNotification, events[0].Type)
}

func TestDispatcherBroadcastToAllAdminsReachesConnectedOnly(t *testing.T) {
	dir := &staticDirectory{ids: []string{"admin-1", "admin-2"}}
	d := newTestDispatcher(dir)
	connected := &recordingSink{}
	defer d.RegisterAdminConnection("admin-1", connected)()
	bystander := &recordingSink{}
	defer d.RegisterAdminConnection("not-admin", bystander)()

	d.BroadcastToAllAdmins(context.Background(), Event{Title: "new document"})

	events := connected.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, TypeAdminAlert, events[0].Type)
	assert.Zero(t, bystander.count())
}

func TestDispatcherAdminMembershipIsResolvedPerCall(t *testing.T) {
	dir := &staticDirectory{ids: []string{"a1"}}
	d := newTestDispatcher(dir)
	a1, a2 := &recordingSink{}, &recordingSink{}
	defer d.RegisterAdminConnection("a1", a1)()
	defer d.RegisterAdminConnection("a2", a2)()

	d.BroadcastToAllAdmins(context.Background(), Event{Type: "ALERT"})
	dir.set("a2")
	d.BroadcastToAllAdmins(context.Background(), Event{Type: "ALERT"})

	assert.Equal(t, 1, a1.count())
	assert.Equal(t, 1, a2.count())
	assert.Equal(t, 2, dir.calls)
}

func TestDispatcherAdminDuplicateIdentitiesDeliverOnce(t *testing.T) {
	d := newTestDispatcher(&staticDirectory{ids: []string{"a1", "a1"}})
	a1 := &recordingSink{}
	defer d.RegisterAdminConnection("a1", a1)()

	d.BroadcastToAllAdmins(context.Background(), Event{Type: "ALERT"})

	assert.Equal(t, 1, a1.count())
}

func TestDispatcherAdminDirectoryFailureSkipsBroadcast(t *testing.T) {
	d := newTestDispatcher(&staticDirectory{ids: []string{"a1"}, err: errors.New("db down")})
	a1 := &recordingSink{}
	defer d.RegisterAdminConnection("a1", a1)()

	assert.NotPanics(t, func() {
		d.BroadcastToAllAdmins(context.Background(), Event{Type: "ALERT"})
	})
	assert.Zero(t, a1.count())
}

func TestDispatcherAdminBroadcastWithoutDirectory(t *testing.T) {
	d := newTestDispatcher(nil)
	a1 := &recordingSink{}
	defer d.RegisterAdminConnection("a1", a1)()

	d.BroadcastToAllAdmins(context.Background(), Event{Type: "ALERT"})

	assert.Zero(t, a1.count())
}

func TestDispatcherRegisterByKind(t *testing.T) {
	d := newTestDispatcher(nil)
	sink := &recordingSink{}
	deregister, err := d.Register(KindVerificationStatus, "u1", sink)
	require.NoError(t, err)
	defer deregister()

	_, err = d.Register(Kind("bogus"), "u1", sink)
	assert.Error(t, err)

	stats := d.Stats()
	assert.Equal(t, 1, stats.Connections[KindVerificationStatus])
	assert.Equal(t, 1, stats.Recipients[KindVerificationStatus])
	assert.Zero(t, stats.Connections[KindUserNotification])
	assert.Zero(t, stats.Connections[KindAdminBroadcast])
}
