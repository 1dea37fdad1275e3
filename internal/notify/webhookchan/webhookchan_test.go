// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package webhookchan

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorsync/anchorsync/internal/notify"
	"github.com/anchorsync/anchorsync/internal/record"
	serverfake "github.com/anchorsync/anchorsync/internal/server/fake"
)

const typeHeartRate = record.Type("heartRate")

func newChannel(t *testing.T) (*Channel, *serverfake.Server) {
	t.Helper()

	srv := serverfake.NewFakeServer(t, http.MethodPost, NotificationPath)
	channel, err := NewChannel(t.Context(), srv)
	require.NoError(t, err)
	return channel, srv
}

func notification(t *testing.T, types ...record.Type) []byte {
	t.Helper()

	body, err := notify.EncodePayload(types)
	require.NoError(t, err)
	return body
}

func TestNotificationIsDeliveredAndCompleted(t *testing.T) {
	t.Setenv("WEBHOOK_COMPLETION_TIMEOUT", "1s")

	channel, srv := newChannel(t)
	require.NoError(t, channel.EnablePush(t.Context(), typeHeartRate))

	var delivered []record.Type
	_, err := channel.SubscribeToNotifications(t.Context(), []record.Type{typeHeartRate},
		func(types []record.Type, complete func(), err error) {
			require.NoError(t, err)
			delivered = types
			complete()
		})
	require.NoError(t, err)

	require.NoError(t, srv.CallWebhook(t.Context(), nil, notification(t, typeHeartRate)))
	assert.Equal(t, []record.Type{typeHeartRate}, delivered)
}

func TestNotificationWithoutCompletionTimesOut(t *testing.T) {
	t.Setenv("WEBHOOK_COMPLETION_TIMEOUT", "50ms")

	channel, srv := newChannel(t)
	require.NoError(t, channel.EnablePush(t.Context(), typeHeartRate))

	_, err := channel.SubscribeToNotifications(t.Context(), []record.Type{typeHeartRate},
		func(_ []record.Type, _ func(), _ error) {})
	require.NoError(t, err)

	err = srv.CallWebhook(t.Context(), nil, notification(t, typeHeartRate))
	assert.ErrorIs(t, err, ErrCompletionTimeout)
}

func TestNotificationWithoutSubscribersFails(t *testing.T) {
	t.Setenv("WEBHOOK_COMPLETION_TIMEOUT", "50ms")

	channel, srv := newChannel(t)
	require.NoError(t, channel.EnablePush(t.Context(), typeHeartRate))

	err := srv.CallWebhook(t.Context(), nil, notification(t, typeHeartRate))
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestNotificationForDisabledTypeIsDiscarded(t *testing.T) {
	t.Setenv("WEBHOOK_COMPLETION_TIMEOUT", "1s")

	channel, srv := newChannel(t)

	called := false
	_, err := channel.SubscribeToNotifications(t.Context(), []record.Type{typeHeartRate},
		func(_ []record.Type, complete func(), _ error) {
			called = true
			complete()
		})
	require.NoError(t, err)

	require.NoError(t, srv.CallWebhook(t.Context(), nil, notification(t, typeHeartRate)))
	assert.False(t, called, "a notification for a type nobody enabled is acknowledged and dropped")
}

func TestMalformedNotificationIsDeliveredAsError(t *testing.T) {
	t.Setenv("WEBHOOK_COMPLETION_TIMEOUT", "1s")

	channel, srv := newChannel(t)

	var handlerErr error
	_, err := channel.SubscribeToNotifications(t.Context(), []record.Type{typeHeartRate},
		func(types []record.Type, complete func(), err error) {
			assert.Empty(t, types)
			handlerErr = err
			complete()
		})
	require.NoError(t, err)

	require.NoError(t, srv.CallWebhook(t.Context(), nil, []byte("not json")))
	assert.ErrorIs(t, handlerErr, notify.ErrMalformedNotification)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Setenv("WEBHOOK_COMPLETION_TIMEOUT", "50ms")

	channel, srv := newChannel(t)
	require.NoError(t, channel.EnablePush(t.Context(), typeHeartRate))

	unsubscribe, err := channel.SubscribeToNotifications(t.Context(), []record.Type{typeHeartRate},
		func(_ []record.Type, complete func(), _ error) { complete() })
	require.NoError(t, err)

	unsubscribe()
	err = srv.CallWebhook(t.Context(), nil, notification(t, typeHeartRate))
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestDisablePushClosesTheGate(t *testing.T) {
	t.Setenv("WEBHOOK_COMPLETION_TIMEOUT", "1s")

	channel, srv := newChannel(t)
	require.NoError(t, channel.EnablePush(t.Context(), typeHeartRate))
	require.NoError(t, channel.DisablePush(t.Context(), typeHeartRate))

	called := false
	_, err := channel.SubscribeToNotifications(t.Context(), []record.Type{typeHeartRate},
		func(_ []record.Type, complete func(), _ error) {
			called = true
			complete()
		})
	require.NoError(t, err)

	require.NoError(t, srv.CallWebhook(t.Context(), nil, notification(t, typeHeartRate)))
	assert.False(t, called)
}
