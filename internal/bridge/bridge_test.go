// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store/fake"
)

const (
	typeHeartRate = record.Type("heartRate")
	typeWorkouts  = record.Type("workouts")
)

func TestCompletionFiresExactlyOnce(t *testing.T) {
	t.Parallel()

	fired := 0
	completion := NewCompletion(func() { fired++ })

	assert.False(t, completion.Completed())
	assert.True(t, completion.Complete())
	assert.False(t, completion.Complete(), "second use must be rejected")
	assert.True(t, completion.Completed())
	assert.Equal(t, 1, fired)
}

func TestSubscribeRoutesMatchingNotifications(t *testing.T) {
	t.Parallel()

	channel := fake.NewStore(t)
	bridge := New(channel)

	received := make([]Event, 0, 1)
	unsubscribe, err := bridge.Subscribe(t.Context(), []record.Type{typeHeartRate}, func(ev Event) {
		received = append(received, ev)
		ev.Completion.Complete()
	})
	require.NoError(t, err)
	defer unsubscribe()

	channel.Notify(typeHeartRate, typeWorkouts)

	require.Len(t, received, 1)
	assert.Equal(t, []record.Type{typeHeartRate, typeWorkouts}, received[0].Types)
	assert.NoError(t, received[0].Err)
	assert.Equal(t, 1, channel.Completions())
}

func TestSubscribeCompletesUnmatchedNotifications(t *testing.T) {
	t.Parallel()

	channel := fake.NewStore(t)
	bridge := New(channel)

	handled := 0
	unsubscribe, err := bridge.Subscribe(t.Context(), []record.Type{typeHeartRate}, func(Event) {
		handled++
	})
	require.NoError(t, err)
	defer unsubscribe()

	channel.Notify(typeWorkouts)

	assert.Zero(t, handled, "unrelated types must not reach the handler")
	assert.Equal(t, 1, channel.Completions(), "the bridge still owes the channel its handshake")
}

func TestSubscribeCompletesFailedNotifications(t *testing.T) {
	t.Parallel()

	channel := fake.NewStore(t)
	bridge := New(channel)

	var received Event
	unsubscribe, err := bridge.Subscribe(t.Context(), []record.Type{typeHeartRate}, func(ev Event) {
		received = ev
	})
	require.NoError(t, err)
	defer unsubscribe()

	notifyErr := errors.New("no records available")
	channel.NotifyError(notifyErr)

	assert.ErrorIs(t, received.Err, notifyErr)
	assert.Empty(t, received.Types)
	assert.Equal(t, 1, channel.Completions(), "a failed notification still gets exactly one handshake")
}

func TestSubscribeGuardsForgetfulHandlers(t *testing.T) {
	t.Parallel()

	channel := fake.NewStore(t)
	bridge := New(channel)

	unsubscribe, err := bridge.Subscribe(t.Context(), []record.Type{typeHeartRate}, func(Event) {
		// handler "forgets" the handshake
	})
	require.NoError(t, err)
	defer unsubscribe()

	channel.Notify(typeHeartRate)
	channel.Notify(typeHeartRate)

	assert.Equal(t, 2, channel.Completions(), "the bridge completes on the handler's behalf, once per notification")
}

func TestSubscribeHandlerCompletionIsNotDoubled(t *testing.T) {
	t.Parallel()

	channel := fake.NewStore(t)
	bridge := New(channel)

	unsubscribe, err := bridge.Subscribe(t.Context(), []record.Type{typeHeartRate}, func(ev Event) {
		ev.Completion.Complete()
		ev.Completion.Complete()
	})
	require.NoError(t, err)
	defer unsubscribe()

	channel.Notify(typeHeartRate)

	assert.Equal(t, 1, channel.Completions())
}
