// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorsync/anchorsync/internal/anchor"
	"github.com/anchorsync/anchorsync/internal/keyvalue"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store"
	storefake "github.com/anchorsync/anchorsync/internal/store/fake"
	"github.com/anchorsync/anchorsync/internal/syncer"

	sinkfake "github.com/anchorsync/anchorsync/internal/sink/fake"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func newSource(t *testing.T, fake *storefake.Store, sink *sinkfake.Sink, typ record.Type, policy syncer.Policy) *syncer.Source {
	t.Helper()

	source, err := syncer.New(syncer.Config{
		Type:    typ,
		Policy:  policy,
		Store:   fake,
		Sink:    sink,
		Anchors: anchor.NewStore(keyvalue.NewMemory()),
	})
	require.NoError(t, err)
	return source
}

func TestStartRunsSourcesUntilCancellation(t *testing.T) {
	t.Parallel()

	fake := storefake.NewStore(t)
	sink := sinkfake.NewSink(t)
	fake.QueueStreamBatch("heartRate", store.Batch{
		Added:  []record.Record{{ID: "r1", Type: "heartRate"}},
		Anchor: "anchor-1",
	})

	heartRate := newSource(t, fake, sink, "heartRate", syncer.Policy{Mode: syncer.ModeStream, Start: syncer.StartAutomatic})
	steps := newSource(t, fake, sink, "steps", syncer.Policy{Mode: syncer.ModeStream, Start: syncer.StartAutomatic})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- New(heartRate, steps).Start(ctx, time.Second)
	}()

	assert.Eventually(t, func() bool {
		return heartRate.Active() && steps.Active()
	}, waitFor, tick)

	assert.Eventually(t, func() bool {
		return len(sink.AddCalls()) == 1
	}, waitFor, tick)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, heartRate.Active())
	assert.False(t, steps.Active())
}

func TestSyncTriggersEverySource(t *testing.T) {
	t.Parallel()

	fake := storefake.NewStore(t)
	sink := sinkfake.NewSink(t)
	fake.QueuePullBatch("heartRate", store.Batch{
		Added:  []record.Record{{ID: "r1", Type: "heartRate"}},
		Anchor: "anchor-1",
	})
	fake.QueuePullBatch("steps", store.Batch{
		Added:  []record.Record{{ID: "r2", Type: "steps"}},
		Anchor: "anchor-1",
	})

	heartRate := newSource(t, fake, sink, "heartRate", syncer.Policy{Mode: syncer.ModeManual})
	steps := newSource(t, fake, sink, "steps", syncer.Policy{Mode: syncer.ModeManual})

	New(heartRate, steps).Sync(t.Context())

	assert.Len(t, sink.AddCalls(), 2)
	assert.False(t, heartRate.Active())
	assert.False(t, steps.Active())
}

func TestStopIsSafeOnInactiveSources(t *testing.T) {
	t.Parallel()

	fake := storefake.NewStore(t)
	sink := sinkfake.NewSink(t)
	source := newSource(t, fake, sink, "heartRate", syncer.Policy{Mode: syncer.ModeManual})

	assert.NoError(t, New(source).Stop(t.Context(), time.Second))
}
