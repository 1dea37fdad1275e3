// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package engine

import (
	"context"
	"time"

	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/syncer"
)

const (
	loggerName = "anchorsync:engine"

	// pollInterval paces the wait for sources to wind down during Stop.
	pollInterval = 10 * time.Millisecond
)

// Engine supervises a set of sources: it brings them up together and winds
// them down when the surrounding context is cancelled.
type Engine struct {
	sources []*syncer.Source
}

func New(sources ...*syncer.Source) *Engine {
	return &Engine{sources: sources}
}

// Start launches automatic collection for every source and blocks until the
// context is cancelled; it then deactivates every source within timeout.
func (e *Engine) Start(ctx context.Context, timeout time.Duration) error {
	log := logger.FromContext(ctx).WithName(loggerName)

	log.Trace("starting sources", "count", len(e.sources))
	for _, source := range e.sources {
		source.StartAutomaticCollection(ctx)
	}

	<-ctx.Done()
	log.Debug("engine cancelled from context", "error", ctx.Err())

	return e.Stop(context.WithoutCancel(ctx), timeout)
}

// Sync triggers a single collection round on every source. Collection errors
// stay with the individual source; a round never aborts the others.
func (e *Engine) Sync(ctx context.Context) {
	log := logger.FromContext(ctx).WithName(loggerName)

	log.Trace("triggering collection", "count", len(e.sources))
	for _, source := range e.sources {
		source.TriggerCollection(ctx)
	}
}

// Stop deactivates every source and waits for their collection loops to exit,
// up to timeout.
func (e *Engine) Stop(ctx context.Context, timeout time.Duration) error {
	log := logger.FromContext(ctx).WithName(loggerName)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Debug("deactivating sources", "count", len(e.sources))
	for _, source := range e.sources {
		source.Deactivate(ctx)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for _, source := range e.sources {
		for source.Active() {
			select {
			case <-ctx.Done():
				log.Error("timed out waiting for sources to stop", "error", ctx.Err())
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	log.Trace("all sources stopped")
	return nil
}
