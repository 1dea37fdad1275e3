// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package syncer

import (
	"context"
	"errors"

	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/store"
)

// startStream activates the source and launches the reconciliation loop in a
// supervised goroutine. The active flag is cleared whenever the loop exits,
// for any reason, so the source can be retriggered.
func (s *Source) startStream(ctx context.Context) {
	log := logger.FromContext(ctx).WithName(loggerName)

	s.lock.Lock()
	if s.active {
		s.lock.Unlock()
		log.Debug("source already active", "type", s.typ)
		return
	}
	s.active = true

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelStream = cancel
	s.lock.Unlock()

	go s.runStream(streamCtx)
}

// runStream consumes the continuous batch sequence anchored at the current
// position. Per batch it applies removals, then additions, then advances the
// anchor; a batch that fails to apply interrupts the stream before the anchor
// moves, so the next activation resumes from the last committed position.
func (s *Source) runStream(ctx context.Context) {
	log := logger.FromContext(ctx).WithName(loggerName)

	defer func() {
		s.lock.Lock()
		s.active = false
		s.cancelStream = nil
		s.lock.Unlock()
		log.Debug("stream stopped", "type", s.typ)
	}()

	filter, err := s.resolveFilter(ctx)
	if err != nil {
		log.Error("error resolving filter", "type", s.typ, "error", err)
		return
	}
	anchor := s.loadAnchor(ctx)

	batches := make(chan store.Batch)
	streamDone := make(chan error, 1)
	go func() {
		streamDone <- s.store.OpenStream(ctx, s.typ, filter, anchor, batches)
		close(batches)
	}()

	log.Debug("stream started", "type", s.typ)

	interrupted := false
	for batch := range batches {
		if interrupted {
			// drain so the producer can observe the cancellation
			continue
		}

		if err := s.applyBatch(ctx, batch); err != nil {
			log.Error("error applying stream batch", "type", s.typ, "error", err)
			interrupted = true
			s.interruptStream()
		}
	}

	if err := <-streamDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stream terminated", "type", s.typ, "error", err)
	}
}

// interruptStream cancels the running stream context, if any.
func (s *Source) interruptStream() {
	s.lock.Lock()
	cancel := s.cancelStream
	s.lock.Unlock()

	if cancel != nil {
		cancel()
	}
}
