// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package syncer

import (
	"context"

	"github.com/anchorsync/anchorsync/internal/bridge"
	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/record"
)

// startPush activates the source, takes one registry registration and wires a
// bridge subscription that performs a single pull per notification. A failure
// at any step rolls the activation back completely.
func (s *Source) startPush(ctx context.Context) {
	log := logger.FromContext(ctx).WithName(loggerName)

	s.lock.Lock()
	if s.active {
		s.lock.Unlock()
		log.Debug("source already active", "type", s.typ)
		return
	}
	s.active = true
	s.lock.Unlock()

	registration, err := s.registry.Register(ctx, []record.Type{s.typ})
	if err != nil {
		log.Error("error registering push subscription", "type", s.typ, "error", err)
		s.deactivatePush()
		return
	}

	// notifications outlive the triggering call, only Deactivate stops them
	notifyCtx := context.WithoutCancel(ctx)
	unsubscribe, err := s.bridge.Subscribe(ctx, []record.Type{s.typ}, func(ev bridge.Event) {
		s.handleNotification(notifyCtx, ev)
	})
	if err != nil {
		log.Error("error subscribing to push notifications", "type", s.typ, "error", err)
		registration.Release(ctx)
		s.deactivatePush()
		return
	}

	s.lock.Lock()
	if !s.active {
		// Deactivate ran while the subscription was being set up
		s.lock.Unlock()
		unsubscribe()
		registration.Release(ctx)
		log.Debug("source deactivated during push activation, rolled back", "type", s.typ)
		return
	}
	s.registration = registration
	s.unsubscribe = unsubscribe
	s.lock.Unlock()

	log.Debug("push subscription active", "type", s.typ)
}

// handleNotification performs the pull triggered by one push notification.
// The completion handshake fires after the pull attempt finishes, whatever
// its outcome, and never more than once.
func (s *Source) handleNotification(ctx context.Context, ev bridge.Event) {
	log := logger.FromContext(ctx).WithName(loggerName)
	defer ev.Completion.Complete()

	if ev.Err != nil {
		log.Warn("push notification carried no records", "type", s.typ, "error", ev.Err)
		return
	}

	if err := s.pullOnce(ctx); err != nil {
		log.Error("error pulling after push notification", "type", s.typ, "error", err)
	}
}

func (s *Source) deactivatePush() {
	s.lock.Lock()
	s.active = false
	s.lock.Unlock()
}
