// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anchorsync/anchorsync/internal/anchor"
	"github.com/anchorsync/anchorsync/internal/bridge"
	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/registry"
	"github.com/anchorsync/anchorsync/internal/sink"
	"github.com/anchorsync/anchorsync/internal/store"
)

const (
	loggerName = "anchorsync:syncer"
)

var (
	// ErrInvalidConfig reports a source configuration missing required collaborators.
	ErrInvalidConfig = errors.New("invalid source configuration")
)

// Config collects everything a Source needs. Registry and Bridge are required
// only for ModePush.
type Config struct {
	Type     record.Type
	Filter   record.Filter
	Policy   Policy
	Store    store.Interface
	Sink     sink.Sink
	Anchors  *anchor.Store
	Registry *registry.Registry
	Bridge   *bridge.Bridge
}

// Source synchronizes one record type with a sink, according to its delivery
// policy. One instance exists per tracked record type for the lifetime of the
// process; it is deactivated, never destroyed.
type Source struct {
	typ     record.Type
	filter  record.Filter
	policy  Policy
	store   store.Interface
	sink    sink.Sink
	anchors *anchor.Store

	registry *registry.Registry
	bridge   *bridge.Bridge

	lock         sync.Mutex
	active       bool
	anchor       record.Anchor
	anchorLoaded bool
	cancelStream context.CancelFunc
	registration *registry.Registration
	unsubscribe  func()
}

// New validates cfg and returns a Source. For ModeManual the anchor is kept
// in memory only, whatever the configured persistence flag says.
func New(cfg Config) (*Source, error) {
	switch {
	case cfg.Type == "":
		return nil, fmt.Errorf("%w: missing record type", ErrInvalidConfig)
	case cfg.Store == nil:
		return nil, fmt.Errorf("%w: missing store", ErrInvalidConfig)
	case cfg.Sink == nil:
		return nil, fmt.Errorf("%w: missing sink", ErrInvalidConfig)
	case cfg.Anchors == nil:
		return nil, fmt.Errorf("%w: missing anchor store", ErrInvalidConfig)
	case cfg.Policy.Mode == ModePush && (cfg.Registry == nil || cfg.Bridge == nil):
		return nil, fmt.Errorf("%w: push delivery needs a registry and a bridge", ErrInvalidConfig)
	}

	policy := cfg.Policy
	if policy.Mode == ModeManual {
		policy.SaveAnchor = false
	}

	return &Source{
		typ:      cfg.Type,
		filter:   cfg.Filter,
		policy:   policy,
		store:    cfg.Store,
		sink:     cfg.Sink,
		anchors:  cfg.Anchors,
		registry: cfg.Registry,
		bridge:   cfg.Bridge,
	}, nil
}

// Type returns the record type this source tracks.
func (s *Source) Type() record.Type {
	return s.typ
}

// Active reports whether a stream or push subscription is currently running.
func (s *Source) Active() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.active
}

// OnAuthorizationGranted triggers collection once authorization has been
// granted. Manual sources and already-active sources are left untouched, so
// repeated calls are no-ops.
func (s *Source) OnAuthorizationGranted(ctx context.Context) {
	if s.policy.Mode == ModeManual || s.Active() {
		return
	}

	s.TriggerCollection(ctx)
}

// StartAutomaticCollection launches the source at process startup when its
// policy asks to run unattended. Same gating as OnAuthorizationGranted.
func (s *Source) StartAutomaticCollection(ctx context.Context) {
	if s.policy.Start != StartAutomatic {
		return
	}

	s.OnAuthorizationGranted(ctx)
}

// TriggerCollection dispatches to the strategy selected by the delivery
// policy. Every failure is logged and swallowed: the anchor is left unchanged
// and the source stays eligible for the next trigger. No retry is scheduled.
func (s *Source) TriggerCollection(ctx context.Context) {
	log := logger.FromContext(ctx).WithName(loggerName)

	if err := s.store.RequestAuthorization(ctx, []record.Type{s.typ}); err != nil {
		log.Debug("authorization not granted, source stays inactive", "type", s.typ, "error", err)
		return
	}

	switch s.policy.Mode {
	case ModeManual:
		if err := s.pullOnce(ctx); err != nil {
			log.Error("error pulling records", "type", s.typ, "error", err)
		}
	case ModeStream:
		s.startStream(ctx)
	case ModePush:
		s.startPush(ctx)
	}
}

// Deactivate cancels a running stream or tears down a push subscription. The
// anchor stays at its last committed value so a later trigger resumes
// correctly.
func (s *Source) Deactivate(ctx context.Context) {
	s.lock.Lock()
	cancel := s.cancelStream
	registration := s.registration
	unsubscribe := s.unsubscribe
	s.registration = nil
	s.unsubscribe = nil
	if s.policy.Mode == ModePush {
		s.active = false
	}
	s.lock.Unlock()

	// the stream loop clears its own active flag on exit
	if cancel != nil {
		cancel()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	if registration != nil {
		registration.Release(ctx)
	}
}

// pullOnce performs a single pull-and-merge anchored at the current position.
// A failed pull leaves the anchor untouched.
func (s *Source) pullOnce(ctx context.Context) error {
	filter, err := s.resolveFilter(ctx)
	if err != nil {
		return err
	}

	batch, err := s.store.Pull(ctx, s.typ, filter, s.loadAnchor(ctx))
	if err != nil {
		return err
	}

	return s.applyBatch(ctx, batch)
}

// applyBatch merges one change batch into the sink: removals first, then
// additions, then the anchor advances. An error aborts the batch before the
// anchor moves, so a replay delivers the same changes again; the sink's
// idempotence absorbs the duplicates.
func (s *Source) applyBatch(ctx context.Context, batch store.Batch) error {
	for _, rec := range batch.Removed {
		if err := s.sink.Remove(ctx, rec); err != nil {
			return fmt.Errorf("removing record %q: %w", rec.ID, err)
		}
	}
	for _, rec := range batch.Added {
		if err := s.sink.Add(ctx, rec); err != nil {
			return fmt.Errorf("adding record %q: %w", rec.ID, err)
		}
	}

	s.advanceAnchor(ctx, batch.Anchor)
	return nil
}

// advanceAnchor replaces the in-memory anchor and persists it when the policy
// asks for it. A persistence failure is logged, not surfaced: the worst case
// after a restart is a replay from the previous anchor.
func (s *Source) advanceAnchor(ctx context.Context, next record.Anchor) {
	s.lock.Lock()
	s.anchor = next
	s.anchorLoaded = true
	s.lock.Unlock()

	if !s.policy.SaveAnchor {
		return
	}

	if err := s.anchors.Save(ctx, s.typ, next); err != nil {
		log := logger.FromContext(ctx).WithName(loggerName)
		log.Error("error persisting anchor", "type", s.typ, "error", err)
	}
}

// loadAnchor returns the current anchor, reading the persisted one on first
// access when the policy persists anchors.
func (s *Source) loadAnchor(ctx context.Context) record.Anchor {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.anchorLoaded {
		if s.policy.SaveAnchor {
			s.anchor, _ = s.anchors.Load(ctx, s.typ)
		}
		s.anchorLoaded = true
	}

	return s.anchor
}

// resolveFilter returns the configured filter, falling back to the persisted
// default start date so repeated cold starts keep the same window.
func (s *Source) resolveFilter(ctx context.Context) (record.Filter, error) {
	if !s.filter.IsZero() {
		return s.filter, nil
	}

	start, err := s.anchors.StartDate(ctx, s.typ)
	if err != nil {
		return record.Filter{}, err
	}

	return record.Filter{Since: start}, nil
}
