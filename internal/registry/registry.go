// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store"
)

const (
	loggerName = "anchorsync:registry"
)

// Registry is the process-wide reference-counted table arbitrating push
// enablement across every subscriber of the same record type. The external
// channel is enabled for a type iff its count is greater than zero; the
// transition happens exactly at the 0<->1 boundary. A single lock serializes
// every read-modify-write on the table because registrations and notification
// teardowns race from independent goroutines.
type Registry struct {
	lock    sync.Mutex
	counts  map[record.Type]int
	channel store.PushChannel
}

// New returns a Registry driving the given push channel. One instance is
// constructed at process start and shared by reference with every source.
func New(channel store.PushChannel) *Registry {
	return &Registry{
		counts:  map[record.Type]int{},
		channel: channel,
	}
}

// Register adds one subscriber for every given type, enabling push delivery
// for the types that had no subscriber yet. When enabling any type fails the
// whole call is rolled back: every type enabled by this call is disabled
// again and no count changes survive. The returned Registration releases the
// subscriber exactly once.
func (r *Registry) Register(ctx context.Context, types []record.Type) (*Registration, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	log := logger.FromContext(ctx).WithName(loggerName)

	enabled := make([]record.Type, 0, len(types))
	incremented := make([]record.Type, 0, len(types))
	for _, typ := range types {
		if r.counts[typ] > 0 {
			r.counts[typ]++
			incremented = append(incremented, typ)
			continue
		}

		if err := r.channel.EnablePush(ctx, typ); err != nil {
			r.rollback(ctx, log, incremented, enabled)
			return nil, fmt.Errorf("enabling push for type %q: %w", typ, err)
		}

		r.counts[typ] = 1
		enabled = append(enabled, typ)
	}

	return &Registration{
		registry: r,
		types:    append([]record.Type(nil), types...),
	}, nil
}

// rollback undoes the partial state of a failed Register call while the lock
// is held. Only the types the call actually touched are reverted: counts it
// incremented are decremented, types it enabled are disabled again. Types past
// the failing one were never recorded and must stay untouched.
func (r *Registry) rollback(ctx context.Context, log logger.Logger, incremented, enabled []record.Type) {
	for _, typ := range incremented {
		r.counts[typ]--
	}

	for _, typ := range enabled {
		delete(r.counts, typ)
		if err := r.channel.DisablePush(ctx, typ); err != nil {
			log.Error("error disabling push while rolling back registration", "type", typ, "error", err)
		}
	}
}

// release removes one subscriber per type. Types reaching zero are dropped
// from the table and push delivery is disabled asynchronously; a disable
// failure is logged and never surfaced to the releasing subscriber.
func (r *Registry) release(ctx context.Context, types []record.Type) {
	r.lock.Lock()
	defer r.lock.Unlock()

	log := logger.FromContext(ctx).WithName(loggerName)

	for _, typ := range types {
		count, found := r.counts[typ]
		if !found {
			continue
		}

		if count > 1 {
			r.counts[typ] = count - 1
			continue
		}

		delete(r.counts, typ)
		go func(typ record.Type) {
			if err := r.channel.DisablePush(context.WithoutCancel(ctx), typ); err != nil {
				log.Error("error disabling push delivery", "type", typ, "error", err)
			}
		}(typ)
	}
}

// count returns the current subscriber count for typ.
func (r *Registry) count(typ record.Type) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.counts[typ]
}

// Registration is the handle tying one successful Register call to exactly
// one eventual release.
type Registration struct {
	registry *Registry
	types    []record.Type
	once     sync.Once
}

// Release removes the subscriber from the registry. It is safe to call more
// than once; only the first call decrements the counts.
func (reg *Registration) Release(ctx context.Context) {
	reg.once.Do(func() {
		reg.registry.release(ctx, reg.types)
	})
}
