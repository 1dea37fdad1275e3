// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package bridge

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store"
)

const (
	loggerName = "anchorsync:bridge"
)

// Completion is the single-use handshake handle attached to every event. The
// external channel stalls if the handshake never fires, and misbehaves if it
// fires twice; the consumed flag makes the exactly-once contract checkable.
type Completion struct {
	fire     func()
	consumed atomic.Bool
}

// NewCompletion wraps the raw handshake callback of the external channel.
func NewCompletion(fire func()) *Completion {
	return &Completion{fire: fire}
}

// Complete invokes the handshake callback. It reports false when the handle
// was already consumed, in which case the callback is not invoked again.
func (c *Completion) Complete() bool {
	if !c.consumed.CompareAndSwap(false, true) {
		return false
	}

	if c.fire != nil {
		c.fire()
	}
	return true
}

// Completed reports whether the handshake already fired.
func (c *Completion) Completed() bool {
	return c.consumed.Load()
}

// Event is one push notification converted into an internal value. When Err
// is set the notification carried no usable data; the completion handshake is
// still mandatory.
type Event struct {
	Types      []record.Type
	Completion *Completion
	Err        error
}

// Handler consumes events routed to a subscriber. The handler owns the
// completion handle and must fire it exactly once after its processing
// finishes, successfully or not.
type Handler func(Event)

// Bridge converts the callback-based push-notification primitive into events
// with an owned completion handle, demultiplexing by record type.
type Bridge struct {
	notifier store.Notifier
}

// New returns a Bridge wrapping the raw notifier.
func New(notifier store.Notifier) *Bridge {
	return &Bridge{notifier: notifier}
}

// Subscribe registers handle for notifications whose matched types intersect
// the given types. Notifications outside that set are completed by the bridge
// itself so that the channel never stalls on an unclaimed callback; the same
// guard applies when a handler returns without firing the handshake.
func (b *Bridge) Subscribe(ctx context.Context, types []record.Type, handle Handler) (func(), error) {
	log := logger.FromContext(ctx).WithName(loggerName)
	subscribed := append([]record.Type(nil), types...)

	return b.notifier.SubscribeToNotifications(ctx, subscribed, func(matched []record.Type, complete func(), err error) {
		completion := NewCompletion(complete)

		if err != nil {
			handle(Event{Completion: completion, Err: err})
			if completion.Complete() {
				log.Warn("handler did not complete a failed notification, completing on its behalf", "types", subscribed)
			}
			return
		}

		if !intersects(matched, subscribed) {
			log.Debug("notification matched no subscribed type, completing", "matched", matched, "subscribed", subscribed)
			completion.Complete()
			return
		}

		handle(Event{Types: matched, Completion: completion})
		if completion.Complete() {
			log.Warn("handler did not complete the notification, completing on its behalf", "types", matched)
		}
	})
}

func intersects(matched, subscribed []record.Type) bool {
	return slices.ContainsFunc(matched, func(typ record.Type) bool {
		return slices.Contains(subscribed, typ)
	})
}
