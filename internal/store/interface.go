// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package store

import (
	"context"
	"errors"

	"github.com/anchorsync/anchorsync/internal/record"
)

var (
	// ErrAuthorizationDenied reports that the store refused access to a record type.
	ErrAuthorizationDenied = errors.New("authorization denied")
)

// Batch is one incremental change set returned by a pull or emitted by a
// stream. Removals must be applied before additions so that a record deleted
// and re-added inside the same window is never transiently resurrected.
type Batch struct {
	Added   []record.Record
	Removed []record.Record
	// Anchor marks the position reached once the batch is fully applied.
	Anchor record.Anchor
}

// Querier performs a single incremental pull against the external store.
type Querier interface {
	// Pull returns every change for typ matching filter past anchor. An empty
	// anchor asks for everything matching the filter from scratch.
	Pull(ctx context.Context, typ record.Type, filter record.Filter, anchor record.Anchor) (Batch, error)
}

// Streamer opens a continuous sequence of incremental change batches.
type Streamer interface {
	// OpenStream sends batches for typ on the batches channel until the
	// context is cancelled or the stream fails. It blocks for the lifetime of
	// the stream and never closes the channel itself.
	OpenStream(ctx context.Context, typ record.Type, filter record.Filter, anchor record.Anchor, batches chan<- Batch) error
}

// Authorizer gates every source activity behind the store's permission model.
type Authorizer interface {
	// RequestAuthorization asks the store for read access to the given record
	// types. It returns ErrAuthorizationDenied when access is refused.
	RequestAuthorization(ctx context.Context, types []record.Type) error
}

// Interface groups the query-side capabilities a source needs from the store.
type Interface interface {
	Querier
	Streamer
	Authorizer
}

// Closable is implemented by stores and channels holding external
// connections that need an orderly shutdown.
type Closable interface {
	Close(ctx context.Context) error
}

// PushChannel toggles delivery of push notifications for a record type on the
// external channel. Both calls are idempotent, retryable side effects; the
// subscription registry guarantees they are issued only on 0<->1 subscriber
// transitions.
type PushChannel interface {
	EnablePush(ctx context.Context, typ record.Type) error
	DisablePush(ctx context.Context, typ record.Type) error
}

// NotificationHandler is the raw callback shape of the external push channel.
// The complete function is the mandatory handshake: it must be invoked exactly
// once per notification or the channel stops delivering. A non-nil err means
// the notification carried no usable data; complete must still be called.
type NotificationHandler func(types []record.Type, complete func(), err error)

// Notifier is the raw subscription primitive of the external push channel.
type Notifier interface {
	// SubscribeToNotifications registers handler for notifications matching
	// the given record types and returns a function that tears the
	// subscription down.
	SubscribeToNotifications(ctx context.Context, types []record.Type, handler NotificationHandler) (unsubscribe func(), err error)
}
