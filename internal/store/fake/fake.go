// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"
	"testing"

	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store"
)

var (
	_ store.Interface   = &Store{}
	_ store.PushChannel = &Store{}
	_ store.Notifier    = &Store{}
)

// subscription is one raw notification registration.
type subscription struct {
	types   []record.Type
	handler store.NotificationHandler
	active  bool
}

// Store is a scripted in-memory implementation of every store-side interface.
// Tests preload pull and stream batches, inject failures, fire notifications
// and inspect the enable/disable traffic afterwards.
type Store struct {
	tb testing.TB

	lock sync.Mutex

	pullBatches map[record.Type][]store.Batch
	pullErr     error

	streamBatches map[record.Type][]store.Batch
	streamErr     error

	authErr error

	enabled      map[record.Type]bool
	enableErrs   map[record.Type]error
	enableCalls  map[record.Type]int
	disableCalls map[record.Type]int

	subscriptions []*subscription
	completions   int
}

// NewStore returns an empty scripted store.
func NewStore(tb testing.TB) *Store {
	tb.Helper()

	return &Store{
		tb:            tb,
		pullBatches:   map[record.Type][]store.Batch{},
		streamBatches: map[record.Type][]store.Batch{},
		enabled:       map[record.Type]bool{},
		enableErrs:    map[record.Type]error{},
		enableCalls:   map[record.Type]int{},
		disableCalls:  map[record.Type]int{},
	}
}

// QueuePullBatch appends a batch to the pull queue for typ.
func (s *Store) QueuePullBatch(typ record.Type, batch store.Batch) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pullBatches[typ] = append(s.pullBatches[typ], batch)
}

// QueueStreamBatch appends a batch to the stream queue for typ.
func (s *Store) QueueStreamBatch(typ record.Type, batch store.Batch) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.streamBatches[typ] = append(s.streamBatches[typ], batch)
}

// SetPullError makes every subsequent Pull fail with err.
func (s *Store) SetPullError(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pullErr = err
}

// SetStreamError makes OpenStream return err after the queued batches.
func (s *Store) SetStreamError(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.streamErr = err
}

// SetAuthorizationError makes RequestAuthorization fail with err.
func (s *Store) SetAuthorizationError(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.authErr = err
}

// SetEnableError makes EnablePush for typ fail with err.
func (s *Store) SetEnableError(typ record.Type, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.enableErrs[typ] = err
}

// Pull implements store.Querier consuming the queued batches in order. When
// the queue is empty it returns an empty batch that keeps the anchor in place.
func (s *Store) Pull(_ context.Context, typ record.Type, _ record.Filter, anchor record.Anchor) (store.Batch, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.pullErr != nil {
		return store.Batch{}, s.pullErr
	}

	queue := s.pullBatches[typ]
	if len(queue) == 0 {
		return store.Batch{Anchor: anchor}, nil
	}

	batch := queue[0]
	s.pullBatches[typ] = queue[1:]
	return batch, nil
}

// OpenStream implements store.Streamer emitting the queued batches and then
// blocking until the context ends, unless a stream error was configured.
func (s *Store) OpenStream(ctx context.Context, typ record.Type, _ record.Filter, _ record.Anchor, batches chan<- store.Batch) error {
	s.lock.Lock()
	queued := s.streamBatches[typ]
	s.streamBatches[typ] = nil
	streamErr := s.streamErr
	s.lock.Unlock()

	for _, batch := range queued {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batches <- batch:
		}
	}

	if streamErr != nil {
		return streamErr
	}

	<-ctx.Done()
	return ctx.Err()
}

// RequestAuthorization implements store.Authorizer.
func (s *Store) RequestAuthorization(_ context.Context, _ []record.Type) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.authErr
}

// EnablePush implements store.PushChannel.
func (s *Store) EnablePush(_ context.Context, typ record.Type) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.enableCalls[typ]++
	if err := s.enableErrs[typ]; err != nil {
		return err
	}

	s.enabled[typ] = true
	return nil
}

// DisablePush implements store.PushChannel.
func (s *Store) DisablePush(_ context.Context, typ record.Type) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.disableCalls[typ]++
	delete(s.enabled, typ)
	return nil
}

// SubscribeToNotifications implements store.Notifier.
func (s *Store) SubscribeToNotifications(_ context.Context, types []record.Type, handler store.NotificationHandler) (func(), error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	sub := &subscription{
		types:   append([]record.Type(nil), types...),
		handler: handler,
		active:  true,
	}
	s.subscriptions = append(s.subscriptions, sub)

	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		sub.active = false
	}, nil
}

// Notify delivers a successful notification for the given types to every
// active subscription, returning the number of handlers invoked. Handlers run
// synchronously on the caller's goroutine, mimicking a channel that calls back
// from an arbitrary thread.
func (s *Store) Notify(types ...record.Type) int {
	return s.deliver(types, nil)
}

// NotifyError delivers a failed notification to every active subscription.
func (s *Store) NotifyError(err error) int {
	return s.deliver(nil, err)
}

func (s *Store) deliver(types []record.Type, err error) int {
	s.lock.Lock()
	handlers := make([]store.NotificationHandler, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		if sub.active {
			handlers = append(handlers, sub.handler)
		}
	}
	s.lock.Unlock()

	for _, handler := range handlers {
		handler(types, s.completionFunc(), err)
	}
	return len(handlers)
}

// completionFunc returns the raw handshake callback; every invocation is
// counted so that tests can detect missing or duplicated completions.
func (s *Store) completionFunc() func() {
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		s.completions++
	}
}

// Completions returns how many raw completion callbacks fired so far.
func (s *Store) Completions() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.completions
}

// IsEnabled reports whether push delivery is currently enabled for typ.
func (s *Store) IsEnabled(typ record.Type) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.enabled[typ]
}

// EnableCalls returns how many times EnablePush was invoked for typ.
func (s *Store) EnableCalls(typ record.Type) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.enableCalls[typ]
}

// DisableCalls returns how many times DisablePush was invoked for typ.
func (s *Store) DisableCalls(typ record.Type) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.disableCalls[typ]
}
