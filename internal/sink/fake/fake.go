// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"
	"testing"

	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/sink"
)

var _ sink.Sink = &Sink{}

// Sink records every operation it receives. Add and Remove are idempotent on
// the visible state: the journal keeps every call, the state keeps only the
// last outcome per record ID.
type Sink struct {
	tb testing.TB

	lock sync.Mutex

	addCalls    []record.Record
	removeCalls []record.Record
	operations  []string
	present     map[string]record.Record

	addErr    error
	removeErr error
}

// NewSink returns an empty recording sink.
func NewSink(tb testing.TB) *Sink {
	tb.Helper()

	return &Sink{
		tb:      tb,
		present: map[string]record.Record{},
	}
}

// SetAddError makes every subsequent Add fail with err.
func (s *Sink) SetAddError(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.addErr = err
}

// SetRemoveError makes every subsequent Remove fail with err.
func (s *Sink) SetRemoveError(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.removeErr = err
}

// Add implements sink.Sink.
func (s *Sink) Add(_ context.Context, rec record.Record) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.addErr != nil {
		return s.addErr
	}

	s.addCalls = append(s.addCalls, rec)
	s.operations = append(s.operations, "add:"+rec.ID)
	s.present[rec.ID] = rec
	return nil
}

// Remove implements sink.Sink.
func (s *Sink) Remove(_ context.Context, rec record.Record) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.removeErr != nil {
		return s.removeErr
	}

	s.removeCalls = append(s.removeCalls, rec)
	s.operations = append(s.operations, "remove:"+rec.ID)
	delete(s.present, rec.ID)
	return nil
}

// Operations returns every call in arrival order, encoded as "add:<id>" or
// "remove:<id>".
func (s *Sink) Operations() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.operations...)
}

// AddCalls returns every Add invocation in order.
func (s *Sink) AddCalls() []record.Record {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]record.Record(nil), s.addCalls...)
}

// RemoveCalls returns every Remove invocation in order.
func (s *Sink) RemoveCalls() []record.Record {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]record.Record(nil), s.removeCalls...)
}

// Visible returns how many distinct records are currently present.
func (s *Sink) Visible() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.present)
}

// Contains reports whether a record with the given ID is currently present.
func (s *Sink) Contains(id string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, found := s.present[id]
	return found
}
