// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package keyvalue

import (
	"context"
	"sync"
)

// Store is the durable key-value layer consumed by the anchor store. Both
// operations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, reporting whether the key exists.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

var _ Store = &Memory{}

// Memory is an in-process Store. State does not survive a restart; it backs
// the --local-state mode and the test suites.
type Memory struct {
	lock sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: map[string][]byte{},
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	value, found := m.data[key]
	return value, found, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}
