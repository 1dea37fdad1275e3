// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package keyvalue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	t.Parallel()

	store := NewMemory()

	_, found, err := store.Get(t.Context(), "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(t.Context(), "key", []byte("value")))
	require.NoError(t, store.Set(t.Context(), "key", []byte("replaced")))

	value, found, err := store.Get(t.Context(), "key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("replaced"), value)
}

func TestMemoryCopiesValues(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	original := []byte("value")
	require.NoError(t, store.Set(t.Context(), "key", original))

	original[0] = 'X'

	value, _, err := store.Get(t.Context(), "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewMemory()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = store.Set(t.Context(), "key", []byte("value"))
				_, _, _ = store.Get(t.Context(), "key")
			}
		}()
	}
	wg.Wait()
}
