// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package sqlitekv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetSet(t *testing.T) {
	t.Parallel()

	store, err := New(t.Context(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, found, err := store.Get(t.Context(), "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(t.Context(), "anchor:heartRate", []byte("one")))
	require.NoError(t, store.Set(t.Context(), "anchor:heartRate", []byte("two")))

	value, found, err := store.Get(t.Context(), "anchor:heartRate")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("two"), value)
}

func TestStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")

	store, err := New(t.Context(), path)
	require.NoError(t, err)
	require.NoError(t, store.Set(t.Context(), "key", []byte("value")))
	require.NoError(t, store.Close())

	reopened, err := New(t.Context(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	value, found, err := reopened.Get(t.Context(), "key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("value"), value)
}
