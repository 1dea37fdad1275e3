// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRouteRegistersHandler(t *testing.T) {
	t.Parallel()

	server := NewFakeServer(t, http.MethodPost, "/notifications")

	handled := false
	handler := func(ctx context.Context, headers http.Header, body []byte) error {
		handled = true
		assert.Equal(t, "value", headers.Get("X-Test"))
		assert.Equal(t, "payload", string(body))
		return nil
	}

	server.AddRoute(http.MethodPost, "/notifications", handler)
	require.True(t, server.alreadyRegistered)

	reqHeaders := http.Header{}
	reqHeaders.Set("X-Test", "value")
	require.NoError(t, server.CallWebhook(t.Context(), reqHeaders, []byte("payload")))
	assert.True(t, handled)
}

func TestStartAndStop(t *testing.T) {
	t.Parallel()

	server := NewFakeServer(t, http.MethodGet, "/health")

	go func() {
		assert.NoError(t, server.Start())
	}()

	<-server.StartedServer()
	require.NoError(t, server.Stop())
	<-server.StoppedServer()
}

func TestStartAsyncSignalsStarted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 1*time.Second)
	defer cancel()

	server := NewFakeServer(t, http.MethodGet, "/health")
	server.StartAsync(ctx)

loop:
	for {
		select {
		case <-server.StartedServer():
			break loop
		case <-ctx.Done():
			assert.Fail(t, "context cancelled", "error", ctx.Err())
			return
		}
	}

	require.NoError(t, server.Stop())
}
