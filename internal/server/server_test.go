// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("successfully creates server with valid config", func(t *testing.T) {
		ctx := t.Context()
		t.Setenv("HTTP_PORT", "3000")

		srv, err := NewServer(ctx)
		require.NoError(t, err)
		require.NotNil(t, srv)

		app := srv.(*impServer).app
		require.NotNil(t, app)

		request := httptest.NewRequest(http.MethodGet, "/-/healthz", nil)
		response, err := app.Test(request)
		require.NoError(t, err)

		defer response.Body.Close()
		require.Equal(t, http.StatusOK, response.StatusCode)
	})

	t.Run("fails with invalid config", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "655350")

		_, err := NewServer(t.Context())
		require.ErrorIs(t, err, ErrEnvVariablesNotValid)
	})
}

func TestStartServer(t *testing.T) {
	t.Run("starts and stops the server successfully", func(t *testing.T) {
		ctx := t.Context()
		t.Setenv("HTTP_PORT", "3001")

		srv, err := NewServer(ctx)
		require.NoError(t, err)
		require.NotNil(t, srv)

		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.Start()
		}()

		time.Sleep(100 * time.Millisecond)
		request := httptest.NewRequest(http.MethodGet, "/-/ready", nil)
		response, err := srv.(*impServer).app.Test(request)
		require.NoError(t, err)

		defer response.Body.Close()
		require.Equal(t, http.StatusOK, response.StatusCode)

		require.NoError(t, srv.Stop())
		require.NoError(t, <-errChan)
	})
}

func TestAddRoute(t *testing.T) {
	t.Run("wraps handler and processes request body", func(t *testing.T) {
		ctx := t.Context()
		t.Setenv("HTTP_PORT", "3002")

		srv, err := NewServer(ctx)
		require.NoError(t, err)

		processed := false
		srv.AddRoute(http.MethodPost, "/test", func(_ context.Context, headers http.Header, body []byte) error {
			processed = true
			require.Equal(t, "value", headers.Get("X-Test"))
			require.Equal(t, "test body", string(body))
			return nil
		})

		request := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("test body"))
		request.Header.Set("X-Test", "value")

		response, err := srv.(*impServer).app.Test(request)
		require.NoError(t, err)
		require.Equal(t, http.StatusNoContent, response.StatusCode)
		require.True(t, processed)

		defer response.Body.Close()
	})

	t.Run("maps handler errors to internal server error", func(t *testing.T) {
		ctx := t.Context()
		t.Setenv("HTTP_PORT", "3003")

		srv, err := NewServer(ctx)
		require.NoError(t, err)

		srv.AddRoute(http.MethodPost, "/test", func(_ context.Context, _ http.Header, _ []byte) error {
			return context.DeadlineExceeded
		})

		request := httptest.NewRequest(http.MethodPost, "/test", nil)
		response, err := srv.(*impServer).app.Test(request)
		require.NoError(t, err)
		require.Equal(t, http.StatusInternalServerError, response.StatusCode)

		defer response.Body.Close()
	})
}
