// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"net/http"
	"testing"

	"github.com/anchorsync/anchorsync/internal/server"
)

var _ server.Server = &Server{}

// Server is a test double for server.Server that accepts exactly one route
// and lets the test invoke its handler directly.
type Server struct {
	tb testing.TB

	method string
	path   string

	alreadyRegistered bool
	handler           func(context.Context, http.Header, []byte) error

	startedChan chan struct{}
	closedChan  chan struct{}
}

func NewFakeServer(tb testing.TB, method, path string) *Server {
	tb.Helper()

	return &Server{
		tb:          tb,
		method:      method,
		path:        path,
		startedChan: make(chan struct{}),
		closedChan:  make(chan struct{}),
	}
}

func (s *Server) AddRoute(method string, path string, handler func(ctx context.Context, headers http.Header, body []byte) error) {
	s.tb.Helper()

	if s.alreadyRegistered {
		s.tb.Fatalf("route already registered: %s %s", s.method, s.path)
	}
	if method != s.method || path != s.path {
		s.tb.Fatalf("unexpected route: got %s %s, want %s %s", method, path, s.method, s.path)
	}

	s.alreadyRegistered = true
	s.handler = handler
}

func (s *Server) Start() error {
	s.tb.Helper()
	close(s.startedChan)
	<-s.closedChan
	return nil
}

func (s *Server) Stop() error {
	s.tb.Helper()
	close(s.closedChan)
	return nil
}

func (s *Server) StartAsync(_ context.Context) {
	s.tb.Helper()
	go func() {
		_ = s.Start()
	}()
}

func (s *Server) StartedServer() <-chan struct{} {
	s.tb.Helper()
	return s.startedChan
}

func (s *Server) StoppedServer() <-chan struct{} {
	s.tb.Helper()
	return s.closedChan
}

// CallWebhook invokes the registered handler as an incoming request would.
func (s *Server) CallWebhook(ctx context.Context, headers http.Header, body []byte) error {
	s.tb.Helper()

	if s.handler == nil {
		s.tb.Fatalf("no handler registered for %s %s", s.method, s.path)
	}
	return s.handler(ctx, headers, body)
}
