// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package webhookchan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/notify"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/server"
	"github.com/anchorsync/anchorsync/internal/store"
)

const (
	loggerName = "anchorsync:notify:webhook"

	// NotificationPath is the route the external store posts notifications to.
	NotificationPath = "/notifications"
)

var (
	// ErrWebhookChannel wraps errors emitted by the webhook push channel.
	ErrWebhookChannel = errors.New("webhook channel")
	// ErrCompletionTimeout reports a notification whose processing did not
	// complete before the configured deadline.
	ErrCompletionTimeout = errors.New("notification completion timeout")
	// ErrNoSubscribers reports a notification received while no subscriber
	// was registered; the resulting error response asks the producer to retry.
	ErrNoSubscribers = errors.New("no active subscribers")
)

var (
	_ store.PushChannel = &Channel{}
	_ store.Notifier    = &Channel{}
)

// Config holds the environment configuration of the channel.
type Config struct {
	// CompletionTimeout bounds how long an incoming notification request is
	// held open waiting for its completion handshake.
	CompletionTimeout time.Duration `env:"WEBHOOK_COMPLETION_TIMEOUT" envDefault:"30s"`
}

// Channel implements the push channel interfaces over an inbound HTTP
// webhook. The completion handshake maps to the HTTP response: the request
// is answered 204 once processing completed, or 500 when nothing completed
// it before the deadline, so the producer knows to redeliver.
type Channel struct {
	config Config

	lock        sync.Mutex
	enabled     map[record.Type]bool
	subscribers map[int]store.NotificationHandler
	nextID      int
}

// NewChannel reads the channel configuration from the environment and mounts
// the notification route on the given server.
func NewChannel(ctx context.Context, srv server.Server) (*Channel, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		var parseErr env.AggregateError
		if errors.As(err, &parseErr) {
			err = parseErr.Errors[0]
		}
		return nil, fmt.Errorf("%w: %w", ErrWebhookChannel, err)
	}

	channel := &Channel{
		config:      config,
		enabled:     make(map[record.Type]bool),
		subscribers: make(map[int]store.NotificationHandler),
	}

	srv.AddRoute(http.MethodPost, NotificationPath, channel.handleNotification)
	logger.FromContext(ctx).WithName(loggerName).Debug("notification route mounted", "path", NotificationPath)

	return channel, nil
}

// EnablePush implements store.PushChannel. The webhook itself is registered
// with the external store out of band; enabling a type only opens the gate
// for its notifications.
func (c *Channel) EnablePush(ctx context.Context, typ record.Type) error {
	logger.FromContext(ctx).WithName(loggerName).Debug("enabling push notifications", "type", typ)

	c.lock.Lock()
	defer c.lock.Unlock()
	c.enabled[typ] = true
	return nil
}

// DisablePush implements store.PushChannel.
func (c *Channel) DisablePush(ctx context.Context, typ record.Type) error {
	logger.FromContext(ctx).WithName(loggerName).Debug("disabling push notifications", "type", typ)

	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.enabled, typ)
	return nil
}

// SubscribeToNotifications implements store.Notifier.
func (c *Channel) SubscribeToNotifications(ctx context.Context, types []record.Type, handler store.NotificationHandler) (func(), error) {
	log := logger.FromContext(ctx).WithName(loggerName)

	c.lock.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = handler
	c.lock.Unlock()

	log.Debug("subscribed to notifications", "types", types)

	return func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		delete(c.subscribers, id)
	}, nil
}

// handleNotification processes one inbound notification request. It blocks
// until a subscriber completes the notification or the deadline expires; the
// returned error drives the HTTP status of the response.
func (c *Channel) handleNotification(ctx context.Context, _ http.Header, body []byte) error {
	log := logger.FromContext(ctx).WithName(loggerName)

	payload, decodeErr := notify.DecodePayload(body)

	c.lock.Lock()
	handlers := make([]store.NotificationHandler, 0, len(c.subscribers))
	for _, handler := range c.subscribers {
		handlers = append(handlers, handler)
	}
	gateOpen := false
	for _, typ := range payload.Types {
		if c.enabled[typ] {
			gateOpen = true
			break
		}
	}
	c.lock.Unlock()

	if decodeErr == nil && !gateOpen {
		log.Debug("discarding notification for disabled types", "types", payload.Types)
		return nil
	}

	if len(handlers) == 0 {
		return fmt.Errorf("%w: %w", ErrWebhookChannel, ErrNoSubscribers)
	}

	done := make(chan struct{})
	var once sync.Once
	complete := func() {
		once.Do(func() { close(done) })
	}

	for _, handler := range handlers {
		if decodeErr != nil {
			handler(nil, complete, decodeErr)
		} else {
			handler(payload.Types, complete, nil)
		}
	}

	select {
	case <-done:
		return nil
	case <-time.After(c.config.CompletionTimeout):
		return fmt.Errorf("%w: %w", ErrWebhookChannel, ErrCompletionTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
