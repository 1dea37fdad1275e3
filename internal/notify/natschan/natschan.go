// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package natschan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/caarlos0/env/v11"
	"github.com/nats-io/nats.go"

	"github.com/anchorsync/anchorsync/internal/info"
	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/notify"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store"
)

const (
	loggerName = "anchorsync:notify:nats"
)

var (
	// ErrNATSChannel wraps errors emitted by the NATS push channel.
	ErrNATSChannel = errors.New("nats channel")
)

var (
	_ store.PushChannel = &Channel{}
	_ store.Notifier    = &Channel{}
)

// Config holds the environment configuration of the channel.
type Config struct {
	URL string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	// Subject carries incoming change notifications.
	Subject string `env:"NATS_SUBJECT" envDefault:"anchorsync.notifications"`
	// ControlSubject carries the per-type enable and disable requests
	// towards the notification producer.
	ControlSubject string `env:"NATS_CONTROL_SUBJECT" envDefault:"anchorsync.control"`
}

// Channel implements the push channel interfaces over core NATS. The
// completion handshake maps to the request/reply pattern: a notification
// published with a reply subject is answered once its processing finished.
type Channel struct {
	config Config

	conn atomic.Pointer[nats.Conn]
}

// NewChannel reads the channel configuration from the environment.
func NewChannel() (*Channel, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		return nil, handleError(err)
	}

	return &Channel{config: config}, nil
}

// initConn connects to the NATS deployment once and reuses the connection.
func (c *Channel) initConn() (*nats.Conn, error) {
	if conn := c.conn.Load(); conn != nil {
		return conn, nil
	}

	conn, err := nats.Connect(c.config.URL, nats.Name(info.AppName))
	if err != nil {
		return nil, handleError(err)
	}

	c.conn.Store(conn)
	return conn, nil
}

// Close drains the connection when it was previously initialized.
func (c *Channel) Close(ctx context.Context) error {
	log := logger.FromContext(ctx).WithName(loggerName)
	conn := c.conn.Swap(nil)
	if conn == nil {
		return nil
	}

	log.Debug("draining nats connection")
	return handleError(conn.Drain())
}

// controlMessage asks the notification producer to start or stop publishing
// change notifications for one record type.
type controlMessage struct {
	Action string      `json:"action"`
	Type   record.Type `json:"type"`
}

func (c *Channel) publishControl(ctx context.Context, action string, typ record.Type) error {
	conn, err := c.initConn()
	if err != nil {
		return err
	}

	body, err := json.Marshal(controlMessage{Action: action, Type: typ})
	if err != nil {
		return handleError(err)
	}

	if err := conn.Publish(c.config.ControlSubject, body); err != nil {
		return handleError(err)
	}
	return handleError(conn.FlushWithContext(ctx))
}

// EnablePush implements store.PushChannel.
func (c *Channel) EnablePush(ctx context.Context, typ record.Type) error {
	logger.FromContext(ctx).WithName(loggerName).Debug("enabling push notifications", "type", typ)
	return c.publishControl(ctx, "enable", typ)
}

// DisablePush implements store.PushChannel.
func (c *Channel) DisablePush(ctx context.Context, typ record.Type) error {
	logger.FromContext(ctx).WithName(loggerName).Debug("disabling push notifications", "type", typ)
	return c.publishControl(ctx, "disable", typ)
}

// SubscribeToNotifications implements store.Notifier. Every message on the
// notification subject is delivered to the handler; the handler side decides
// whether the notified types are of any interest. The complete callback
// answers the reply subject when the publisher asked for one.
func (c *Channel) SubscribeToNotifications(ctx context.Context, types []record.Type, handler store.NotificationHandler) (func(), error) {
	log := logger.FromContext(ctx).WithName(loggerName)

	conn, err := c.initConn()
	if err != nil {
		return nil, err
	}

	sub, err := conn.Subscribe(c.config.Subject, func(msg *nats.Msg) {
		complete := func() {
			if msg.Reply == "" {
				return
			}
			if err := msg.Respond(nil); err != nil {
				log.Warn("failed to answer notification reply subject", "error", err)
			}
		}

		payload, err := notify.DecodePayload(msg.Data)
		if err != nil {
			handler(nil, complete, err)
			return
		}
		handler(payload.Types, complete, nil)
	})
	if err != nil {
		return nil, handleError(err)
	}

	log.Debug("subscribed to notifications", "subject", c.config.Subject, "types", types)

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn("failed to unsubscribe from notifications", "subject", c.config.Subject, "error", err)
		}
	}, nil
}

func handleError(err error) error {
	if err == nil {
		return nil
	}

	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	return fmt.Errorf("%w: %w", ErrNATSChannel, err)
}
