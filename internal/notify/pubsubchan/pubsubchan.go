// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pubsubchan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"cloud.google.com/go/pubsub/v2"
	"github.com/caarlos0/env/v11"
	"google.golang.org/grpc/status"

	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/notify"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store"
)

const (
	loggerName = "anchorsync:notify:pubsub"
)

var (
	// ErrMissingEnvVariable reports missing mandatory environment variables.
	ErrMissingEnvVariable = errors.New("missing environment variable")
	// ErrPubSubChannel wraps errors emitted by the Pub/Sub push channel.
	ErrPubSubChannel = errors.New("pubsub channel")
)

var (
	_ store.PushChannel = &Channel{}
	_ store.Notifier    = &Channel{}
)

// Config holds the environment configuration of the channel.
type Config struct {
	ProjectID      string `env:"GOOGLE_CLOUD_PUBSUB_PROJECT"`
	SubscriptionID string `env:"GOOGLE_CLOUD_PUBSUB_SUBSCRIPTION"`
	// ControlTopicID receives the per-type enable and disable requests
	// towards the notification producer.
	ControlTopicID string `env:"GOOGLE_CLOUD_PUBSUB_CONTROL_TOPIC"`
}

// checkConfig validates the required configuration for the Pub/Sub channel.
func checkConfig(cfg Config) error {
	missingEnvs := make([]string, 0)
	if cfg.ProjectID == "" {
		missingEnvs = append(missingEnvs, "GOOGLE_CLOUD_PUBSUB_PROJECT")
	}
	if cfg.SubscriptionID == "" {
		missingEnvs = append(missingEnvs, "GOOGLE_CLOUD_PUBSUB_SUBSCRIPTION")
	}
	if cfg.ControlTopicID == "" {
		missingEnvs = append(missingEnvs, "GOOGLE_CLOUD_PUBSUB_CONTROL_TOPIC")
	}

	if len(missingEnvs) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, strings.Join(missingEnvs, ", "))
	}

	return nil
}

// Channel implements the push channel interfaces over Google Cloud Pub/Sub.
// The completion handshake maps to the message acknowledgment: a notification
// is acked once its processing finished, so an unprocessed one is redelivered.
type Channel struct {
	config Config

	client atomic.Pointer[pubsub.Client]
}

// NewChannel reads the channel configuration from the environment.
func NewChannel() (*Channel, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		return nil, handleError(err)
	}

	return &Channel{config: config}, nil
}

// initClient initializes the Pub/Sub client once and reuses it afterwards.
func (c *Channel) initClient(ctx context.Context) (*pubsub.Client, error) {
	if client := c.client.Load(); client != nil {
		return client, nil
	}

	if err := checkConfig(c.config); err != nil {
		return nil, handleError(err)
	}

	client, err := pubsub.NewClient(ctx, c.config.ProjectID)
	if err != nil {
		return nil, handleError(err)
	}

	c.client.Store(client)
	return client, nil
}

// Close shuts down the Pub/Sub client when it was previously initialized.
func (c *Channel) Close(ctx context.Context) error {
	log := logger.FromContext(ctx).WithName(loggerName)
	client := c.client.Swap(nil)
	if client == nil {
		return nil
	}

	log.Debug("closing pub/sub client")
	return handleError(client.Close())
}

// controlMessage asks the notification producer to start or stop publishing
// change notifications for one record type.
type controlMessage struct {
	Action string      `json:"action"`
	Type   record.Type `json:"type"`
}

func (c *Channel) publishControl(ctx context.Context, action string, typ record.Type) error {
	client, err := c.initClient(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(controlMessage{Action: action, Type: typ})
	if err != nil {
		return handleError(err)
	}

	publisher := client.Publisher(c.config.ControlTopicID)
	defer publisher.Stop()

	result := publisher.Publish(ctx, &pubsub.Message{Data: body})
	if _, err := result.Get(ctx); err != nil {
		return handleError(err)
	}
	return nil
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

// SubscribeToNotifications implements store.Notifier by pulling from the
// configured subscription. Receive runs until the returned unsubscribe
// function cancels it; the complete callback acks the message.
func (c *Channel) SubscribeToNotifications(ctx context.Context, types []record.Type, handler store.NotificationHandler) (func(), error) {
	log := logger.FromContext(ctx).WithName(loggerName)

	client, err := c.initClient(ctx)
	if err != nil {
		return nil, err
	}

	log.Debug("starting pubsub subscriber",
		"projectId", c.config.ProjectID,
		"subscriptionId", c.config.SubscriptionID,
		"types", types,
	)

	receiveCtx, cancel := context.WithCancel(ctx)
	subscriber := client.Subscriber(c.config.SubscriptionID)

	go func() {
		err := subscriber.Receive(receiveCtx, func(_ context.Context, msg *pubsub.Message) {
			complete := msg.Ack

			payload, err := notify.DecodePayload(msg.Data)
			if err != nil {
				log.Error("failed to handle Pub/Sub message", "messageId", msg.ID, "error", err)
				handler(nil, complete, err)
				return
			}
			handler(payload.Types, complete, nil)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("pubsub subscriber stopped", "error", handleError(err))
		}
	}()

	return cancel, nil
}

// handleError unwraps known errors and wraps them with ErrPubSubChannel.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	if statusErr, ok := status.FromError(err); ok && statusErr.Code() != 0 {
		err = errors.New(statusErr.Message())
	}

	return fmt.Errorf("%w: %w", ErrPubSubChannel, err)
}
