// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anchorsync/anchorsync/internal/anchor"
	"github.com/anchorsync/anchorsync/internal/bridge"
	"github.com/anchorsync/anchorsync/internal/config"
	"github.com/anchorsync/anchorsync/internal/engine"
	"github.com/anchorsync/anchorsync/internal/keyvalue"
	"github.com/anchorsync/anchorsync/internal/keyvalue/sqlitekv"
	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/notify/natschan"
	"github.com/anchorsync/anchorsync/internal/notify/pubsubchan"
	"github.com/anchorsync/anchorsync/internal/notify/webhookchan"
	"github.com/anchorsync/anchorsync/internal/registry"
	"github.com/anchorsync/anchorsync/internal/server"
	"github.com/anchorsync/anchorsync/internal/sink"
	"github.com/anchorsync/anchorsync/internal/store"
	"github.com/anchorsync/anchorsync/internal/store/mongostore"
	"github.com/anchorsync/anchorsync/internal/syncer"
)

const (
	// shutdownTimeout bounds the wait for sources to wind down on exit.
	shutdownTimeout = 30 * time.Second
)

// pushChannel groups the two halves of an external notification channel.
type pushChannel interface {
	store.PushChannel
	store.Notifier
}

var (
	// storeGetter returns the external record store.
	// It can be overridden for testing purposes.
	storeGetter = func() (store.Interface, error) {
		return mongostore.NewStore()
	}

	// channelGetter returns a push channel based on the provided channel name.
	// It can be overridden for testing purposes.
	channelGetter = channelFromName

	// serverGetter returns the HTTP server hosting status routes and webhooks.
	// It can be overridden for testing purposes.
	serverGetter = server.NewServer
)

// channelFromName returns a push channel based on the provided channelName.
func channelFromName(ctx context.Context, channelName string, srv server.Server) (pushChannel, error) {
	switch channelName {
	case "nats":
		return natschan.NewChannel()
	case "pubsub":
		return pubsubchan.NewChannel()
	case "webhook":
		return webhookchan.NewChannel(ctx, srv)
	}

	return nil, fmt.Errorf("%w: %s", errInvalidChannel, channelName)
}

// options configures the engine for run and sync executions.
type options struct {
	channelName string
	sourcePaths []string
	dataSink    sink.Sink
	localState  bool
	stateFile   string

	lock sync.Mutex
}

// validateRun checks the configured values for the run command.
func (o *options) validateRun() error {
	if o.channelName == "" {
		return errNoArguments
	}

	if _, ok := availableChannels[o.channelName]; !ok {
		return fmt.Errorf("%w: %s", errInvalidChannel, o.channelName)
	}

	if len(o.sourcePaths) == 0 {
		return errNoSources
	}

	return nil
}

// validateSync checks the configured values for the sync command.
func (o *options) validateSync() error {
	if len(o.sourcePaths) == 0 {
		return errNoSources
	}

	return nil
}

// executeRun starts the engine configured by the options and blocks until the
// context is cancelled.
func (o *options) executeRun(ctx context.Context) error {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	configs, err := loadSourceConfigs(o.sourcePaths)
	if err != nil {
		return err
	}

	recordStore, err := storeGetter()
	if err != nil {
		return err
	}
	defer closeIfClosable(ctx, recordStore)

	srv, err := serverGetter(ctx)
	if err != nil {
		return err
	}

	channel, err := channelGetter(ctx, o.channelName, srv)
	if err != nil {
		return err
	}
	defer closeIfClosable(ctx, channel)

	kv, closeKV, err := o.keyValueStore(ctx)
	if err != nil {
		return err
	}
	defer closeKV()

	anchors := anchor.NewStore(kv)
	subscriptions := registry.New(channel)
	notifications := bridge.New(channel)

	sources, err := o.buildSources(configs, recordStore, anchors, subscriptions, notifications, false)
	if err != nil {
		return err
	}

	srv.StartAsync(ctx)
	defer func() { _ = srv.Stop() }()

	return engine.New(sources...).Start(ctx, shutdownTimeout)
}

// executeSync performs a one-shot collection of every declared source.
func (o *options) executeSync(ctx context.Context) error {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	configs, err := loadSourceConfigs(o.sourcePaths)
	if err != nil {
		return err
	}

	recordStore, err := storeGetter()
	if err != nil {
		return err
	}
	defer closeIfClosable(ctx, recordStore)

	kv, closeKV, err := o.keyValueStore(ctx)
	if err != nil {
		return err
	}
	defer closeKV()

	anchors := anchor.NewStore(kv)

	sources, err := o.buildSources(configs, recordStore, anchors, nil, nil, true)
	if err != nil {
		return err
	}

	engine.New(sources...).Sync(ctx)
	return nil
}

// closeIfClosable shuts down components holding external connections.
func closeIfClosable(ctx context.Context, component any) {
	closable, ok := component.(store.Closable)
	if !ok {
		return
	}

	if err := closable.Close(context.WithoutCancel(ctx)); err != nil {
		logger.FromContext(ctx).Error("error closing component", "error", err)
	}
}

// keyValueStore returns the durable layer backing anchors and start dates.
func (o *options) keyValueStore(ctx context.Context) (keyvalue.Store, func(), error) {
	if o.localState {
		return keyvalue.NewMemory(), func() {}, nil
	}

	kv, err := sqlitekv.New(ctx, o.stateFile)
	if err != nil {
		return nil, nil, err
	}

	return kv, func() { _ = kv.Close() }, nil
}

// buildSources assembles one source per declared configuration. With
// forceManual set every policy collapses to a manual pull, as used by the
// one-shot sync command.
func (o *options) buildSources(
	configs []*config.SourceConfig,
	recordStore store.Interface,
	anchors *anchor.Store,
	subscriptions *registry.Registry,
	notifications *bridge.Bridge,
	forceManual bool,
) ([]*syncer.Source, error) {
	sources := make([]*syncer.Source, 0, len(configs))
	for _, cfg := range configs {
		policy := cfg.SyncerPolicy()
		if forceManual {
			policy = syncer.Policy{Mode: syncer.ModeManual}
		}

		source, err := syncer.New(syncer.Config{
			Type:     cfg.RecordType(),
			Filter:   cfg.RecordFilter(),
			Policy:   policy,
			Store:    recordStore,
			Sink:     o.dataSink,
			Anchors:  anchors,
			Registry: subscriptions,
			Bridge:   notifications,
		})
		if err != nil {
			return nil, err
		}

		sources = append(sources, source)
	}

	return sources, nil
}
