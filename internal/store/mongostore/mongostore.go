// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/caarlos0/env/v11"

	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store"
)

const (
	loggerName = "anchorsync:store:mongo"
)

var (
	// ErrMongoStore wraps errors emitted by the MongoDB store adapter.
	ErrMongoStore = errors.New("mongo store")
)

var _ store.Interface = &Store{}

// Config holds the environment configuration of the adapter.
type Config struct {
	URI      string `env:"MONGODB_URI,required"`
	Database string `env:"MONGODB_DATABASE" envDefault:"anchorsync"`
	// PullLimit caps the number of documents returned by a single pull.
	PullLimit int64 `env:"MONGODB_PULL_LIMIT" envDefault:"500"`
}

// Store adapts a MongoDB deployment to the store interfaces. Every record
// type maps to a collection of documents shaped as
// {_id, payload, updatedAt, deleted}; deletions are tombstones so that an
// incremental pull can observe them.
type Store struct {
	config Config

	client atomic.Pointer[mongo.Client]
}

// NewStore reads the adapter configuration from the environment.
func NewStore() (*Store, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		return nil, handleError(err)
	}

	return &Store{config: config}, nil
}

// initClient connects to the deployment once and reuses the client afterwards.
func (s *Store) initClient(ctx context.Context) (*mongo.Client, error) {
	if client := s.client.Load(); client != nil {
		return client, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.config.URI))
	if err != nil {
		return nil, handleError(err)
	}

	s.client.Store(client)
	return client, nil
}

// Close disconnects the underlying client when it was previously initialized.
func (s *Store) Close(ctx context.Context) error {
	log := logger.FromContext(ctx).WithName(loggerName)
	client := s.client.Swap(nil)
	if client == nil {
		return nil
	}

	log.Debug("disconnecting mongo client")
	return handleError(client.Disconnect(ctx))
}

// RequestAuthorization implements store.Authorizer by probing the deployment.
// An unreachable or unauthenticated deployment reads as a denied grant.
func (s *Store) RequestAuthorization(ctx context.Context, _ []record.Type) error {
	client, err := s.initClient(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrAuthorizationDenied, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", store.ErrAuthorizationDenied, err)
	}

	return nil
}

func handleError(err error) error {
	if err == nil {
		return nil
	}

	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	return fmt.Errorf("%w: %w", ErrMongoStore, err)
}
