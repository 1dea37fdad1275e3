// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store"
)

// changeEvent is the subset of a change stream event the adapter consumes.
type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument document `bson:"fullDocument"`
}

// OpenStream implements store.Streamer on top of MongoDB change streams. The
// anchor is the extended JSON rendering of the last delivered resume token,
// so a reconnect picks the stream up where the previous one stopped. The
// call blocks until the stream fails or ctx is cancelled.
func (s *Store) OpenStream(ctx context.Context, typ record.Type, filter record.Filter, anchor record.Anchor, batches chan<- store.Batch) error {
	log := logger.FromContext(ctx).WithName(loggerName)

	client, err := s.initClient(ctx)
	if err != nil {
		return err
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if anchor != "" {
		token, err := resumeTokenFromAnchor(anchor)
		if err != nil {
			log.Warn("discarding unparsable resume token, streaming from now", "type", typ, "error", err)
		} else {
			opts = opts.SetResumeAfter(token)
		}
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
		}}},
	}

	collection := client.Database(s.config.Database).Collection(string(typ))
	stream, err := collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return handleError(err)
	}
	defer stream.Close(context.WithoutCancel(ctx))

	log.Debug("change stream opened", "type", typ)

	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			return handleError(err)
		}

		batch, ok := s.eventBatch(typ, filter, event)
		if !ok {
			continue
		}
		batch.Anchor = anchorFromResumeToken(stream.ResumeToken())

		select {
		case batches <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := stream.Err(); err != nil {
		return handleError(err)
	}

	return ctx.Err()
}

// eventBatch maps one change event to a single-record batch. Tombstone
// updates and hard deletes both surface as removals; documents updated
// before the filter window are dropped.
func (s *Store) eventBatch(typ record.Type, filter record.Filter, event changeEvent) (store.Batch, bool) {
	if event.OperationType == "delete" {
		return store.Batch{
			Removed: []record.Record{{ID: event.DocumentKey.ID, Type: typ}},
		}, true
	}

	doc := event.FullDocument
	if doc.Deleted {
		return store.Batch{Removed: []record.Record{doc.record(typ)}}, true
	}
	if !filter.IsZero() && doc.UpdatedAt.Before(filter.Since) {
		return store.Batch{}, false
	}

	return store.Batch{Added: []record.Record{doc.record(typ)}}, true
}

func anchorFromResumeToken(token bson.Raw) record.Anchor {
	if token == nil {
		return ""
	}
	return record.Anchor(token.String())
}

func resumeTokenFromAnchor(anchor record.Anchor) (bson.Raw, error) {
	var token bson.Raw
	if err := bson.UnmarshalExtJSON([]byte(anchor), true, &token); err != nil {
		return nil, err
	}
	return token, nil
}
