// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/store"
)

// document is the wire shape of a synchronized record. Removed records stay
// in the collection as tombstones with deleted set, so a pull that resumes
// from a watermark can still observe the removal.
type document struct {
	ID        string         `bson:"_id"`
	Payload   map[string]any `bson:"payload"`
	UpdatedAt time.Time      `bson:"updatedAt"`
	Deleted   bool           `bson:"deleted,omitempty"`
}

func (d document) record(typ record.Type) record.Record {
	return record.Record{
		ID:        d.ID,
		Type:      typ,
		Payload:   d.Payload,
		UpdatedAt: d.UpdatedAt,
	}
}

// Pull implements store.Querier. The anchor is an updatedAt watermark: the
// returned batch holds every document modified after it, and the new anchor
// is the watermark of the last returned document. An anchor that does not
// parse falls back to the filter window, which yields a full resync.
func (s *Store) Pull(ctx context.Context, typ record.Type, filter record.Filter, anchor record.Anchor) (store.Batch, error) {
	log := logger.FromContext(ctx).WithName(loggerName)

	client, err := s.initClient(ctx)
	if err != nil {
		return store.Batch{}, err
	}

	query := bson.M{"updatedAt": bson.M{"$gte": filter.Since}}
	if anchor != "" {
		watermark, err := time.Parse(time.RFC3339Nano, string(anchor))
		if err != nil {
			log.Warn("discarding unparsable anchor, resyncing from filter window", "type", typ, "error", err)
		} else {
			query = bson.M{"updatedAt": bson.M{"$gt": watermark}}
		}
	}

	collection := client.Database(s.config.Database).Collection(string(typ))
	cursor, err := collection.Find(ctx, query, options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: 1}}).
		SetLimit(s.config.PullLimit),
	)
	if err != nil {
		return store.Batch{}, handleError(err)
	}
	defer cursor.Close(ctx)

	batch := store.Batch{Anchor: anchor}
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return store.Batch{}, handleError(err)
		}

		if doc.Deleted {
			batch.Removed = append(batch.Removed, doc.record(typ))
		} else {
			batch.Added = append(batch.Added, doc.record(typ))
		}
		batch.Anchor = record.Anchor(doc.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	if err := cursor.Err(); err != nil {
		return store.Batch{}, handleError(err)
	}

	log.Debug("pulled batch", "type", typ, "added", len(batch.Added), "removed", len(batch.Removed))
	return batch, nil
}
