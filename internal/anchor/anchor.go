// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package anchor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anchorsync/anchorsync/internal/keyvalue"
	"github.com/anchorsync/anchorsync/internal/logger"
	"github.com/anchorsync/anchorsync/internal/record"
)

const (
	loggerName = "anchorsync:anchor"

	anchorKeyPrefix = "anchor:"
	startKeyPrefix  = "start:"
)

// envelope wraps the opaque token so that corrupted state is detectable when
// loading it back.
type envelope struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"savedAt"`
}

// Store loads and saves anchors per record type on top of a durable key-value
// layer. A value that cannot be decoded is treated as absent, forcing a full
// resync instead of failing.
type Store struct {
	kv keyvalue.Store
}

// NewStore returns a Store backed by kv.
func NewStore(kv keyvalue.Store) *Store {
	return &Store{kv: kv}
}

// Load returns the last saved anchor for typ. It reports false when no anchor
// was saved or the saved value cannot be read back.
func (s *Store) Load(ctx context.Context, typ record.Type) (record.Anchor, bool) {
	log := logger.FromContext(ctx).WithName(loggerName)

	raw, found, err := s.kv.Get(ctx, anchorKeyPrefix+string(typ))
	if err != nil {
		log.Error("error reading saved anchor, starting from scratch", "type", typ, "error", err)
		return "", false
	}
	if !found {
		return "", false
	}

	var saved envelope
	if err := json.Unmarshal(raw, &saved); err != nil {
		log.Warn("saved anchor is corrupted, starting from scratch", "type", typ, "error", err)
		return "", false
	}

	return record.Anchor(saved.Token), true
}

// Save persists anchor for typ.
func (s *Store) Save(ctx context.Context, typ record.Type, anchor record.Anchor) error {
	raw, err := json.Marshal(envelope{
		Token:   string(anchor),
		SavedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.kv.Set(ctx, anchorKeyPrefix+string(typ), raw)
}

// StartDate returns the default filter start date for typ, initializing and
// persisting it on first use so that repeated cold starts keep observing the
// same window. The initial value is the start of the current minute.
func (s *Store) StartDate(ctx context.Context, typ record.Type) (time.Time, error) {
	log := logger.FromContext(ctx).WithName(loggerName)
	key := startKeyPrefix + string(typ)

	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return time.Time{}, err
	}

	if found {
		start, err := time.Parse(time.RFC3339Nano, string(raw))
		if err == nil {
			return start, nil
		}
		log.Warn("saved start date is corrupted, reinitializing", "type", typ, "error", err)
	}

	start := time.Now().UTC().Truncate(time.Minute)
	if err := s.kv.Set(ctx, key, []byte(start.Format(time.RFC3339Nano))); err != nil {
		return time.Time{}, err
	}

	return start, nil
}
