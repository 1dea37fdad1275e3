// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package sink

import (
	"context"

	"github.com/anchorsync/anchorsync/internal/record"
)

// Sink receives the records pulled from the store. Both operations must be
// idempotent: the reconciliation loop delivers at least once, so a record may
// be added or removed again after a replayed batch.
type Sink interface {
	Add(ctx context.Context, rec record.Record) error
	Remove(ctx context.Context, rec record.Record) error
}
