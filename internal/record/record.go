// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package record

import (
	"time"
)

// Type identifies a category of records tracked by a source (e.g., "heartRate").
// It is the key of the subscription registry and part of every anchor storage key.
type Type string

// Anchor is an opaque token produced by the store after a pull or a stream
// batch. It marks everything already pulled for a source; the empty anchor
// means "pull everything matching the filter from scratch".
type Anchor string

// Record is a single entry forwarded from the store to a sink. The payload is
// carried as-is, the engine never inspects it.
type Record struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt,omitempty"`
}

// Filter restricts which records a source observes. It is computed once at
// source construction and never changes afterwards.
type Filter struct {
	// Since is the inclusive lower bound on record update times. The zero
	// value means "use the persisted default start date".
	Since time.Time
}

// IsZero reports whether the filter has no explicit lower bound.
func (f Filter) IsZero() bool {
	return f.Since.IsZero()
}
