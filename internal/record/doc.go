// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package record holds the shared value types exchanged between the store,
// the synchronization engine and the sinks: record types, records, anchors
// and filters.
package record
