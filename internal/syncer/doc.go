// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package syncer implements the per-type data source: delivery policies, the
// three collection strategies (single pull, continuous stream, push+pull) and
// the reconciliation loop that advances the anchor batch by batch.
package syncer
