// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package registry implements the reference-counted subscription table that
// decides when push delivery is enabled or disabled on the external channel,
// with full rollback of partially enabled batches.
package registry
