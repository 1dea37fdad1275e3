// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package sink defines the idempotent add/remove contract for the consumers
// of synchronized records. Implementations live in subpackages.
package sink
