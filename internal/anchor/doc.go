// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package anchor persists synchronization progress per record type: the
// opaque anchor token returned by the store and the default filter start
// date initialized on first use.
package anchor
