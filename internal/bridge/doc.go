// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package bridge converts the external push-notification callbacks into
// internal events carrying a single-use completion handle, and guarantees
// that every notification is acknowledged exactly once.
package bridge
