// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package store defines the interface boundary with the external record
// store: incremental pulls, continuous streams, the authorization gate and
// the raw push-notification channel with its mandatory completion handshake.
package store
