// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package keyvalue defines the durable key-value contract used to persist
// anchors and default filter start dates, together with an in-memory
// implementation for tests and local runs.
package keyvalue
