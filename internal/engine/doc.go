// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package engine assembles the configured sources and ties their lifecycle
// to the application context.
package engine
