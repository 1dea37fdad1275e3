// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package notify holds the push notification channels and their shared wire
// payload. Every channel implements the raw subscription primitive plus the
// per-type enable/disable toggle; the completion handshake of each channel
// maps to its transport acknowledgment.
package notify
