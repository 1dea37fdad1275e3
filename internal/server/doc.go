// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package server contains the HTTP server of the application.
// It sets up the server using the Fiber framework, configures middleware for logging,
// and defines routes for health checks and service status.
package server
