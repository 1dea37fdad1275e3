// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package version formats the application version metadata for display.
package version

import (
	"runtime"

	"github.com/anchorsync/anchorsync/internal/info"
)

var (
	// Version is the application version set at build time.
	Version = info.Version
	// BuildDate is the build date set at build time.
	BuildDate = info.BuildDate
)

// ServiceVersionInformation returns the version string shown by the version
// command.
func ServiceVersionInformation() string {
	outputString := Version
	if BuildDate != "" {
		outputString += " (" + BuildDate + ")"
	}

	return outputString + ", Go Version: " + runtime.Version()
}
