// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/anchorsync/anchorsync/internal/sink"
	"github.com/anchorsync/anchorsync/internal/sink/remote"
	"github.com/anchorsync/anchorsync/internal/sink/writer"
)

const (
	sourcePathFlagName  = "source-file"
	sourcePathFlagShort = "f"
	sourcePathFlagUsage = "Path to a file or directory containing source definitions. Can be specified multiple times."

	localOutputFlagName  = "local-output"
	localOutputFlagUsage = "If set, writes synchronized records to stdout instead of sending them to the remote sink"
	defaultLocalOutput   = false

	localStateFlagName  = "local-state"
	localStateFlagUsage = "If set, keeps anchors in memory instead of the state database"
	defaultLocalState   = false

	stateFileFlagName    = "state-file"
	stateFileFlagUsage   = "Path to the database file holding anchors and start dates"
	defaultStateFilePath = "anchorsync.db"
)

// flags collects the CLI options shared by the run and sync commands.
type flags struct {
	sourcePaths []string
	localOutput bool
	localState  bool
	stateFile   string
}

// addFlags registers the CLI flags on cmd.
func (f *flags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(
		&f.sourcePaths,
		sourcePathFlagName,
		sourcePathFlagShort,
		nil,
		sourcePathFlagUsage)

	cmd.Flags().BoolVar(&f.localOutput, localOutputFlagName, defaultLocalOutput, localOutputFlagUsage)
	cmd.Flags().BoolVar(&f.localState, localStateFlagName, defaultLocalState, localStateFlagUsage)
	cmd.Flags().StringVar(&f.stateFile, stateFileFlagName, defaultStateFilePath, stateFileFlagUsage)
}

// toOptions builds an options instance from the parsed flags and CLI arguments.
func (f *flags) toOptions(cmd *cobra.Command, args []string) (*options, error) {
	channelName := ""
	if len(args) > 0 {
		channelName = args[0]
	}

	sourcePaths, err := collectPaths(f.sourcePaths)
	if err != nil {
		return nil, err
	}

	var dataSink sink.Sink
	if f.localOutput {
		dataSink = writer.NewSink(cmd.OutOrStdout())
	} else {
		var err error
		dataSink, err = remote.NewSink()
		if err != nil {
			return nil, err
		}
	}

	return &options{
		channelName: strings.ToLower(channelName),
		sourcePaths: sourcePaths,
		dataSink:    dataSink,
		localState:  f.localState,
		stateFile:   f.stateFile,
	}, nil
}
