// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	runCmdUsageTemplate = "run [%s]"
	runCmdShort         = "start the synchronization engine with a push channel"
	runCmdLong          = `Start the synchronization engine with a push channel.
	The engine activates every source declared in the source definition files
	and keeps collecting until interrupted. Sources configured with push
	delivery receive their change notifications through the chosen channel.

	The available channels are:
	- nats: core NATS subject pair
	- pubsub: Google Cloud Pub/Sub subscription
	- webhook: inbound HTTP webhook`

	runCmdExample = `# Run the engine with the NATS push channel
	anchorsync run nats --source-file sources.yaml`

	syncCmdUsage   = "sync"
	syncCmdShort   = "collect every declared source once"
	syncCmdLong    = `Collect every declared source once.
	The synchronization process performs a single pull per declared source and
	exits; delivery policies are ignored and no push channel is involved.`
	syncCmdExample = `# Collect all sources once writing records to stdout
	anchorsync sync --source-file sources.yaml --local-output`
)

// RunCmd returns the Cobra command that starts the synchronization engine.
func RunCmd() *cobra.Command {
	flags := &flags{}
	allChannels := slices.Sorted(maps.Keys(availableChannels))
	cmd := &cobra.Command{
		Use:     fmt.Sprintf(runCmdUsageTemplate, strings.Join(allChannels, "|")),
		Short:   heredoc.Doc(runCmdShort),
		Long:    heredoc.Doc(runCmdLong),
		Example: heredoc.Doc(runCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: validArgsFunc(availableChannels),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validateRun(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executeRun(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}

// SyncCmd returns the Cobra command that performs a one-shot collection.
func SyncCmd() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:     syncCmdUsage,
		Short:   heredoc.Doc(syncCmdShort),
		Long:    heredoc.Doc(syncCmdLong),
		Example: heredoc.Doc(syncCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validateSync(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executeSync(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}
