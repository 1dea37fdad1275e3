// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/anchorsync/anchorsync/internal/config"
	"github.com/anchorsync/anchorsync/internal/store/mongostore"
)

func TestCmds(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		cmd                  *cobra.Command
		args                 []string
		expectedError        error
		expectedErrorMessage string
		expectedErrorPrefix  string
		expectedUsage        bool
	}{
		"run command with no arguments returns no error and print usage": {
			cmd:           RunCmd(),
			args:          []string{},
			expectedUsage: true,
		},
		"run command with invalid channel returns error and usage": {
			cmd:                  RunCmd(),
			args:                 []string{"invalid"},
			expectedUsage:        true,
			expectedError:        errInvalidChannel,
			expectedErrorMessage: errInvalidChannel.Error() + ": " + "invalid" + "\n",
		},
		"run command missing path, return error no usage": {
			cmd:                  RunCmd(),
			args:                 []string{"nats", "--" + sourcePathFlagName, filepath.Join("testdata", "missing")},
			expectedError:        syscall.ENOENT,
			expectedErrorMessage: fmt.Sprintf("source file %q: %s\n", filepath.Join("testdata", "missing"), syscall.ENOENT),
		},
		"run command without source definitions returns error": {
			cmd:                  RunCmd(),
			args:                 []string{"nats"},
			expectedError:        errNoSources,
			expectedErrorMessage: errNoSources.Error() + "\n",
		},
		"run command with invalid source definitions returns parsing error": {
			cmd:                 RunCmd(),
			args:                []string{"nats", "--" + sourcePathFlagName, filepath.Join("testdata", "invalid.yaml")},
			expectedError:       config.ErrParsing,
			expectedErrorPrefix: config.ErrParsing.Error(),
		},
		"run command without store configuration returns error": {
			cmd:                 RunCmd(),
			args:                []string{"nats", "--" + sourcePathFlagName, filepath.Join("testdata", "sources.yaml")},
			expectedError:       mongostore.ErrMongoStore,
			expectedErrorPrefix: mongostore.ErrMongoStore.Error(),
		},
		"sync command without source definitions returns error": {
			cmd:                  SyncCmd(),
			args:                 []string{},
			expectedError:        errNoSources,
			expectedErrorMessage: errNoSources.Error() + "\n",
		},
		"sync command missing path, return error no usage": {
			cmd:                  SyncCmd(),
			args:                 []string{"--" + sourcePathFlagName, filepath.Join("testdata", "missing")},
			expectedError:        syscall.ENOENT,
			expectedErrorMessage: fmt.Sprintf("source file %q: %s\n", filepath.Join("testdata", "missing"), syscall.ENOENT),
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			errBuffer := new(bytes.Buffer)
			outBuffer := new(bytes.Buffer)
			test.cmd.SetOut(outBuffer)
			test.cmd.SetErr(errBuffer)
			test.cmd.SetUsageTemplate("usage string")
			test.cmd.SetArgs(append(test.args, "--"+localOutputFlagName)) // force local output to avoid external dependencies

			err := test.cmd.ExecuteContext(t.Context())
			if test.expectedError != nil {
				assert.ErrorIs(t, err, test.expectedError)
				if test.expectedErrorMessage != "" {
					assert.Equal(t, test.expectedErrorMessage, errBuffer.String())
				}
				if test.expectedErrorPrefix != "" {
					assert.Contains(t, errBuffer.String(), test.expectedErrorPrefix)
				}
			} else {
				assert.NoError(t, err)
				assert.Empty(t, errBuffer)
			}

			if test.expectedUsage {
				assert.Equal(t, "usage string", outBuffer.String())
			} else {
				assert.Empty(t, outBuffer)
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		args               []string
		toComplete         string
		expectedCompletion []string
	}{
		"no args, complete channel names": {
			args: []string{},
			expectedCompletion: []string{
				"nats\tcore NATS push channel",
				"pubsub\tGoogle Cloud Pub/Sub push channel",
				"webhook\tinbound HTTP webhook push channel",
			},
		},
		"prefix filters completions": {
			args:               []string{},
			toComplete:         "pub",
			expectedCompletion: []string{"pubsub\tGoogle Cloud Pub/Sub push channel"},
		},
		"some args, no completions": {
			args: []string{"nats"},
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			cmd := RunCmd()
			args, directive := validArgsFunc(availableChannels)(cmd, test.args, test.toComplete)
			assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
			assert.ElementsMatch(t, test.expectedCompletion, args)
		})
	}
}
