// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package natschan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChannelDefaults(t *testing.T) {
	channel, err := NewChannel()
	require.NoError(t, err)

	assert.Equal(t, "nats://127.0.0.1:4222", channel.config.URL)
	assert.Equal(t, "anchorsync.notifications", channel.config.Subject)
	assert.Equal(t, "anchorsync.control", channel.config.ControlSubject)
}

func TestNewChannelReadsEnvironment(t *testing.T) {
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("NATS_SUBJECT", "telemetry.changes")

	channel, err := NewChannel()
	require.NoError(t, err)

	assert.Equal(t, "nats://broker:4222", channel.config.URL)
	assert.Equal(t, "telemetry.changes", channel.config.Subject)
}

func TestControlMessageShape(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(controlMessage{Action: "enable", Type: "heartRate"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"enable","type":"heartRate"}`, string(body))
}
