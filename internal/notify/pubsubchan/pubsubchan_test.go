// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pubsubchan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfig(t *testing.T) {
	t.Parallel()

	t.Run("complete config", func(t *testing.T) {
		t.Parallel()

		err := checkConfig(Config{
			ProjectID:      "project",
			SubscriptionID: "subscription",
			ControlTopicID: "control",
		})
		assert.NoError(t, err)
	})

	t.Run("missing values are all reported", func(t *testing.T) {
		t.Parallel()

		err := checkConfig(Config{ProjectID: "project"})
		require.ErrorIs(t, err, ErrMissingEnvVariable)
		assert.ErrorContains(t, err, "GOOGLE_CLOUD_PUBSUB_SUBSCRIPTION")
		assert.ErrorContains(t, err, "GOOGLE_CLOUD_PUBSUB_CONTROL_TOPIC")
	})
}

func TestNewChannelReadsEnvironment(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PUBSUB_PROJECT", "project")
	t.Setenv("GOOGLE_CLOUD_PUBSUB_SUBSCRIPTION", "subscription")

	channel, err := NewChannel()
	require.NoError(t, err)

	assert.Equal(t, "project", channel.config.ProjectID)
	assert.Equal(t, "subscription", channel.config.SubscriptionID)
}
