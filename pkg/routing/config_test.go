package routing_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzuimdesk/notifykit/pkg/notify"
	"github.com/verzuimdesk/notifykit/pkg/routing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("valid table", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
critical:
  channels: [in_app, email, sms, push]
  deadline_hours: 24
  retry:
    delay: 5m
    channels: [sms, email]
high:
  channels: [in_app, email]
normal:
  channels: [in_app, email]
low:
  channels: [in_app]
`)

		cfg, err := routing.LoadConfig(path)
		require.NoError(t, err)

		rule := cfg.Rule(notify.PriorityCritical)
		assert.Len(t, rule.Channels, 4)
		require.NotNil(t, rule.Retry)
		assert.Equal(t, 5*time.Minute, rule.Retry.Delay)
		assert.Equal(t, []notify.Channel{notify.ChannelSMS, notify.ChannelEmail}, rule.Retry.Channels)

		assert.Nil(t, cfg.Rule(notify.PriorityLow).Retry)
	})

	t.Run("missing tier fails validation", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
critical:
  channels: [in_app]
high:
  channels: [in_app]
normal:
  channels: [in_app]
`)

		_, err := routing.LoadConfig(path)
		require.ErrorIs(t, err, routing.ErrInvalidConfig)
	})

	t.Run("unknown channel fails validation", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
critical:
  channels: [in_app, pigeon]
high:
  channels: [in_app]
normal:
  channels: [in_app]
low:
  channels: [in_app]
`)

		_, err := routing.LoadConfig(path)
		require.ErrorIs(t, err, routing.ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := routing.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestConfig_Retry(t *testing.T) {
	t.Parallel()

	cfg := routing.DefaultConfig()

	t.Run("critical earns a retry", func(t *testing.T) {
		t.Parallel()

		n := notify.Notification{ID: "n1", Priority: notify.PriorityCritical}
		failed := []notify.Channel{notify.ChannelEmail, notify.ChannelSMS}

		assert.True(t, cfg.ShouldRetry(n, failed))
		assert.Equal(t, []notify.Channel{notify.ChannelSMS, notify.ChannelEmail}, cfg.RetryChannels(n))
		assert.Equal(t, 5*time.Minute, cfg.RetryDelay(n))
	})

	t.Run("normal tier has no retry policy", func(t *testing.T) {
		t.Parallel()

		n := notify.Notification{ID: "n1", Priority: notify.PriorityNormal}
		assert.False(t, cfg.ShouldRetry(n, []notify.Channel{notify.ChannelEmail}))
		assert.Nil(t, cfg.RetryChannels(n))
		assert.Zero(t, cfg.RetryDelay(n))
	})

	t.Run("single retry cycle", func(t *testing.T) {
		t.Parallel()

		retried := time.Now()
		n := notify.Notification{ID: "n1", Priority: notify.PriorityCritical, RetriedAt: &retried}
		assert.False(t, cfg.ShouldRetry(n, []notify.Channel{notify.ChannelSMS}))
	})

	t.Run("no failed channels means no retry", func(t *testing.T) {
		t.Parallel()

		n := notify.Notification{ID: "n1", Priority: notify.PriorityCritical}
		assert.False(t, cfg.ShouldRetry(n, nil))
	})
}
