package throttle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzuimdesk/notifykit/pkg/notify"
	"github.com/verzuimdesk/notifykit/pkg/throttle"
)

func TestNewLimiter_Validation(t *testing.T) {
	t.Parallel()

	store := throttle.NewMemoryStore()

	_, err := throttle.NewLimiter(nil, 5, time.Hour)
	assert.ErrorIs(t, err, throttle.ErrStoreRequired)

	_, err = throttle.NewLimiter(store, 0, time.Hour)
	assert.ErrorIs(t, err, throttle.ErrInvalidLimit)

	_, err = throttle.NewLimiter(store, 5, 0)
	assert.ErrorIs(t, err, throttle.ErrInvalidWindow)
}

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("caps sends within the window", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
		l, err := throttle.NewLimiter(throttle.NewMemoryStore(), 3, time.Hour,
			throttle.WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		for range 3 {
			ok, err := l.Allow(ctx, "alice", notify.ChannelEmail)
			require.NoError(t, err)
			assert.True(t, ok)
		}

		ok, err := l.Allow(ctx, "alice", notify.ChannelEmail)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("window slides", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
		l, err := throttle.NewLimiter(throttle.NewMemoryStore(), 1, time.Hour,
			throttle.WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		ok, err := l.Allow(ctx, "alice", notify.ChannelSMS)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = l.Allow(ctx, "alice", notify.ChannelSMS)
		require.NoError(t, err)
		require.False(t, ok)

		now = now.Add(61 * time.Minute)
		ok, err = l.Allow(ctx, "alice", notify.ChannelSMS)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("recipients and channels are counted separately", func(t *testing.T) {
		t.Parallel()

		l, err := throttle.NewLimiter(throttle.NewMemoryStore(), 1, time.Hour)
		require.NoError(t, err)

		ok, err := l.Allow(ctx, "alice", notify.ChannelEmail)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = l.Allow(ctx, "alice", notify.ChannelInApp)
		require.NoError(t, err)
		assert.True(t, ok, "other channel has its own counter")

		ok, err = l.Allow(ctx, "bob", notify.ChannelEmail)
		require.NoError(t, err)
		assert.True(t, ok, "other recipient has their own counter")
	})

	t.Run("reset clears the counter", func(t *testing.T) {
		t.Parallel()

		l, err := throttle.NewLimiter(throttle.NewMemoryStore(), 1, time.Hour)
		require.NoError(t, err)

		ok, err := l.Allow(ctx, "alice", notify.ChannelEmail)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, l.Reset(ctx, "alice", notify.ChannelEmail))

		ok, err = l.Allow(ctx, "alice", notify.ChannelEmail)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("remaining", func(t *testing.T) {
		t.Parallel()

		l, err := throttle.NewLimiter(throttle.NewMemoryStore(), 3, time.Hour)
		require.NoError(t, err)

		left, err := l.Remaining(ctx, "alice", notify.ChannelEmail)
		require.NoError(t, err)
		assert.Equal(t, 3, left)

		_, err = l.Allow(ctx, "alice", notify.ChannelEmail)
		require.NoError(t, err)

		left, err = l.Remaining(ctx, "alice", notify.ChannelEmail)
		require.NoError(t, err)
		assert.Equal(t, 2, left)
	})
}
