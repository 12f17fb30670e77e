package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzuimdesk/notifykit/pkg/audit"
	"github.com/verzuimdesk/notifykit/pkg/notify"
)

func TestLogger_Log(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	n := notify.Notification{
		ID:          "n1",
		RecipientID: "alice",
		Type:        notify.TypeApprovalRequest,
	}

	t.Run("records the outcome", func(t *testing.T) {
		t.Parallel()

		storage := audit.NewMemoryStorage()
		logger := audit.NewLogger(storage)

		require.NoError(t, logger.Log(ctx, n, audit.StatusSent, audit.WithChannel(notify.ChannelEmail)))

		entries := storage.All()
		require.Len(t, entries, 1)
		assert.NotEmpty(t, entries[0].ID)
		assert.Equal(t, "n1", entries[0].NotificationID)
		assert.Equal(t, "alice", entries[0].RecipientID)
		assert.Equal(t, audit.StatusSent, entries[0].Status)
		assert.Equal(t, notify.ChannelEmail, entries[0].Channel)
		assert.False(t, entries[0].At.IsZero())
	})

	t.Run("records failure cause and metadata", func(t *testing.T) {
		t.Parallel()

		storage := audit.NewMemoryStorage()
		logger := audit.NewLogger(storage)

		require.NoError(t, logger.Log(ctx, n, audit.StatusFailed,
			audit.WithError(errors.New("smtp timeout")),
			audit.WithMetadata(map[string]any{"attempt": 2}),
		))

		entries := storage.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "smtp timeout", entries[0].Error)
		assert.Equal(t, 2, entries[0].Metadata["attempt"])
	})

	t.Run("rejects entries without a notification id", func(t *testing.T) {
		t.Parallel()

		logger := audit.NewLogger(audit.NewMemoryStorage())
		err := logger.Log(ctx, notify.Notification{RecipientID: "alice"}, audit.StatusSent)
		require.ErrorIs(t, err, audit.ErrEntryValidation)
	})

	t.Run("nil storage panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { audit.NewLogger(nil) })
	})
}

func TestMemoryStorage_Queries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := audit.NewMemoryStorage()
	logger := audit.NewLogger(storage)

	alice := notify.Notification{ID: "n1", RecipientID: "alice"}
	bob := notify.Notification{ID: "n2", RecipientID: "bob"}

	require.NoError(t, logger.Log(ctx, alice, audit.StatusSent, audit.WithChannel(notify.ChannelInApp)))
	require.NoError(t, logger.Log(ctx, alice, audit.StatusSent, audit.WithChannel(notify.ChannelEmail)))
	require.NoError(t, logger.Log(ctx, bob, audit.StatusSuppressed))

	t.Run("by notification", func(t *testing.T) {
		t.Parallel()

		entries, err := storage.ByNotification(ctx, "n1")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("by recipient since", func(t *testing.T) {
		t.Parallel()

		entries, err := storage.ByRecipient(ctx, "bob", time.Now().Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, audit.StatusSuppressed, entries[0].Status)

		entries, err = storage.ByRecipient(ctx, "bob", time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestLogger_AsyncBuffer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := audit.NewMemoryStorage()
	logger := audit.NewLogger(storage, audit.WithAsyncBuffer(64))

	n := notify.Notification{ID: "n1", RecipientID: "alice"}
	for range 10 {
		require.NoError(t, logger.Log(ctx, n, audit.StatusSent))
	}

	// Writes land in the background; poll briefly instead of sleeping a
	// fixed interval.
	require.Eventually(t, func() bool {
		return len(storage.All()) == 10
	}, time.Second, 10*time.Millisecond)
}

func TestLogger_Close(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := notify.Notification{ID: "n1", RecipientID: "alice"}

	t.Run("drains the async buffer", func(t *testing.T) {
		t.Parallel()

		storage := audit.NewMemoryStorage()
		logger := audit.NewLogger(storage, audit.WithAsyncBuffer(64))

		for range 10 {
			require.NoError(t, logger.Log(ctx, n, audit.StatusSent))
		}
		require.NoError(t, logger.Close())

		assert.Len(t, storage.All(), 10)
	})

	t.Run("no-op without a buffer", func(t *testing.T) {
		t.Parallel()

		logger := audit.NewLogger(audit.NewMemoryStorage())
		require.NoError(t, logger.Close())
	})
}
