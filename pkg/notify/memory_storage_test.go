package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

func pending(id, recipient string, due time.Time) notify.Notification {
	return notify.Notification{
		ID:            id,
		RecipientID:   recipient,
		Type:          notify.TypeTaskAssigned,
		Priority:      notify.PriorityNormal,
		BatchTier:     notify.TierInstant,
		Status:        notify.StatusPending,
		ScheduledSend: due,
	}
}

func TestMemoryStorage_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := notify.NewMemoryStorage()

	t.Run("requires id and recipient", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, s.Create(ctx, notify.Notification{RecipientID: "alice"}), notify.ErrMissingID)
		assert.ErrorIs(t, s.Create(ctx, notify.Notification{ID: "n1"}), notify.ErrMissingRecipient)
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		n := pending("n-rt", "alice", time.Now())
		require.NoError(t, s.Create(ctx, n))

		got, err := s.Get(ctx, "alice", "n-rt")
		require.NoError(t, err)
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, notify.StatusPending, got.Status)
	})

	t.Run("get scoped to recipient", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, s.Create(ctx, pending("n-scope", "alice", time.Now())))

		_, err := s.Get(ctx, "bob", "n-scope")
		assert.ErrorIs(t, err, notify.ErrNotificationNotFound)
	})
}

func TestMemoryStorage_ClaimDue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	t.Run("claims elapsed pending in arrival order", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		require.NoError(t, s.Create(ctx, pending("n1", "alice", now.Add(-time.Minute))))
		require.NoError(t, s.Create(ctx, pending("n2", "alice", now.Add(time.Hour))))
		require.NoError(t, s.Create(ctx, pending("n3", "bob", now)))

		claimed, err := s.ClaimDue(ctx, now, 0)
		require.NoError(t, err)
		require.Len(t, claimed, 2)
		assert.Equal(t, "n1", claimed[0].ID)
		assert.Equal(t, "n3", claimed[1].ID)
		assert.Equal(t, notify.StatusDispatching, claimed[0].Status)
	})

	t.Run("claim is at most once", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		require.NoError(t, s.Create(ctx, pending("n1", "alice", now)))

		first, err := s.ClaimDue(ctx, now, 0)
		require.NoError(t, err)
		require.Len(t, first, 1)

		second, err := s.ClaimDue(ctx, now, 0)
		require.NoError(t, err)
		assert.Empty(t, second)
	})

	t.Run("honors the limit", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		for _, id := range []string{"n1", "n2", "n3"} {
			require.NoError(t, s.Create(ctx, pending(id, "alice", now)))
		}

		claimed, err := s.ClaimDue(ctx, now, 2)
		require.NoError(t, err)
		assert.Len(t, claimed, 2)
	})
}

func TestMemoryStorage_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	t.Run("mark sent freezes delivery", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		require.NoError(t, s.Create(ctx, pending("n1", "alice", now)))

		channels := []notify.Channel{notify.ChannelInApp, notify.ChannelEmail}
		require.NoError(t, s.MarkSent(ctx, "n1", now, channels))

		got, err := s.Get(ctx, "alice", "n1")
		require.NoError(t, err)
		assert.Equal(t, notify.StatusSent, got.Status)
		assert.Equal(t, channels, got.Channels)
		require.NotNil(t, got.SentAt)

		assert.ErrorIs(t, s.MarkSent(ctx, "n1", now, channels), notify.ErrAlreadyDelivered)
		assert.ErrorIs(t, s.Reschedule(ctx, "n1", now, channels), notify.ErrAlreadyDelivered)
	})

	t.Run("reschedule re-enqueues with narrowed channels", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		require.NoError(t, s.Create(ctx, pending("n1", "alice", now)))

		_, err := s.ClaimDue(ctx, now, 0)
		require.NoError(t, err)

		retryAt := now.Add(5 * time.Minute)
		require.NoError(t, s.Reschedule(ctx, "n1", retryAt, []notify.Channel{notify.ChannelSMS}))

		got, err := s.Get(ctx, "alice", "n1")
		require.NoError(t, err)
		assert.Equal(t, notify.StatusPending, got.Status)
		assert.Equal(t, retryAt, got.ScheduledSend)
		assert.Equal(t, []notify.Channel{notify.ChannelSMS}, got.Channels)
		assert.True(t, got.Retried())

		claimed, err := s.ClaimDue(ctx, retryAt, 0)
		require.NoError(t, err)
		assert.Len(t, claimed, 1)
	})

	t.Run("cancel skips delivered notifications", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		require.NoError(t, s.Create(ctx, pending("n1", "alice", now)))
		require.NoError(t, s.Create(ctx, pending("n2", "alice", now)))
		require.NoError(t, s.MarkSent(ctx, "n1", now, nil))

		require.NoError(t, s.Cancel(ctx, "alice", "n1", "n2"))

		sent, err := s.Get(ctx, "alice", "n1")
		require.NoError(t, err)
		assert.Equal(t, notify.StatusSent, sent.Status)

		cancelled, err := s.Get(ctx, "alice", "n2")
		require.NoError(t, err)
		assert.Equal(t, notify.StatusCancelled, cancelled.Status)
	})

	t.Run("unread counts only sent unread", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		require.NoError(t, s.Create(ctx, pending("n1", "alice", now)))
		require.NoError(t, s.Create(ctx, pending("n2", "alice", now)))
		require.NoError(t, s.Create(ctx, pending("n3", "alice", now)))
		require.NoError(t, s.MarkSent(ctx, "n1", now, nil))
		require.NoError(t, s.MarkSent(ctx, "n2", now, nil))

		count, err := s.CountUnread(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, s.MarkRead(ctx, "alice", "n1"))

		count, err = s.CountUnread(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("mark actioned", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		require.NoError(t, s.Create(ctx, pending("n1", "alice", now)))

		require.ErrorIs(t, s.MarkActioned(ctx, "bob", "n1"), notify.ErrNotificationNotFound)
		require.NoError(t, s.MarkActioned(ctx, "alice", "n1"))

		got, err := s.Get(ctx, "alice", "n1")
		require.NoError(t, err)
		assert.True(t, got.Actioned)
		require.NotNil(t, got.ActionedAt)
	})
}

func TestMemoryStorage_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	s := notify.NewMemoryStorage()
	require.NoError(t, s.Create(ctx, pending("n1", "alice", now)))
	require.NoError(t, s.Create(ctx, pending("n2", "alice", now)))
	leave := pending("n3", "alice", now)
	leave.Type = notify.TypeLeaveRequest
	require.NoError(t, s.Create(ctx, leave))
	require.NoError(t, s.Create(ctx, pending("n4", "bob", now)))
	require.NoError(t, s.MarkSent(ctx, "n1", now, nil))
	require.NoError(t, s.MarkRead(ctx, "alice", "n1"))

	t.Run("all for recipient", func(t *testing.T) {
		t.Parallel()

		got, err := s.List(ctx, "alice", notify.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("only unread", func(t *testing.T) {
		t.Parallel()

		got, err := s.List(ctx, "alice", notify.ListOptions{OnlyUnread: true})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by status", func(t *testing.T) {
		t.Parallel()

		got, err := s.List(ctx, "alice", notify.ListOptions{Statuses: []notify.Status{notify.StatusSent}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "n1", got[0].ID)
	})

	t.Run("by type", func(t *testing.T) {
		t.Parallel()

		got, err := s.List(ctx, "alice", notify.ListOptions{Types: []notify.Type{notify.TypeLeaveRequest}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "n3", got[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		t.Parallel()

		got, err := s.List(ctx, "alice", notify.ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.List(ctx, "alice", notify.ListOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = s.List(ctx, "alice", notify.ListOptions{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemoryStorage_ListDelivered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	s := notify.NewMemoryStorage()

	old := pending("n1", "alice", now)
	old.CreatedAt = now.Add(-48 * time.Hour)
	require.NoError(t, s.Create(ctx, old))
	require.NoError(t, s.MarkSent(ctx, "n1", now, nil))

	recent := pending("n2", "alice", now)
	recent.CreatedAt = now
	require.NoError(t, s.Create(ctx, recent))
	require.NoError(t, s.MarkSent(ctx, "n2", now, nil))

	stillPending := pending("n3", "bob", now)
	stillPending.CreatedAt = now
	require.NoError(t, s.Create(ctx, stillPending))

	got, err := s.ListDelivered(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "n2", got[0].ID)
}
