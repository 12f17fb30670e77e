package routing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/verzuimdesk/notifykit/pkg/notify"
	"github.com/verzuimdesk/notifykit/pkg/routing"
)

func selectorAt(t *testing.T, at time.Time) *routing.Selector {
	t.Helper()
	return routing.NewSelector(routing.DefaultConfig(), routing.WithClock(func() time.Time { return at }))
}

func allEnabledPrefs() *notify.Preferences {
	return &notify.Preferences{
		RecipientID: "user-1",
		InApp:       notify.ChannelConfig{Enabled: true},
		Email:       notify.ChannelConfig{Enabled: true},
		SMS:         notify.ChannelConfig{Enabled: true},
		Push:        notify.ChannelConfig{Enabled: true},
	}
}

func TestSelector_NoPreferences(t *testing.T) {
	t.Parallel()

	s := selectorAt(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		priority notify.Priority
		want     []notify.Channel
	}{
		{notify.PriorityCritical, []notify.Channel{notify.ChannelInApp, notify.ChannelEmail, notify.ChannelSMS, notify.ChannelPush}},
		{notify.PriorityHigh, []notify.Channel{notify.ChannelInApp, notify.ChannelEmail, notify.ChannelPush}},
		{notify.PriorityNormal, []notify.Channel{notify.ChannelInApp, notify.ChannelEmail}},
		{notify.PriorityLow, []notify.Channel{notify.ChannelInApp}},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			t.Parallel()

			got := s.Select(notify.Notification{Type: notify.TypeTaskAssigned, Priority: tt.priority}, nil, notify.RecipientStatus{})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelector_CriticalNeverSuppressed(t *testing.T) {
	t.Parallel()

	critical := notify.Notification{Type: notify.TypePoortwachterWeek6, Priority: notify.PriorityCritical}
	want := []notify.Channel{notify.ChannelInApp, notify.ChannelEmail, notify.ChannelSMS}

	t.Run("sms disabled in preferences", func(t *testing.T) {
		t.Parallel()

		prefs := allEnabledPrefs()
		prefs.SMS = notify.ChannelConfig{}

		s := selectorAt(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, want, s.Select(critical, prefs, notify.RecipientStatus{}))
	})

	t.Run("all channels disabled", func(t *testing.T) {
		t.Parallel()

		prefs := &notify.Preferences{RecipientID: "user-1"}

		s := selectorAt(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, want, s.Select(critical, prefs, notify.RecipientStatus{}))
	})

	t.Run("vacation with delegate", func(t *testing.T) {
		t.Parallel()

		s := selectorAt(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
		status := notify.RecipientStatus{Vacation: true, DelegateID: "user-2"}
		assert.Equal(t, want, s.Select(critical, allEnabledPrefs(), status))
	})
}

func TestSelector_Vacation(t *testing.T) {
	t.Parallel()

	s := selectorAt(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	n := notify.Notification{Type: notify.TypeTaskAssigned, Priority: notify.PriorityNormal}

	t.Run("delegate set suppresses delivery", func(t *testing.T) {
		t.Parallel()

		status := notify.RecipientStatus{Vacation: true, DelegateID: "user-2"}
		assert.Empty(t, s.Select(n, allEnabledPrefs(), status))
	})

	t.Run("no delegate keeps delivering", func(t *testing.T) {
		t.Parallel()

		status := notify.RecipientStatus{Vacation: true}
		got := s.Select(n, allEnabledPrefs(), status)
		assert.NotEmpty(t, got)
	})
}

func TestSelector_QuietHours(t *testing.T) {
	t.Parallel()

	prefs := func() *notify.Preferences {
		p := allEnabledPrefs()
		p.QuietHours = notify.QuietHours{
			Enabled: true,
			Start:   notify.TimeOfDay{Hour: 22},
			End:     notify.TimeOfDay{Hour: 8},
		}
		return p
	}

	n := notify.Notification{Type: notify.TypeTaskAssigned, Priority: notify.PriorityNormal}

	tests := []struct {
		name       string
		at         time.Time
		suppressed bool
	}{
		{"before midnight", time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), true},
		{"after midnight", time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), true},
		{"midday", time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), false},
		{"window start is inclusive", time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC), true},
		{"window end is exclusive", time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := selectorAt(t, tt.at).Select(n, prefs(), notify.RecipientStatus{})
			if tt.suppressed {
				assert.Empty(t, got)
			} else {
				assert.NotEmpty(t, got)
			}
		})
	}
}

func TestSelector_PreferenceFiltering(t *testing.T) {
	t.Parallel()

	s := selectorAt(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	t.Run("enabled channels intersected with type acceptance", func(t *testing.T) {
		t.Parallel()

		prefs := &notify.Preferences{
			RecipientID: "user-1",
			InApp:       notify.ChannelConfig{Enabled: true},
			Email: notify.ChannelConfig{
				Enabled: true,
				Types:   []notify.Type{notify.TypeLeaveRequest},
			},
			Push: notify.ChannelConfig{Enabled: true},
		}

		got := s.Select(notify.Notification{Type: notify.TypeTaskAssigned, Priority: notify.PriorityNormal}, prefs, notify.RecipientStatus{})
		assert.Equal(t, []notify.Channel{notify.ChannelInApp, notify.ChannelPush}, got)

		got = s.Select(notify.Notification{Type: notify.TypeLeaveRequest, Priority: notify.PriorityNormal}, prefs, notify.RecipientStatus{})
		assert.Equal(t, []notify.Channel{notify.ChannelInApp, notify.ChannelEmail, notify.ChannelPush}, got)
	})

	t.Run("per-type override narrows channels", func(t *testing.T) {
		t.Parallel()

		prefs := allEnabledPrefs()
		prefs.Overrides = map[notify.Type]notify.TypeOverride{
			notify.TypeBirthdayToday: {Channels: []notify.Channel{notify.ChannelInApp}},
		}

		got := s.Select(notify.Notification{Type: notify.TypeBirthdayToday, Priority: notify.PriorityLow}, prefs, notify.RecipientStatus{})
		assert.Equal(t, []notify.Channel{notify.ChannelInApp}, got)
	})

	t.Run("override cannot resurrect a disabled channel", func(t *testing.T) {
		t.Parallel()

		prefs := allEnabledPrefs()
		prefs.SMS = notify.ChannelConfig{}
		prefs.Overrides = map[notify.Type]notify.TypeOverride{
			notify.TypeApprovalRequest: {Channels: []notify.Channel{notify.ChannelSMS, notify.ChannelEmail}},
		}

		got := s.Select(notify.Notification{Type: notify.TypeApprovalRequest, Priority: notify.PriorityHigh}, prefs, notify.RecipientStatus{})
		assert.Equal(t, []notify.Channel{notify.ChannelEmail}, got)
	})

	t.Run("everything disabled suppresses delivery", func(t *testing.T) {
		t.Parallel()

		prefs := &notify.Preferences{RecipientID: "user-1"}
		got := s.Select(notify.Notification{Type: notify.TypeTaskAssigned, Priority: notify.PriorityNormal}, prefs, notify.RecipientStatus{})
		assert.Empty(t, got)
	})
}
