package escalation_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzuimdesk/notifykit/pkg/escalation"
	"github.com/verzuimdesk/notifykit/pkg/notify"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "escalation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRules(t *testing.T) {
	t.Parallel()

	t.Run("valid rule set", func(t *testing.T) {
		t.Parallel()

		path := writeRules(t, `
rules:
  - id: unanswered-approvals
    name: Unanswered approval requests
    enabled: true
    trigger: no_response_within
    threshold_hours: 48
    target: manager
    action: notify_target
    types: [approval_request, leave_request]
  - id: poortwachter-sla
    name: Poortwachter SLA breach
    enabled: true
    trigger: sla_breach
    threshold_hours: 1
    target: senior_hr
    action: reassign
`)

		rules, err := escalation.LoadRules(path)
		require.NoError(t, err)
		require.Len(t, rules, 2)

		assert.Equal(t, "unanswered-approvals", rules[0].ID)
		assert.Equal(t, escalation.TriggerNoResponse, rules[0].Trigger)
		assert.Equal(t, escalation.RoleManager, rules[0].Target)
		assert.Equal(t, escalation.ActionNotifyTarget, rules[0].Action)
		assert.Equal(t, []notify.Type{notify.TypeApprovalRequest, notify.TypeLeaveRequest}, rules[0].Types)

		assert.Equal(t, escalation.TriggerSLABreach, rules[1].Trigger)
		assert.Empty(t, rules[1].Types)
		assert.True(t, rules[1].Matches(notify.TypeBirthdayToday))
	})

	t.Run("duplicate rule id", func(t *testing.T) {
		t.Parallel()

		path := writeRules(t, `
rules:
  - id: dupe
    name: a
    enabled: true
    trigger: no_response_within
    threshold_hours: 24
    target: manager
    action: notify_target
  - id: dupe
    name: b
    enabled: true
    trigger: sla_breach
    threshold_hours: 24
    target: executive
    action: auto_approve
`)

		_, err := escalation.LoadRules(path)
		require.ErrorIs(t, err, escalation.ErrInvalidRule)
	})

	t.Run("invalid rule", func(t *testing.T) {
		t.Parallel()

		path := writeRules(t, `
rules:
  - id: bad
    name: bad
    enabled: true
    trigger: whenever
    threshold_hours: 24
    target: manager
    action: notify_target
`)

		_, err := escalation.LoadRules(path)
		require.ErrorIs(t, err, escalation.ErrInvalidRule)
	})
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	valid := escalation.Rule{
		ID:             "r1",
		Name:           "r1",
		Enabled:        true,
		Trigger:        escalation.TriggerNoResponse,
		ThresholdHours: 24,
		Target:         escalation.RoleManager,
		Action:         escalation.ActionNotifyTarget,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*escalation.Rule)
	}{
		{"missing id", func(r *escalation.Rule) { r.ID = "" }},
		{"unknown trigger", func(r *escalation.Rule) { r.Trigger = "sometimes" }},
		{"zero threshold", func(r *escalation.Rule) { r.ThresholdHours = 0 }},
		{"unknown target", func(r *escalation.Rule) { r.Target = "intern" }},
		{"unknown action", func(r *escalation.Rule) { r.Action = "shrug" }},
		{"unknown watched type", func(r *escalation.Rule) { r.Types = []notify.Type{"mystery"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := valid
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), escalation.ErrInvalidRule)
		})
	}
}
