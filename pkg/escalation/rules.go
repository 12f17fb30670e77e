package escalation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// TriggerKind is what condition arms an escalation rule.
type TriggerKind string

const (
	TriggerNoResponse         TriggerKind = "no_response_within"
	TriggerDeadlineApproaches TriggerKind = "deadline_approaching"
	TriggerSLABreach          TriggerKind = "sla_breach"
)

// Valid checks if the trigger kind is known.
func (t TriggerKind) Valid() bool {
	switch t {
	case TriggerNoResponse, TriggerDeadlineApproaches, TriggerSLABreach:
		return true
	}
	return false
}

// Role is who an escalation notification is addressed to.
type Role string

const (
	RoleManager   Role = "manager"
	RoleSeniorHR  Role = "senior_hr"
	RoleExecutive Role = "executive"
)

// Valid checks if the role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleSeniorHR, RoleExecutive:
		return true
	}
	return false
}

// ActionKind is what a fired rule does.
type ActionKind string

const (
	ActionNotifyTarget ActionKind = "notify_target"
	ActionReassign     ActionKind = "reassign"
	ActionAutoApprove  ActionKind = "auto_approve"
)

// Valid checks if the action kind is known.
func (a ActionKind) Valid() bool {
	switch a {
	case ActionNotifyTarget, ActionReassign, ActionAutoApprove:
		return true
	}
	return false
}

// Rule is a named, independently toggleable escalation rule. A rule fires
// at most once per underlying notification.
type Rule struct {
	ID             string        `yaml:"id"`
	Name           string        `yaml:"name"`
	Enabled        bool          `yaml:"enabled"`
	Trigger        TriggerKind   `yaml:"trigger"`
	ThresholdHours int           `yaml:"threshold_hours"`
	Target         Role          `yaml:"target"`
	Action         ActionKind    `yaml:"action"`
	Types          []notify.Type `yaml:"types,omitempty"` // empty = all types
}

// Matches reports whether the rule watches the given notification type.
func (r Rule) Matches(t notify.Type) bool {
	if len(r.Types) == 0 {
		return true
	}
	for _, watched := range r.Types {
		if watched == t {
			return true
		}
	}
	return false
}

// Validate checks the rule is well-formed.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: rule has no id", ErrInvalidRule)
	}
	if !r.Trigger.Valid() {
		return fmt.Errorf("%w: rule %s has unknown trigger %q", ErrInvalidRule, r.ID, r.Trigger)
	}
	if r.ThresholdHours <= 0 {
		return fmt.Errorf("%w: rule %s threshold must be positive", ErrInvalidRule, r.ID)
	}
	if !r.Target.Valid() {
		return fmt.Errorf("%w: rule %s has unknown target %q", ErrInvalidRule, r.ID, r.Target)
	}
	if !r.Action.Valid() {
		return fmt.Errorf("%w: rule %s has unknown action %q", ErrInvalidRule, r.ID, r.Action)
	}
	for _, t := range r.Types {
		if !t.Valid() {
			return fmt.Errorf("%w: rule %s watches unknown type %q", ErrInvalidRule, r.ID, t)
		}
	}
	return nil
}

// LoadRules reads an escalation rule set from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read escalation rules: %w", err)
	}

	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse escalation rules: %w", err)
	}

	seen := make(map[string]bool, len(doc.Rules))
	for _, r := range doc.Rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRule, r.ID)
		}
		seen[r.ID] = true
	}
	return doc.Rules, nil
}
