package notify

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date, used for quiet-hours bounds.
type TimeOfDay struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

// Minutes returns the time of day as minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Valid checks if the time of day is within a 24-hour clock.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// QuietHours is a recipient-configured window during which only the
// highest-priority notifications may be delivered.
type QuietHours struct {
	Enabled bool      `json:"enabled" yaml:"enabled"`
	Start   TimeOfDay `json:"start" yaml:"start"`
	End     TimeOfDay `json:"end" yaml:"end"`
}

// Contains reports whether the given instant falls inside the quiet-hours
// window. Windows may wrap past midnight: 22:00-08:00 contains both 23:30
// and 03:00 but not 12:00.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.Enabled {
		return false
	}

	now := t.Hour()*60 + t.Minute()
	start := q.Start.Minutes()
	end := q.End.Minutes()

	if start == end {
		return false
	}
	if start < end {
		return now >= start && now < end
	}
	// Window wraps past midnight.
	return now >= start || now < end
}

// VacationMode suppresses delivery while a delegate handles the
// recipient's work. The delegate receives its own copy through the same
// pipeline, created by the producer.
type VacationMode struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	DelegateID string `json:"delegate_id,omitempty" yaml:"delegate_id,omitempty"`
}

// ChannelConfig is the per-channel preference: either fully enabled with a
// set of accepted notification types, or disabled. A nil type list on an
// enabled channel means the channel accepts all types.
type ChannelConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Types   []Type `json:"types,omitempty" yaml:"types,omitempty"`
}

// Accepts reports whether the channel config admits the given type.
func (c ChannelConfig) Accepts(t Type) bool {
	if !c.Enabled {
		return false
	}
	if c.Types == nil {
		return true
	}
	for _, allowed := range c.Types {
		if allowed == t {
			return true
		}
	}
	return false
}

// TypeOverride replaces the default channel set and/or priority for a
// specific notification type.
type TypeOverride struct {
	Channels []Channel `json:"channels,omitempty" yaml:"channels,omitempty"`
	Priority *Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Preferences is the per-recipient notification configuration. It is
// externally owned and consumed read-only by the engine.
type Preferences struct {
	RecipientID string    `json:"recipient_id"`
	Digest      BatchTier `json:"digest_preference"`

	QuietHours QuietHours   `json:"quiet_hours"`
	Vacation   VacationMode `json:"vacation_mode"`

	// One config per channel. Fixed fields rather than a keyed map so the
	// compiler catches a missing channel when the enum grows.
	InApp ChannelConfig `json:"in_app"`
	Email ChannelConfig `json:"email"`
	SMS   ChannelConfig `json:"sms"`
	Push  ChannelConfig `json:"push"`

	Overrides map[Type]TypeOverride `json:"overrides,omitempty"`
}

// Channel returns the config for the given channel.
func (p *Preferences) Channel(c Channel) ChannelConfig {
	switch c {
	case ChannelInApp:
		return p.InApp
	case ChannelEmail:
		return p.Email
	case ChannelSMS:
		return p.SMS
	case ChannelPush:
		return p.Push
	default:
		return ChannelConfig{}
	}
}

// EnabledChannels returns the channels the recipient has enabled for the
// given notification type, honoring a per-type channel override when set.
func (p *Preferences) EnabledChannels(t Type) []Channel {
	if ov, ok := p.Overrides[t]; ok && len(ov.Channels) > 0 {
		var out []Channel
		for _, c := range ov.Channels {
			if p.Channel(c).Enabled {
				out = append(out, c)
			}
		}
		return out
	}

	var out []Channel
	for _, c := range AllChannels() {
		if p.Channel(c).Accepts(t) {
			out = append(out, c)
		}
	}
	return out
}

// PriorityFor returns the effective declared priority for the given type,
// applying a per-type override when one exists.
func (p *Preferences) PriorityFor(t Type, declared Priority) Priority {
	if ov, ok := p.Overrides[t]; ok && ov.Priority != nil && ov.Priority.Valid() {
		return *ov.Priority
	}
	return declared
}

// Status derives a transient recipient status snapshot from the stored
// vacation mode. Products with a live profile source supply their own.
func (p *Preferences) Status() RecipientStatus {
	return RecipientStatus{
		Vacation:   p.Vacation.Enabled,
		DelegateID: p.Vacation.DelegateID,
	}
}

// Validate checks structural invariants: a channel config is either fully
// enabled+typed or disabled, never a partial state, and quiet-hours bounds
// are real wall-clock times.
func (p *Preferences) Validate() error {
	if p.Digest != "" && !p.Digest.Valid() {
		return fmt.Errorf("%w: unknown digest preference %q", ErrInvalidPreferences, p.Digest)
	}
	if p.QuietHours.Enabled {
		if !p.QuietHours.Start.Valid() || !p.QuietHours.End.Valid() {
			return fmt.Errorf("%w: quiet hours out of range", ErrInvalidPreferences)
		}
	}
	for _, c := range AllChannels() {
		cfg := p.Channel(c)
		if !cfg.Enabled && len(cfg.Types) > 0 {
			return fmt.Errorf("%w: channel %s disabled but carries a type list", ErrInvalidPreferences, c)
		}
		for _, t := range cfg.Types {
			if !t.Valid() {
				return fmt.Errorf("%w: channel %s lists unknown type %q", ErrInvalidPreferences, c, t)
			}
		}
	}
	return nil
}

// RecipientStatus is the transient per-recipient state consulted at
// channel-selection time.
type RecipientStatus struct {
	Vacation   bool   `json:"vacation"`
	DelegateID string `json:"delegate_id,omitempty"`
}
