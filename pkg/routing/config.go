package routing

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// RetryPolicy describes the single retry cycle granted after a total
// delivery failure: wait Delay, then retry on the narrowed Channels subset.
type RetryPolicy struct {
	Delay    time.Duration    `yaml:"delay"`
	Channels []notify.Channel `yaml:"channels"`
}

// UnmarshalYAML parses the delay as a Go duration string ("5m", "1h30m").
func (p *RetryPolicy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Delay    string           `yaml:"delay"`
		Channels []notify.Channel `yaml:"channels"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Delay != "" {
		d, err := time.ParseDuration(raw.Delay)
		if err != nil {
			return fmt.Errorf("parse retry delay: %w", err)
		}
		p.Delay = d
	}
	p.Channels = raw.Channels
	return nil
}

// Rule is the static routing entry for one priority tier: the default
// channel set, an optional deadline-hours threshold, and an optional
// retry policy.
type Rule struct {
	Channels      []notify.Channel `yaml:"channels"`
	DeadlineHours int              `yaml:"deadline_hours,omitempty"`
	Retry         *RetryPolicy     `yaml:"retry,omitempty"`
}

// Config is the full routing table, one rule per priority tier. It is
// configuration data passed in at construction time, never module state,
// so the engine stays instantiable multiple times.
type Config struct {
	Critical Rule `yaml:"critical"`
	High     Rule `yaml:"high"`
	Normal   Rule `yaml:"normal"`
	Low      Rule `yaml:"low"`
}

// Rule returns the routing rule for the given priority tier.
func (c Config) Rule(p notify.Priority) Rule {
	switch p {
	case notify.PriorityCritical:
		return c.Critical
	case notify.PriorityHigh:
		return c.High
	case notify.PriorityLow:
		return c.Low
	default:
		return c.Normal
	}
}

// DefaultConfig returns the stock routing table: critical fans out to all
// four channels and retries on high-signal ones, low stays in-app only.
func DefaultConfig() Config {
	return Config{
		Critical: Rule{
			Channels:      notify.AllChannels(),
			DeadlineHours: 24,
			Retry: &RetryPolicy{
				Delay:    5 * time.Minute,
				Channels: []notify.Channel{notify.ChannelSMS, notify.ChannelEmail},
			},
		},
		High: Rule{
			Channels:      []notify.Channel{notify.ChannelInApp, notify.ChannelEmail, notify.ChannelPush},
			DeadlineHours: 72,
			Retry: &RetryPolicy{
				Delay:    15 * time.Minute,
				Channels: []notify.Channel{notify.ChannelEmail},
			},
		},
		Normal: Rule{
			Channels: []notify.Channel{notify.ChannelInApp, notify.ChannelEmail},
		},
		Low: Rule{
			Channels: []notify.Channel{notify.ChannelInApp},
		},
	}
}

// LoadConfig reads a routing table from a YAML file and validates it.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read routing config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse routing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every tier has at least one valid channel and that
// retry policies are well-formed.
func (c Config) Validate() error {
	for _, p := range []notify.Priority{
		notify.PriorityCritical, notify.PriorityHigh,
		notify.PriorityNormal, notify.PriorityLow,
	} {
		rule := c.Rule(p)
		if len(rule.Channels) == 0 {
			return fmt.Errorf("%w: tier %s has no channels", ErrInvalidConfig, p)
		}
		for _, ch := range rule.Channels {
			if !ch.Valid() {
				return fmt.Errorf("%w: tier %s lists unknown channel %q", ErrInvalidConfig, p, ch)
			}
		}
		if rule.Retry != nil {
			if rule.Retry.Delay <= 0 {
				return fmt.Errorf("%w: tier %s retry delay must be positive", ErrInvalidConfig, p)
			}
			if len(rule.Retry.Channels) == 0 {
				return fmt.Errorf("%w: tier %s retry has no channels", ErrInvalidConfig, p)
			}
			for _, ch := range rule.Retry.Channels {
				if !ch.Valid() {
					return fmt.Errorf("%w: tier %s retry lists unknown channel %q", ErrInvalidConfig, p, ch)
				}
			}
		}
	}
	return nil
}
