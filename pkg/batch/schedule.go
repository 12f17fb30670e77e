package batch

import (
	"time"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// Default digest delivery moment for the daily and weekly tiers.
const (
	DefaultDigestHour    = 9
	DefaultDigestMinute  = 0
	DefaultDigestWeekday = time.Monday
)

// Schedule computes the send moment for one batch tier.
type Schedule struct {
	hour    int
	minute  int
	weekday time.Weekday
}

// NewSchedule creates a schedule with the given digest moment. The weekday
// only applies to the weekly tier.
func NewSchedule(hour, minute int, weekday time.Weekday) Schedule {
	return Schedule{hour: hour, minute: minute, weekday: weekday}
}

// DefaultSchedule delivers daily digests at 09:00 and weekly digests on
// Monday 09:00, local time.
func DefaultSchedule() Schedule {
	return NewSchedule(DefaultDigestHour, DefaultDigestMinute, DefaultDigestWeekday)
}

// For returns the scheduled send time for the given tier, relative to now:
// instant sends now, hourly in one hour, daily at the next digest moment
// (tomorrow's if today's already passed), weekly at the next digest
// weekday's moment.
func (s Schedule) For(tier notify.BatchTier, now time.Time) time.Time {
	switch tier {
	case notify.TierInstant:
		return now
	case notify.TierHourly:
		return now.Add(time.Hour)
	case notify.TierDaily:
		return s.nextDaily(now)
	case notify.TierWeekly:
		return s.nextWeekly(now)
	default:
		return now
	}
}

func (s Schedule) nextDaily(from time.Time) time.Time {
	next := time.Date(
		from.Year(), from.Month(), from.Day(),
		s.hour, s.minute, 0, 0, from.Location(),
	)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s Schedule) nextWeekly(from time.Time) time.Time {
	// Days until the target weekday, modulo handles week wraparound.
	daysUntil := (int(s.weekday) - int(from.Weekday()) + 7) % 7

	next := from.AddDate(0, 0, daysUntil)
	next = time.Date(
		next.Year(), next.Month(), next.Day(),
		s.hour, s.minute, 0, 0, next.Location(),
	)
	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
