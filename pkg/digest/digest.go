package digest

import (
	"fmt"
	"time"

	"github.com/verzuimdesk/notifykit/pkg/batch"
	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// Section is one priority bucket of a rendered digest.
type Section struct {
	Title string                `json:"title"`
	Icon  string                `json:"icon"`
	Items []notify.Notification `json:"items"`
}

// Fixed section metadata per priority bucket. Titles and icons are lookup
// constants, never derived from item content.
var sectionMeta = map[notify.Priority]struct {
	title string
	icon  string
}{
	notify.PriorityCritical: {title: "Needs immediate attention", icon: "🚨"},
	notify.PriorityHigh:     {title: "Important", icon: "⚠️"},
	notify.PriorityNormal:   {title: "Updates", icon: "📋"},
	notify.PriorityLow:      {title: "For your information", icon: "💡"},
}

// sectionOrder is the fixed display order of the buckets.
var sectionOrder = []notify.Priority{
	notify.PriorityCritical,
	notify.PriorityHigh,
	notify.PriorityNormal,
	notify.PriorityLow,
}

// Sections partitions notifications into the four fixed priority buckets,
// in display order, omitting empty buckets entirely. Item order within a
// bucket follows input order. Pure, no I/O.
func Sections(notifs []notify.Notification) []Section {
	buckets := make(map[notify.Priority][]notify.Notification, len(sectionOrder))
	for _, n := range notifs {
		p := n.Priority
		if _, known := sectionMeta[p]; !known {
			p = notify.PriorityNormal
		}
		buckets[p] = append(buckets[p], n)
	}

	var out []Section
	for _, p := range sectionOrder {
		items := buckets[p]
		if len(items) == 0 {
			continue
		}
		meta := sectionMeta[p]
		out = append(out, Section{
			Title: meta.title,
			Icon:  meta.icon,
			Items: items,
		})
	}
	return out
}

// Payload is the rendered digest handed to the external delivery layer for
// email or in-app rendering.
type Payload struct {
	RecipientID   string    `json:"recipient_id"`
	Subject       string    `json:"subject"`
	Sections      []Section `json:"sections"`
	ScheduledSend time.Time `json:"scheduled_send"`
}

// BuildPayload renders a batch into a digest payload with a deterministic
// subject line.
func BuildPayload(b *batch.Batch) Payload {
	return Payload{
		RecipientID:   b.RecipientID,
		Subject:       subject(b.Tier, len(b.Notifications)),
		Sections:      Sections(b.Notifications),
		ScheduledSend: b.ScheduledSend,
	}
}

func subject(tier notify.BatchTier, count int) string {
	noun := "updates"
	if count == 1 {
		noun = "update"
	}
	switch tier {
	case notify.TierWeekly:
		return fmt.Sprintf("Your weekly digest: %d %s", count, noun)
	case notify.TierDaily:
		return fmt.Sprintf("Your daily digest: %d %s", count, noun)
	default:
		return fmt.Sprintf("%d new %s", count, noun)
	}
}
