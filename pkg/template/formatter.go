package template

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

var (
	// ErrUnknownType is returned (wrapped) when no template is registered
	// for a notification type and the fallback renders instead.
	ErrUnknownType = errors.New("no template registered for notification type")
)

// pair holds the parsed title and body templates for one type.
type pair struct {
	title *template.Template
	body  *template.Template
}

// Formatter renders a notification's title and body from its typed data
// payload using a per-type template. Pure function of its input, no state
// beyond the registered templates.
type Formatter struct {
	mu        sync.RWMutex
	templates map[notify.Type]pair
	fallback  pair
}

// New creates a Formatter with the stock templates for every known type.
func New() *Formatter {
	f := &Formatter{
		templates: make(map[notify.Type]pair),
		fallback: mustPair(
			"You have a new notification",
			"{{if .summary}}{{.summary}}{{else}}Open the app to view the details.{{end}}",
		),
	}
	for t, d := range defaults {
		f.templates[t] = mustPair(d.title, d.body)
	}
	return f
}

// Register parses and installs a custom template pair for a type,
// replacing the stock one.
func (f *Formatter) Register(t notify.Type, title, body string) error {
	titleTpl, err := template.New(string(t) + ".title").Parse(title)
	if err != nil {
		return fmt.Errorf("parse title template for %s: %w", t, err)
	}
	bodyTpl, err := template.New(string(t) + ".body").Parse(body)
	if err != nil {
		return fmt.Errorf("parse body template for %s: %w", t, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates[t] = pair{title: titleTpl, body: bodyTpl}
	return nil
}

// Render produces the title and body for the notification. An unknown type
// or a template execution failure falls back to the generic template and
// reports the cause; the returned strings are always usable, so a single
// misconfigured template never blocks a batch.
func (f *Formatter) Render(n notify.Notification) (title, body string, err error) {
	f.mu.RLock()
	p, ok := f.templates[n.Type]
	f.mu.RUnlock()

	if !ok {
		title, body, _ = f.execute(f.fallback, n.Data)
		return title, body, fmt.Errorf("%w: %s", ErrUnknownType, n.Type)
	}

	title, body, execErr := f.execute(p, n.Data)
	if execErr != nil {
		title, body, _ = f.execute(f.fallback, n.Data)
		return title, body, fmt.Errorf("render %s: %w", n.Type, execErr)
	}
	return title, body, nil
}

func (f *Formatter) execute(p pair, data map[string]any) (string, string, error) {
	if data == nil {
		data = map[string]any{}
	}

	var title strings.Builder
	if err := p.title.Execute(&title, data); err != nil {
		return "", "", err
	}
	var body strings.Builder
	if err := p.body.Execute(&body, data); err != nil {
		return "", "", err
	}
	return title.String(), body.String(), nil
}

func mustPair(title, body string) pair {
	return pair{
		title: template.Must(template.New("title").Parse(title)),
		body:  template.Must(template.New("body").Parse(body)),
	}
}

// defaults maps every known type to its stock template pair. Payload keys
// are the producer contract; missing keys render as empty strings rather
// than failing, matching the fail-soft configuration error policy.
var defaults = map[notify.Type]struct {
	title string
	body  string
}{
	notify.TypeDeadlineReminder: {
		title: "Deadline approaching: {{.subject}}",
		body:  "{{.subject}} is due in {{.days_left}} days.",
	},
	notify.TypePoortwachterWeek6: {
		title: "Week 6: problem analysis due for {{.employee}}",
		body:  "The Wet verbetering poortwachter problem analysis for {{.employee}} must be completed in {{.days_left}} days.",
	},
	notify.TypePoortwachterW42: {
		title: "Week 42: UWV notification due for {{.employee}}",
		body:  "The week 42 sick report for {{.employee}} must reach the UWV in {{.days_left}} days.",
	},
	notify.TypeLeaveRequest: {
		title: "Leave request from {{.employee}}",
		body:  "{{.employee}} requested {{.kind}} leave from {{.from}} to {{.until}}.",
	},
	notify.TypeLeaveDecided: {
		title: "Your leave request was {{.decision}}",
		body:  "Your {{.kind}} leave from {{.from}} to {{.until}} has been {{.decision}}.",
	},
	notify.TypeApprovalRequest: {
		title: "Approval needed: {{.subject}}",
		body:  "{{.requester}} is waiting for your approval on {{.subject}}.",
	},
	notify.TypeTaskAssigned: {
		title: "New task: {{.task}}",
		body:  "{{.assigner}} assigned you the task {{.task}}.",
	},
	notify.TypeTaskUpdated: {
		title: "Task updated: {{.task}}",
		body:  "The task {{.task}} changed: {{.change}}.",
	},
	notify.TypeDocumentSignature: {
		title: "Signature requested: {{.document}}",
		body:  "Please sign {{.document}} within {{.days_left}} days.",
	},
	notify.TypeDocumentExpiring: {
		title: "Document expiring: {{.document}}",
		body:  "{{.document}} expires in {{.days_left}} days.",
	},
	notify.TypeBirthdayToday: {
		title: "{{.employee}} has a birthday today",
		body:  "Wish {{.employee}} a happy birthday!",
	},
	notify.TypeWorkAnniversary: {
		title: "{{.employee}} celebrates {{.years}} years",
		body:  "{{.employee}} joined {{.years}} years ago today.",
	},
}
