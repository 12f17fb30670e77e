package engine

import (
	"context"
	"log/slog"

	"github.com/verzuimdesk/notifykit/pkg/digest"
	"github.com/verzuimdesk/notifykit/pkg/logger"
	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// LogDispatcher is a Dispatcher that only logs. Useful in development and
// as the default before real transports are wired up.
type LogDispatcher struct {
	log *slog.Logger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher(log *slog.Logger) *LogDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, req notify.DispatchRequest) error {
	d.log.LogAttrs(ctx, slog.LevelInfo, "dispatch",
		logger.NotificationID(req.NotificationID),
		logger.RecipientID(req.RecipientID),
		logger.Channel(req.Channel),
		slog.String("title", req.Title),
	)
	return nil
}

func (d *LogDispatcher) DispatchDigest(ctx context.Context, payload digest.Payload, channel notify.Channel) error {
	d.log.LogAttrs(ctx, slog.LevelInfo, "dispatch digest",
		logger.RecipientID(payload.RecipientID),
		logger.Channel(channel),
		slog.String("subject", payload.Subject),
		logger.Count(len(payload.Sections)),
	)
	return nil
}
