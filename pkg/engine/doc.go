// Package engine assembles the notification pipeline: producers call
// Create to enqueue classified, scheduled notifications, and an external
// scheduler calls Tick to claim due work, flush it per recipient as
// instant dispatches or rendered digests, and run the escalation sweep.
//
// The engine owns prioritization, routing, batching, throttling, and
// auditing. Actual transport lives behind the Dispatcher interface
// supplied by the integrating product.
//
// Usage:
//
//	eng, err := engine.New(storage, prefsSource, dispatcher,
//		engine.WithAudit(auditLogger),
//		engine.WithThrottle(limiter),
//		engine.WithEscalation(evaluator),
//	)
//	if err != nil {
//		return err
//	}
//
//	// Producer side.
//	n, err := eng.Create(ctx, engine.CreateInput{
//		RecipientID: employeeID,
//		Type:        notify.TypePoortwachterWeek6,
//		Priority:    notify.PriorityHigh,
//		Data:        map[string]any{"employee": name, "days": 5},
//		Deadline:    &deadline,
//	})
//
//	// Scheduler side, e.g. every minute.
//	if err := eng.Tick(ctx); err != nil {
//		log.Error("tick failed", "error", err)
//	}
package engine
