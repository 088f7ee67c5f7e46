package events

import (
	"context"

	"github.com/Lawliet-Chan/offchain-storage/internal/logger"
)

// LogNotifier writes one structured log line per event. The payload itself
// is not logged, only its size.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev Event) error {
	logger.With(
		"event_id", ev.ID.String(),
		"kind", string(ev.Kind),
		"identifier", ev.Identifier.String(),
		"caller", string(ev.Caller),
		"size", len(ev.Data),
	).Info("notification")
	return nil
}
