package workers

import (
	"context"
	"encoding/json"

	"damage-intake/pkg/shared"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventWorker follows report outcomes. It only logs them; relays to chat or
// email subscribe here.
type EventWorker struct {
	*BaseWorker
}

func NewEventWorker(js nats.JetStreamContext, logger zerolog.Logger) *EventWorker {
	return &EventWorker{
		BaseWorker: NewBaseWorker(
			"EventWorker",
			js,
			shared.StreamEvents,
			shared.ConsumerEventRelay,
			shared.SubjectEventsAll,
			logger,
		),
	}
}

func (w *EventWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *EventWorker) handle(_ context.Context, msg *nats.Msg) error {
	var event shared.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		w.logger.Warn().Err(err).Str("subject", msg.Subject).Bytes("data", msg.Data).Msg("undecodable event")
		return nil
	}

	logEvent := w.logger.Info()
	if event.Type == shared.EventTypeRejected {
		logEvent = w.logger.Warn()
	}
	logEvent.
		Str("event_id", event.ID).
		Str("type", event.Type).
		Time("at", event.Timestamp).
		Interface("data", summarize(event.Data)).
		Msg("damage assessment outcome")
	return nil
}

// summarize drops the full report from accepted events.
func summarize(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k == "report" {
			continue
		}
		out[k] = v
	}
	return out
}
