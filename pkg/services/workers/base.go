package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Handler processes one message. A nil return acks it; an error naks it so
// JetStream redelivers until the consumer's MaxDeliver is reached.
type Handler func(ctx context.Context, msg *nats.Msg) error

type BaseWorker struct {
	name     string
	js       nats.JetStreamContext
	mu       sync.Mutex
	sub      *nats.Subscription
	consumer string
	stream   string
	subject  string
	logger   zerolog.Logger
}

func NewBaseWorker(name string, js nats.JetStreamContext, stream, consumer, subject string, logger zerolog.Logger) *BaseWorker {
	return &BaseWorker{
		name:     name,
		js:       js,
		consumer: consumer,
		stream:   stream,
		subject:  subject,
		logger:   logger.With().Str("component", "worker").Str("worker", name).Logger(),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sub != nil {
		return w.sub.Drain()
	}
	return nil
}

func (w *BaseWorker) processMessages(ctx context.Context, handler Handler) error {
	sub, err := w.js.PullSubscribe(w.subject, w.consumer,
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.Bind(w.stream, w.consumer),
	)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.sub = sub
	w.mu.Unlock()

	w.logger.Info().Str("stream", w.stream).Str("consumer", w.consumer).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopping")
			return ctx.Err()
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(2*time.Second))
		switch {
		case err == nil, errors.Is(err, nats.ErrTimeout):
		case errors.Is(err, nats.ErrConnectionClosed),
			errors.Is(err, nats.ErrBadSubscription),
			errors.Is(err, nats.ErrSubscriptionClosed):
			return err
		default:
			w.logger.Error().Err(err).Msg("error fetching messages")
			continue
		}

		for _, msg := range msgs {
			if err := handler(ctx, msg); err != nil {
				w.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("message not processed, requesting redelivery")
				if nakErr := msg.Nak(); nakErr != nil {
					w.logger.Error().Err(nakErr).Msg("error negatively acknowledging message")
				}
				continue
			}
			if err := msg.Ack(); err != nil {
				w.logger.Error().Err(err).Msg("error acknowledging message")
			}
		}
	}
}
