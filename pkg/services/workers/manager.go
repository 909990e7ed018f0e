package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	embeddednats "damage-intake/pkg/services/embedded-nats"

	"github.com/rs/zerolog"
)

type Manager struct {
	workers []Worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  zerolog.Logger
}

func NewManager(natsClient *embeddednats.EmbeddedNATS, sink ReportSink, logger zerolog.Logger) (*Manager, error) {
	if natsClient.Connection() == nil {
		return nil, fmt.Errorf("NATS connection not initialized")
	}

	js := natsClient.JetStream()
	if js == nil {
		return nil, fmt.Errorf("JetStream not initialized")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With().Str("component", "workers").Logger(),
		workers: []Worker{
			NewReportWorker(js, sink, logger),
			NewEventWorker(js, logger),
		},
	}, nil
}

func (m *Manager) Start() error {
	for _, worker := range m.workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()

			if err := w.Start(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error().Err(err).Str("worker", w.Name()).Msg("worker exited")
			}
		}(worker)
	}

	m.logger.Info().Int("count", len(m.workers)).Msg("started workers")
	return nil
}

// Stop cancels every worker and waits for them. The NATS connection belongs
// to the embedded server and stays open.
func (m *Manager) Stop() error {
	m.cancel()

	for _, worker := range m.workers {
		if err := worker.Stop(); err != nil {
			m.logger.Warn().Err(err).Str("worker", worker.Name()).Msg("error stopping worker")
		}
	}

	m.wg.Wait()
	m.logger.Info().Msg("all workers stopped")
	return nil
}
