package workers

import (
	"context"
	"fmt"

	"damage-intake/pkg/damage"
	"damage-intake/pkg/observability"
	"damage-intake/pkg/ontology"
	"damage-intake/pkg/shared"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// ReportSink stores accepted reports and announces rejected ones.
type ReportSink interface {
	damage.Store
	PublishRejected(rejection ontology.Rejection)
}

// ReportWorker turns wire text arriving on the intake stream into stored
// reports.
type ReportWorker struct {
	*BaseWorker
	sink ReportSink
}

func NewReportWorker(js nats.JetStreamContext, sink ReportSink, logger zerolog.Logger) *ReportWorker {
	return &ReportWorker{
		BaseWorker: NewBaseWorker(
			"ReportWorker",
			js,
			shared.StreamIntake,
			shared.ConsumerReportProcessor,
			shared.SubjectIntakeAll,
			logger,
		),
		sink: sink,
	}
}

func (w *ReportWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

// handle never retries malformed text: a codec failure is reported and the
// message acked. Store failures are returned for redelivery.
func (w *ReportWorker) handle(ctx context.Context, msg *nats.Msg) error {
	source := shared.SourceFromSubject(msg.Subject)
	msgID := msg.Header.Get(nats.MsgIdHdr)

	record, err := damage.Parse(string(msg.Data))
	if err != nil {
		code, ok := damage.ErrorCode(err)
		if !ok {
			return err
		}
		w.logger.Warn().Err(err).Str("source", source).Str("code", code).Msg("rejected damage assessment")
		observability.RecordCodecFailure(code)
		observability.RecordReport(source, observability.OutcomeRejected)
		w.sink.PublishRejected(ontology.Rejection{
			Source:  source,
			Code:    code,
			Message: err.Error(),
			MsgID:   msgID,
		})
		return nil
	}

	id, err := w.sink.Save(ctx, record)
	if err != nil {
		observability.RecordReport(source, observability.OutcomeFailed)
		return fmt.Errorf("store damage assessment from %s: %w", source, err)
	}

	observability.RecordReport(source, observability.OutcomeAccepted)
	f := record.Fields()
	w.logger.Info().
		Int64("id", id).
		Str("source", source).
		Str("msg_no", f.MsgNo).
		Str("op_call", f.OpCall).
		Str("tag", f.Tag).
		Msg("stored damage assessment")
	return nil
}
