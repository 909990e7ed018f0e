package shared

import (
	"fmt"
	"strings"
)

// NATS Subject patterns
const (
	SubjectPrefix = "damage"

	// Intake subjects carry raw wire text; the last token names the source.
	SubjectIntake    = "damage.intake"
	SubjectIntakeAll = "damage.intake.>"
	SubjectIntakeFor = "damage.intake.%s" // source

	// Event subjects carry JSON Event envelopes.
	SubjectEvents        = "damage.events"
	SubjectEventsAll     = "damage.events.>"
	SubjectEventAccepted = "damage.events.accepted"
	SubjectEventRejected = "damage.events.rejected"
)

// Intake sources
const (
	SourceMesh  = "mesh"
	SourceEmail = "email"
	SourceChat  = "chat"
	SourceHTTP  = "http"
	SourceCLI   = "cli"
)

// Stream names
const (
	StreamIntake = "DAMAGE_INTAKE"
	StreamEvents = "DAMAGE_EVENTS"
)

// Consumer names
const (
	ConsumerReportProcessor = "report-processor"
	ConsumerEventRelay      = "event-relay"
)

func IntakeSubject(source string) string {
	return fmt.Sprintf(SubjectIntakeFor, source)
}

// SourceFromSubject returns the last token of an intake subject.
func SourceFromSubject(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
