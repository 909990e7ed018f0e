package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"damage-intake/db"
	"damage-intake/pkg/damage"
	"damage-intake/pkg/ontology"
	"damage-intake/pkg/shared"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWire = `!SCCoPIFO!
#T: form-damage-assessment.html
#V: 3.20-1.0
MsgNo: [6EI-007M]
1a.: [09/22/2025]
1b.: [12:31]
5.: [ROUTINE]
7a.: [Damage/Safety Assessment Group]
8a.: [Developer]
7b.: [Palo Alto]
8b.: [Palo Alto]
7c.: [Bob Iannucci]
8c.: [Bob Iannucci]
7d.: [Bob]
8d.: [Bob]
20.: [Palo Alto]
21.: [Development test]
22.: [3540 South Court]
23.: [None]
24.: [Single Family]
25.: [2]
26.: [Own]
27a.: [checked]
28.: [N/A]
29.: [Affected]
30.: [Yellow]
31.: [No]
32.: [1000]
33.: [Comments here]
34.: [Bob Iannucci]
35.: [6507141200]
OpName: [Bob Iannucci]
OpCall: [w6ei]
OpDate: [09/24/2025]
OpTime: [17:53]
!/ADDON!`

type published struct {
	subject string
	event   shared.Event
	msgID   string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) PublishWithDedup(subject string, data []byte, msgID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	var event shared.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}
	p.msgs = append(p.msgs, published{subject: subject, event: event, msgID: msgID})
	return nil
}

func newTestReportService(t *testing.T, pub Publisher) *ReportService {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "damage.db")
	dbService, err := db.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { dbService.Close() })
	return NewReportService(dbService, pub, zerolog.Nop())
}

// sample returns the sample report with its report time and call sign
// replaced.
func sample(t *testing.T, date, clock, call string) damage.Record {
	t.Helper()
	text := strings.Replace(sampleWire, "1a.: [09/22/2025]", "1a.: ["+date+"]", 1)
	text = strings.Replace(text, "1b.: [12:31]", "1b.: ["+clock+"]", 1)
	text = strings.Replace(text, "OpCall: [w6ei]", "OpCall: ["+call+"]", 1)
	r, err := damage.Parse(text)
	require.NoError(t, err)
	return r
}

func TestReportService_SaveAndGet(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestReportService(t, pub)
	ctx := context.Background()

	r, err := damage.Parse(sampleWire)
	require.NoError(t, err)

	id, err := svc.Save(ctx, r)
	require.NoError(t, err)
	assert.Positive(t, id)

	report, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, report.ID)

	f := report.Record.Fields()
	assert.Equal(t, "W6EI", f.OpCall, "call sign is stored upper-cased")
	assert.Equal(t, "2025-09-22T12:31:00", f.DateTime)
	assert.Equal(t, "2025-09-24T17:53:00", f.OpDate)
	assert.Equal(t, "", f.UnitSuite)
	assert.Equal(t, "Retrieved from database", f.IncidentName)
	assert.Equal(t, damage.Organization, f.Organization)
	assert.Equal(t, "form-damage-assessment.html", f.FormFileName)
	assert.Equal(t, "3.20-1.0", f.FormVersion)
	assert.True(t, f.TypeDamageFlooding)
	assert.False(t, f.Insurance)
	assert.Equal(t, 1000, f.Estimate)
	assert.Equal(t, 2, f.Stories)
	assert.True(t, r.DateTime().Equal(report.Record.DateTime()))

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, shared.SubjectEventAccepted, msg.subject)
	assert.Equal(t, shared.EventTypeAccepted, msg.event.Type)
	assert.Equal(t, msg.event.ID, msg.msgID)
	assert.Equal(t, "6EI-007M", msg.event.Data["msg_no"])
	assert.Equal(t, float64(id), msg.event.Data["id"])
}

func TestReportService_StoredRecordRendersAsWire(t *testing.T) {
	svc := newTestReportService(t, nil)
	ctx := context.Background()

	r := sample(t, "09/22/2025", "12:31", "W6EI")
	id, err := svc.Save(ctx, r)
	require.NoError(t, err)
	report, err := svc.Get(ctx, id)
	require.NoError(t, err)

	again, err := damage.Parse(damage.Render(report.Record))
	require.NoError(t, err)
	assert.True(t, report.Record.Equal(again))
}

func TestReportService_GetMissing(t *testing.T) {
	svc := newTestReportService(t, nil)
	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportService_UnitSuiteRoundTrip(t *testing.T) {
	svc := newTestReportService(t, nil)
	ctx := context.Background()

	fm := sample(t, "09/22/2025", "12:31", "W6EI").FieldMap()
	fm[damage.KeyUnitSuite] = "Apt 4"
	r, err := damage.Build(fm)
	require.NoError(t, err)

	id, err := svc.Save(ctx, r)
	require.NoError(t, err)
	report, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Apt 4", report.Record.Fields().UnitSuite)
}

func TestReportService_ZonedStampKeepsWallClock(t *testing.T) {
	svc := newTestReportService(t, nil)
	ctx := context.Background()

	fm := sample(t, "09/22/2025", "12:31", "W6EI").FieldMap()
	fm[damage.KeyDateTime] = "2025-09-22T12:31:00-07:00"
	fm[damage.KeyOpDate] = "2025-09-24T17:53:00+05:30"
	r, err := damage.Build(fm)
	require.NoError(t, err)

	id, err := svc.Save(ctx, r)
	require.NoError(t, err)
	report, err := svc.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "2025-09-22T12:31:00", report.Record.Fields().DateTime)
	assert.Equal(t, "2025-09-24T17:53:00", report.Record.Fields().OpDate)
	assert.True(t, r.Equal(report.Record))

	wire := damage.Render(report.Record)
	assert.Contains(t, wire, "1a.: [09/22/2025]\n1b.: [12:31]")
	assert.Contains(t, wire, "OpDate: [09/24/2025]\nOpTime: [17:53]")

	// filter bounds are wall-clock too
	records, err := svc.Retrieve(ctx, damage.Filter{Start: "2025-09-22T12:31:00-07:00", End: "09/22/2025 12:31"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestReportService_Retrieve(t *testing.T) {
	svc := newTestReportService(t, nil)
	ctx := context.Background()

	fixtures := []damage.Record{
		sample(t, "09/20/2025", "08:00", "W6EI"),
		sample(t, "09/22/2025", "12:31", "KA1AB"),
		sample(t, "09/24/2025", "23:59", "w6ei"),
		sample(t, "09/22/2025", "12:31", "W6EI"),
	}
	ids := make([]int64, len(fixtures))
	for i, r := range fixtures {
		id, err := svc.Save(ctx, r)
		require.NoError(t, err)
		ids[i] = id
	}

	listIDs := func(filter damage.Filter) []int64 {
		t.Helper()
		reports, err := svc.List(ctx, filter)
		require.NoError(t, err)
		out := []int64{}
		for _, r := range reports {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter damage.Filter
		want   []int64
	}{
		{"all newest first", damage.Filter{}, []int64{ids[2], ids[3], ids[1], ids[0]}},
		{"call sign any case", damage.Filter{OpCall: "w6EI"}, []int64{ids[2], ids[3], ids[0]}},
		{"inclusive start", damage.Filter{Start: "2025-09-22T12:31:00"}, []int64{ids[2], ids[3], ids[1]}},
		{"inclusive end", damage.Filter{End: "09/22/2025 12:31"}, []int64{ids[3], ids[1], ids[0]}},
		{"window and call", damage.Filter{OpCall: "W6EI", Start: "2025-09-21", End: "2025-09-23"}, []int64{ids[3]}},
		{"no match", damage.Filter{OpCall: "N0A"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listIDs(tt.filter))
		})
	}

	records, err := svc.Retrieve(ctx, damage.Filter{OpCall: "KA1AB"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "KA1AB", records[0].Fields().OpCall)
}

func TestReportService_InvalidFilter(t *testing.T) {
	svc := newTestReportService(t, nil)
	_, err := svc.Retrieve(context.Background(), damage.Filter{Start: "not a date"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = svc.Retrieve(context.Background(), damage.Filter{End: "99/99/9999"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestReportService_PublishFailureDoesNotFailSave(t *testing.T) {
	svc := newTestReportService(t, &fakePublisher{err: errors.New("nats down")})
	id, err := svc.Save(context.Background(), sample(t, "09/22/2025", "12:31", "W6EI"))
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestReportService_PublishRejected(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestReportService(t, pub)

	svc.PublishRejected(ontology.Rejection{Source: shared.SourceMesh, Code: damage.CodeFormat, Message: "no sentinel"})
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, shared.SubjectEventRejected, pub.msgs[0].subject)
	rejection, ok := pub.msgs[0].event.Data["rejection"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, damage.CodeFormat, rejection["code"])
	assert.Equal(t, shared.SourceMesh, rejection["source"])
}
