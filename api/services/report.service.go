package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"damage-intake/db"
	"damage-intake/pkg/damage"
	"damage-intake/pkg/ontology"
	"damage-intake/pkg/shared"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrInvalidFilter  = errors.New("invalid report filter")
)

// Values for fields the damage table does not keep.
const (
	retrievedFormFileName = "form-damage-assessment.html"
	retrievedFormVersion  = "3.20-1.0"
	retrievedIncidentName = "Retrieved from database"
	storedStampLayout     = "2006-01-02T15:04:05"
)

// Publisher is the slice of the embedded NATS server the service needs.
type Publisher interface {
	PublishWithDedup(subject string, data []byte, msgID string) error
}

var _ damage.Store = (*ReportService)(nil)

type ReportService struct {
	db     *db.Service
	nats   Publisher
	logger zerolog.Logger
}

// NewReportService returns a store over dbService. A nil publisher disables
// outcome events.
func NewReportService(dbService *db.Service, nats Publisher, logger zerolog.Logger) *ReportService {
	return &ReportService{
		db:     dbService,
		nats:   nats,
		logger: logger.With().Str("component", "report-service").Logger(),
	}
}

const reportColumns = `msg_no, date, handling, to_ics_position, to_location, to_name, to_contact,
	from_ics_position, from_location, from_name, from_contact, jurisdiction,
	address, unit_suite, type_structure, stories, own_rent,
	type_damage_flooding, type_damage_exterior, type_damage_structural, type_damage_other,
	basement, damage_class, tag, insurance, estimate, comments, contact_name, contact_phone,
	op_relay_rcvd, op_relay_sent, op_name, op_call, op_time`

// Save inserts r and returns its row id.
func (s *ReportService) Save(ctx context.Context, r damage.Record) (int64, error) {
	f := r.Fields()

	var unitSuite any
	if f.UnitSuite != "" {
		unitSuite = f.UnitSuite
	}

	query := s.db.Rebind(`INSERT INTO damage (` + reportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query,
			f.MsgNo, storedStamp(r.DateTime()), f.Handling,
			f.ToICSPosition, f.ToLocation, f.ToName, f.ToContact,
			f.FromICSPosition, f.FromLocation, f.FromName, f.FromContact, f.Jurisdiction,
			f.Address, unitSuite, f.TypeStructure, f.Stories, f.OwnRent,
			f.TypeDamageFlooding, f.TypeDamageExterior, f.TypeDamageStructural, f.TypeDamageOther,
			f.Basement, f.DamageClass, f.Tag, f.Insurance, f.Estimate,
			f.Comments, f.ContactName, f.ContactPhone,
			f.OpRelayRcvd, f.OpRelaySent, f.OpName, strings.ToUpper(f.OpCall), storedStamp(r.OpDate()),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save damage assessment: %w", err)
	}

	s.publishAccepted(ontology.Report{ID: id, Record: r})
	return id, nil
}

// Retrieve returns the reports matching filter, newest first.
func (s *ReportService) Retrieve(ctx context.Context, filter damage.Filter) ([]damage.Record, error) {
	reports, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	records := make([]damage.Record, len(reports))
	for i, r := range reports {
		records[i] = r.Record
	}
	return records, nil
}

// List is Retrieve with row ids kept.
func (s *ReportService) List(ctx context.Context, filter damage.Filter) ([]ontology.Report, error) {
	var (
		where []string
		args  []any
	)
	if filter.OpCall != "" {
		where = append(where, "UPPER(op_call) = UPPER(?)")
		args = append(args, filter.OpCall)
	}
	if filter.Start != "" {
		t, err := damage.ParseStamp(filter.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: start %q", ErrInvalidFilter, filter.Start)
		}
		where = append(where, "date >= ?")
		args = append(args, storedStamp(t))
	}
	if filter.End != "" {
		t, err := damage.ParseStamp(filter.End)
		if err != nil {
			return nil, fmt.Errorf("%w: end %q", ErrInvalidFilter, filter.End)
		}
		where = append(where, "date <= ?")
		args = append(args, storedStamp(t))
	}

	query := `SELECT id, ` + reportColumns + ` FROM damage`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := s.db.DB.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query damage assessments: %w", err)
	}
	defer rows.Close()

	var reports []ontology.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read damage assessments: %w", err)
	}
	return reports, nil
}

func (s *ReportService) Get(ctx context.Context, id int64) (ontology.Report, error) {
	row := s.db.DB.QueryRowContext(ctx,
		s.db.Rebind(`SELECT id, `+reportColumns+` FROM damage WHERE id = ?`), id)

	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ontology.Report{}, ErrReportNotFound
	}
	if err != nil {
		return ontology.Report{}, err
	}
	return report, nil
}

// PublishRejected announces wire text the codec refused.
func (s *ReportService) PublishRejected(rejection ontology.Rejection) {
	s.publish(shared.EventTypeRejected, shared.SubjectEventRejected, map[string]interface{}{
		"rejection": rejection,
	})
}

func (s *ReportService) publishAccepted(report ontology.Report) {
	f := report.Record.Fields()
	s.publish(shared.EventTypeAccepted, shared.SubjectEventAccepted, map[string]interface{}{
		"id":           report.ID,
		"msg_no":       f.MsgNo,
		"op_call":      f.OpCall,
		"address":      f.Address,
		"damage_class": f.DamageClass,
		"tag":          f.Tag,
		"report":       report,
	})
}

func (s *ReportService) publish(eventType, subject string, data map[string]interface{}) {
	if s.nats == nil {
		return
	}

	event := shared.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Subject:   subject,
		Data:      data,
		Timestamp: time.Now().UTC(),
		Source:    "report-service",
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("type", eventType).Msg("failed to marshal report event")
		return
	}

	if err := s.nats.PublishWithDedup(subject, payload, event.ID); err != nil {
		s.logger.Error().Err(err).Str("type", eventType).Msg("failed to publish report event")
		return
	}
	s.logger.Debug().Str("type", eventType).Str("subject", subject).Msg("published report event")
}

func scanReport(scanner interface{ Scan(...any) error }) (ontology.Report, error) {
	var (
		id                                                    int64
		date, opTime                                          string
		unitSuite                                             sql.NullString
		stories, estimate                                     int64
		flooding, exterior, structural, other                 bool
		basement, insurance                                   bool
		msgNo, handling, toICS, toLoc, toName, toContact      string
		fromICS, fromLoc, fromName, fromContact, jurisdiction string
		address, typeStructure, ownRent, damageClass, tag     string
		comments, contactName, contactPhone                   string
		relayRcvd, relaySent, opName, opCall                  string
	)

	err := scanner.Scan(
		&id, &msgNo, &date, &handling, &toICS, &toLoc, &toName, &toContact,
		&fromICS, &fromLoc, &fromName, &fromContact, &jurisdiction,
		&address, &unitSuite, &typeStructure, &stories, &ownRent,
		&flooding, &exterior, &structural, &other,
		&basement, &damageClass, &tag, &insurance, &estimate, &comments, &contactName, &contactPhone,
		&relayRcvd, &relaySent, &opName, &opCall, &opTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ontology.Report{}, err
		}
		return ontology.Report{}, fmt.Errorf("failed to scan damage assessment: %w", err)
	}

	fm := damage.FieldMap{}
	fm[damage.KeyOrganization] = damage.Organization
	fm[damage.KeyFormFileName] = retrievedFormFileName
	fm[damage.KeyFormVersion] = retrievedFormVersion
	fm[damage.KeyIncidentName] = retrievedIncidentName
	fm[damage.KeyMsgNo] = msgNo
	fm[damage.KeyDateTime] = retrievedStamp(date)
	fm[damage.KeyHandling] = handling
	fm[damage.KeyToICSPosition] = toICS
	fm[damage.KeyToLocation] = toLoc
	fm[damage.KeyToName] = toName
	fm[damage.KeyToContact] = toContact
	fm[damage.KeyFromICSPosition] = fromICS
	fm[damage.KeyFromLocation] = fromLoc
	fm[damage.KeyFromName] = fromName
	fm[damage.KeyFromContact] = fromContact
	fm[damage.KeyJurisdiction] = jurisdiction
	fm[damage.KeyAddress] = address
	fm[damage.KeyUnitSuite] = unitSuite.String
	fm[damage.KeyTypeStructure] = typeStructure
	fm[damage.KeyStories] = stories
	fm[damage.KeyOwnRent] = ownRent
	fm[damage.KeyTypeDamageFlooding] = flooding
	fm[damage.KeyTypeDamageExterior] = exterior
	fm[damage.KeyTypeDamageStructural] = structural
	fm[damage.KeyTypeDamageOther] = other
	fm[damage.KeyBasement] = basement
	fm[damage.KeyDamageClass] = damageClass
	fm[damage.KeyTag] = tag
	fm[damage.KeyInsurance] = insurance
	fm[damage.KeyEstimate] = estimate
	fm[damage.KeyComments] = comments
	fm[damage.KeyContactName] = contactName
	fm[damage.KeyContactPhone] = contactPhone
	fm[damage.KeyOpRelayRcvd] = relayRcvd
	fm[damage.KeyOpRelaySent] = relaySent
	fm[damage.KeyOpName] = opName
	fm[damage.KeyOpCall] = opCall
	fm[damage.KeyOpDate] = retrievedStamp(opTime)

	record, err := damage.Build(fm)
	if err != nil {
		return ontology.Report{}, fmt.Errorf("stored damage assessment %d: %w", id, err)
	}
	return ontology.Report{ID: id, Record: record}, nil
}

func storedStamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// retrievedStamp drops the zone from a stored stamp. A value that does not
// parse is passed through for Build to reject.
func retrievedStamp(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.UTC().Format(storedStampLayout)
}
