package damage

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"
)

// Fields is the typed attribute set of a damage assessment report. A Fields
// value on its own carries no guarantee; only Record does.
type Fields struct {
	Organization string `json:"organization"`
	FormFileName string `json:"form_file_name"`
	FormVersion  string `json:"form_version"`

	MsgNo    string `json:"msg_no"`
	DateTime string `json:"datetime"`
	Handling string `json:"handling"`

	ToICSPosition   string `json:"to_ics_position"`
	ToLocation      string `json:"to_location"`
	ToName          string `json:"to_name"`
	ToContact       string `json:"to_contact"`
	FromICSPosition string `json:"from_ics_position"`
	FromLocation    string `json:"from_location"`
	FromName        string `json:"from_name"`
	FromContact     string `json:"from_contact"`

	Jurisdiction  string `json:"jurisdiction"`
	IncidentName  string `json:"incident_name"`
	Address       string `json:"address"`
	UnitSuite     string `json:"unit_suite"`
	TypeStructure string `json:"type_structure"`
	Stories       int    `json:"stories"`
	OwnRent       string `json:"own_rent"`

	TypeDamageFlooding   bool   `json:"type_damage_flooding"`
	TypeDamageExterior   bool   `json:"type_damage_exterior"`
	TypeDamageStructural bool   `json:"type_damage_structural"`
	TypeDamageOther      bool   `json:"type_damage_other"`
	Basement             bool   `json:"basement"`
	DamageClass          string `json:"damage_class"`
	Tag                  string `json:"tag"`
	Insurance            bool   `json:"insurance"`
	Estimate             int    `json:"estimate"`

	Comments     string `json:"comments"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`

	OpRelayRcvd string `json:"op_relay_rcvd"`
	OpRelaySent string `json:"op_relay_sent"`
	OpName      string `json:"op_name"`
	OpCall      string `json:"op_call"`
	OpDate      string `json:"op_date"`
}

// FieldMap is the loosely typed form of a report, keyed by record key. Values
// are string, bool or any signed or unsigned integer type. Strings are trimmed
// by Build.
type FieldMap map[string]any

// Record is a validated damage assessment report. The zero Record is not
// valid; obtain one from Build or Parse.
type Record struct {
	f Fields
}

var (
	phonePattern    = regexp.MustCompile(`^[1-9]\d{9}$`)
	callSignPattern = regexp.MustCompile(`(?i)^(A[A-L]|K[A-Z]|N[A-Z]|W[A-Z]|K|N|W)\d[A-Z]{1,3}$`)
	versionPattern  = regexp.MustCompile(`^\d+\..+`)
	formExtensions  = []string{".htm", ".html", ".asp", ".aspx", ".php", ".jsp"}
)

// Build validates a field map and returns the Record it describes.
//
// Missing mandatory keys are reported first, all at once and sorted. After
// that the first offending field aborts construction.
func Build(fm FieldMap) (Record, error) {
	var missing []string
	for _, key := range MandatoryKeys() {
		if _, ok := fm[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Record{}, &MissingFieldError{Keys: missing}
	}

	var f Fields
	for _, spec := range schema {
		v, ok := fm[spec.Key]
		if !ok {
			v = spec.Default
		}
		if err := assign(&f, spec, v); err != nil {
			return Record{}, err
		}
	}
	return Record{f: f}, nil
}

func assign(f *Fields, spec FieldSpec, v any) error {
	switch dst := spec.ref(f).(type) {
	case *string:
		s, err := checkString(spec, v)
		if err != nil {
			return err
		}
		*dst = s
	case *bool:
		b, ok := v.(bool)
		if !ok {
			return &TypeError{Field: spec.Key, Want: "boolean", Got: v}
		}
		*dst = b
	case *int:
		n, isInt, fits := asInt(v)
		if !isInt {
			return &TypeError{Field: spec.Key, Want: "integer", Got: v}
		}
		if !fits {
			return invalid(spec.Key, v, "is out of range")
		}
		if n < spec.Min {
			return invalid(spec.Key, n, fmt.Sprintf("must be an integer >= %d", spec.Min))
		}
		*dst = n
	}
	return nil
}

func checkString(spec FieldSpec, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Field: spec.Key, Want: "string", Got: v}
	}
	if strings.ContainsAny(s, "]\r\n") {
		return "", invalid(spec.Key, s, "must not contain ']' or line breaks")
	}
	// Values are trimmed and a unit suite of "None" is empty, as Parse reads them.
	s = strings.TrimSpace(s)
	if _, ok := noUnit[strings.ToLower(s)]; ok && spec.Key == KeyUnitSuite {
		s = ""
	}

	switch spec.Kind {
	case KindEnum:
		if !slices.Contains(spec.Enum, s) {
			return "", invalid(spec.Key, s, "must be one of "+strings.Join(spec.Enum, ", "))
		}
	case KindDateTime:
		if _, err := ParseStamp(s); err != nil {
			return "", invalid(spec.Key, s, "could not be parsed as a date")
		}
	case KindPhone:
		if s != UnknownPhone && !phonePattern.MatchString(s) {
			return "", invalid(spec.Key, s, "must be 10 digits with no leading zero, or "+UnknownPhone+" if unknown")
		}
	case KindCallSign:
		if !callSignPattern.MatchString(s) {
			return "", invalid(spec.Key, s, "must match the amateur radio call sign pattern")
		}
	}

	switch spec.Key {
	case KeyOrganization:
		if s != Organization {
			return "", invalid(spec.Key, s, "must be "+Organization)
		}
	case KeyFormFileName:
		lower := strings.ToLower(s)
		if !slices.ContainsFunc(formExtensions, func(ext string) bool { return strings.HasSuffix(lower, ext) }) {
			return "", invalid(spec.Key, s, "must have a web file extension")
		}
	case KeyFormVersion:
		if !versionPattern.MatchString(s) {
			return "", invalid(spec.Key, s, "must start with an integer followed by a period")
		}
	}
	return s, nil
}

// asInt reports whether v has an integer type and whether its value fits in
// an int.
func asInt(v any) (n int, isInt, fits bool) {
	switch x := v.(type) {
	case int:
		return x, true, true
	case int8:
		return int(x), true, true
	case int16:
		return int(x), true, true
	case int32:
		return int(x), true, true
	case int64:
		if x < math.MinInt || x > math.MaxInt {
			return 0, true, false
		}
		return int(x), true, true
	case uint:
		if uint64(x) > math.MaxInt {
			return 0, true, false
		}
		return int(x), true, true
	case uint8:
		return int(x), true, true
	case uint16:
		return int(x), true, true
	case uint32:
		if uint64(x) > math.MaxInt {
			return 0, true, false
		}
		return int(x), true, true
	case uint64:
		if x > math.MaxInt {
			return 0, true, false
		}
		return int(x), true, true
	default:
		return 0, false, false
	}
}

// Fields returns a copy of the record's attributes.
func (r Record) Fields() Fields { return r.f }

// FieldMap returns the record in the form Build accepts.
func (r Record) FieldMap() FieldMap {
	fm := make(FieldMap, len(schema))
	for _, spec := range schema {
		switch v := spec.ref(&r.f).(type) {
		case *string:
			fm[spec.Key] = *v
		case *bool:
			fm[spec.Key] = *v
		case *int:
			fm[spec.Key] = *v
		}
	}
	return fm
}

// DateTime returns the report time. The stamp was parsed during validation.
func (r Record) DateTime() time.Time {
	t, _ := ParseStamp(r.f.DateTime)
	return t
}

// OpDate returns the operator's relay time.
func (r Record) OpDate() time.Time {
	t, _ := ParseStamp(r.f.OpDate)
	return t
}

// Equal compares two records attribute by attribute. The two date fields are
// compared as wall-clock times to the minute, which is the precision of the
// wire format, so a stored "2025-09-22T12:31:00" equals a wired
// "09/22/2025 12:31".
func (r Record) Equal(o Record) bool {
	if !r.DateTime().Truncate(time.Minute).Equal(o.DateTime().Truncate(time.Minute)) {
		return false
	}
	if !r.OpDate().Truncate(time.Minute).Equal(o.OpDate().Truncate(time.Minute)) {
		return false
	}
	a, b := r.f, o.f
	a.DateTime, b.DateTime = "", ""
	a.OpDate, b.OpDate = "", ""
	return a == b
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.f)
}
