package damage

// Kind is the semantic type of a report field.
type Kind int

const (
	KindText Kind = iota
	KindBoolean
	KindYesNo
	KindEnum
	KindInteger
	KindDateTime
	KindPhone
	KindCallSign
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindYesNo:
		return "yes/no"
	case KindEnum:
		return "enum"
	case KindInteger:
		return "integer"
	case KindDateTime:
		return "datetime"
	case KindPhone:
		return "phone"
	case KindCallSign:
		return "call sign"
	default:
		return "unknown"
	}
}

// Record keys.
const (
	KeyOrganization         = "organization"
	KeyFormFileName         = "form_file_name"
	KeyFormVersion          = "form_version"
	KeyMsgNo                = "msg_no"
	KeyDateTime             = "datetime"
	KeyHandling             = "handling"
	KeyToICSPosition        = "to_ics_position"
	KeyToLocation           = "to_location"
	KeyToName               = "to_name"
	KeyToContact            = "to_contact"
	KeyFromICSPosition      = "from_ics_position"
	KeyFromLocation         = "from_location"
	KeyFromName             = "from_name"
	KeyFromContact          = "from_contact"
	KeyJurisdiction         = "jurisdiction"
	KeyIncidentName         = "incident_name"
	KeyAddress              = "address"
	KeyUnitSuite            = "unit_suite"
	KeyTypeStructure        = "type_structure"
	KeyStories              = "stories"
	KeyOwnRent              = "own_rent"
	KeyTypeDamageFlooding   = "type_damage_flooding"
	KeyTypeDamageExterior   = "type_damage_exterior"
	KeyTypeDamageStructural = "type_damage_structural"
	KeyTypeDamageOther      = "type_damage_other"
	KeyBasement             = "basement"
	KeyDamageClass          = "damage_class"
	KeyTag                  = "tag"
	KeyInsurance            = "insurance"
	KeyEstimate             = "estimate"
	KeyComments             = "comments"
	KeyContactName          = "contact_name"
	KeyContactPhone         = "contact_phone"
	KeyOpRelayRcvd          = "op_relay_rcvd"
	KeyOpRelaySent          = "op_relay_sent"
	KeyOpName               = "op_name"
	KeyOpCall               = "op_call"
	KeyOpDate               = "op_date"
)

// Literal lines of the wire format.
const (
	Organization      = "!SCCoPIFO!"
	Sentinel          = "!/ADDON!"
	FormFilePrefix    = "#T:"
	FormVersionPrefix = "#V:"
	UnknownPhone      = "0000000000"
)

// Legal values of the enumerated fields.
var (
	HandlingValues      = []string{"Immediate", "Priority", "Routine"}
	TypeStructureValues = []string{"Single Family", "Mobile Home", "Non-Profit Orgs", "Multi-Family", "Business", "Outbuilding"}
	OwnRentValues       = []string{"Own", "Rent"}
	DamageClassValues   = []string{"Destroyed", "Minor", "No Visible Damage", "Major", "Affected"}
	TagValues           = []string{"Green", "Yellow", "Red"}
)

// FieldSpec describes one record attribute. Header fields have no WireTag;
// the two composite dates carry both a date tag (WireTag) and a TimeTag.
type FieldSpec struct {
	Key       string
	WireTag   string
	TimeTag   string
	Kind      Kind
	Enum      []string
	Min       int
	Mandatory bool
	Default   any

	ref func(*Fields) any
}

// IsHeader reports whether the field travels in the three header lines.
func (s FieldSpec) IsHeader() bool { return s.WireTag == "" }

func text(key, tag string, ref func(*Fields) *string) FieldSpec {
	return FieldSpec{Key: key, WireTag: tag, Kind: KindText, Mandatory: true, ref: func(f *Fields) any { return ref(f) }}
}

func enum(key, tag string, values []string, ref func(*Fields) *string) FieldSpec {
	return FieldSpec{Key: key, WireTag: tag, Kind: KindEnum, Enum: values, Mandatory: true, ref: func(f *Fields) any { return ref(f) }}
}

func flag(key, tag string, ref func(*Fields) *bool) FieldSpec {
	return FieldSpec{Key: key, WireTag: tag, Kind: KindBoolean, Default: false, ref: func(f *Fields) any { return ref(f) }}
}

func integer(key, tag string, min int, ref func(*Fields) *int) FieldSpec {
	return FieldSpec{Key: key, WireTag: tag, Kind: KindInteger, Min: min, Mandatory: true, ref: func(f *Fields) any { return ref(f) }}
}

func stamp(key, dateTag, timeTag string, ref func(*Fields) *string) FieldSpec {
	return FieldSpec{Key: key, WireTag: dateTag, TimeTag: timeTag, Kind: KindDateTime, Mandatory: true, ref: func(f *Fields) any { return ref(f) }}
}

func optional(s FieldSpec, def any) FieldSpec {
	s.Mandatory = false
	s.Default = def
	return s
}

// schema is declared in wire order; alphabetic tags render in this order.
var schema = []FieldSpec{
	text(KeyOrganization, "", func(f *Fields) *string { return &f.Organization }),
	text(KeyFormFileName, "", func(f *Fields) *string { return &f.FormFileName }),
	text(KeyFormVersion, "", func(f *Fields) *string { return &f.FormVersion }),
	text(KeyMsgNo, "MsgNo", func(f *Fields) *string { return &f.MsgNo }),
	stamp(KeyDateTime, "1a", "1b", func(f *Fields) *string { return &f.DateTime }),
	enum(KeyHandling, "5", HandlingValues, func(f *Fields) *string { return &f.Handling }),
	text(KeyToICSPosition, "7a", func(f *Fields) *string { return &f.ToICSPosition }),
	text(KeyToLocation, "7b", func(f *Fields) *string { return &f.ToLocation }),
	text(KeyToName, "7c", func(f *Fields) *string { return &f.ToName }),
	text(KeyToContact, "7d", func(f *Fields) *string { return &f.ToContact }),
	text(KeyFromICSPosition, "8a", func(f *Fields) *string { return &f.FromICSPosition }),
	text(KeyFromLocation, "8b", func(f *Fields) *string { return &f.FromLocation }),
	text(KeyFromName, "8c", func(f *Fields) *string { return &f.FromName }),
	text(KeyFromContact, "8d", func(f *Fields) *string { return &f.FromContact }),
	text(KeyJurisdiction, "20", func(f *Fields) *string { return &f.Jurisdiction }),
	text(KeyIncidentName, "21", func(f *Fields) *string { return &f.IncidentName }),
	text(KeyAddress, "22", func(f *Fields) *string { return &f.Address }),
	text(KeyUnitSuite, "23", func(f *Fields) *string { return &f.UnitSuite }),
	enum(KeyTypeStructure, "24", TypeStructureValues, func(f *Fields) *string { return &f.TypeStructure }),
	integer(KeyStories, "25", 1, func(f *Fields) *int { return &f.Stories }),
	enum(KeyOwnRent, "26", OwnRentValues, func(f *Fields) *string { return &f.OwnRent }),
	flag(KeyTypeDamageFlooding, "27a", func(f *Fields) *bool { return &f.TypeDamageFlooding }),
	flag(KeyTypeDamageExterior, "27b", func(f *Fields) *bool { return &f.TypeDamageExterior }),
	flag(KeyTypeDamageStructural, "27c", func(f *Fields) *bool { return &f.TypeDamageStructural }),
	flag(KeyTypeDamageOther, "27d", func(f *Fields) *bool { return &f.TypeDamageOther }),
	flag(KeyBasement, "28", func(f *Fields) *bool { return &f.Basement }),
	enum(KeyDamageClass, "29", DamageClassValues, func(f *Fields) *string { return &f.DamageClass }),
	enum(KeyTag, "30", TagValues, func(f *Fields) *string { return &f.Tag }),
	{Key: KeyInsurance, WireTag: "31", Kind: KindYesNo, Default: false, ref: func(f *Fields) any { return &f.Insurance }},
	integer(KeyEstimate, "32", 0, func(f *Fields) *int { return &f.Estimate }),
	optional(text(KeyComments, "33", func(f *Fields) *string { return &f.Comments }), "None"),
	optional(text(KeyContactName, "34", func(f *Fields) *string { return &f.ContactName }), "Unknown"),
	{Key: KeyContactPhone, WireTag: "35", Kind: KindPhone, Default: UnknownPhone, ref: func(f *Fields) any { return &f.ContactPhone }},
	text(KeyOpRelayRcvd, "OpRelayRcvd", func(f *Fields) *string { return &f.OpRelayRcvd }),
	text(KeyOpRelaySent, "OpRelaySent", func(f *Fields) *string { return &f.OpRelaySent }),
	text(KeyOpName, "OpName", func(f *Fields) *string { return &f.OpName }),
	{Key: KeyOpCall, WireTag: "OpCall", Kind: KindCallSign, Mandatory: true, ref: func(f *Fields) any { return &f.OpCall }},
	stamp(KeyOpDate, "OpDate", "OpTime", func(f *Fields) *string { return &f.OpDate }),
}

var schemaByKey = func() map[string]int {
	m := make(map[string]int, len(schema))
	for i, s := range schema {
		m[s.Key] = i
	}
	return m
}()

// Schema returns a copy of the field table in declaration order.
func Schema() []FieldSpec {
	out := make([]FieldSpec, len(schema))
	copy(out, schema)
	return out
}

// Lookup returns the FieldSpec for a record key.
func Lookup(key string) (FieldSpec, bool) {
	i, ok := schemaByKey[key]
	if !ok {
		return FieldSpec{}, false
	}
	return schema[i], true
}

// MandatoryKeys returns the keys that must be present in a field map.
func MandatoryKeys() []string {
	var keys []string
	for _, s := range schema {
		if s.Mandatory {
			keys = append(keys, s.Key)
		}
	}
	return keys
}
