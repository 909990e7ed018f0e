package damage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleWire = `
!SCCoPIFO!
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
OpCall: [W6EI]
OpDate: [09/24/2025]
OpTime: [17:53]
!/ADDON!
`

const sampleCanonical = `!SCCoPIFO!
#T: form-damage-assessment.html
#V: 3.20-1.0
MsgNo: [6EI-007M]
1a.: [09/22/2025]
1b.: [12:31]
5.: [Routine]
7a.: [Damage/Safety Assessment Group]
7b.: [Palo Alto]
7c.: [Bob Iannucci]
7d.: [Bob]
8a.: [Developer]
8b.: [Palo Alto]
8c.: [Bob Iannucci]
8d.: [Bob]
20.: [Palo Alto]
21.: [Development test]
22.: [3540 South Court]
23.: [None]
24.: [Single Family]
25.: [2]
26.: [Own]
27a.: [checked]
27b.: []
27c.: []
27d.: []
28.: []
29.: [Affected]
30.: [Yellow]
31.: [No]
32.: [1000]
33.: [Comments here]
34.: [Bob Iannucci]
35.: [6507141200]
OpRelayRcvd: [N/A]
OpRelaySent: [N/A]
OpName: [Bob Iannucci]
OpCall: [W6EI]
OpDate: [09/24/2025]
OpTime: [17:53]
!/ADDON!`

// validFieldMap returns a complete caller-assembled field map.
func validFieldMap() FieldMap {
	return FieldMap{
		KeyOrganization:    Organization,
		KeyFormFileName:    "form-damage-assessment.html",
		KeyFormVersion:     "3.20-1.0",
		KeyMsgNo:           "6EI-007M",
		KeyDateTime:        "09/22/2025 12:31",
		KeyHandling:        "Routine",
		KeyToICSPosition:   "Damage/Safety Assessment Group",
		KeyToLocation:      "Palo Alto",
		KeyToName:          "Bob Iannucci",
		KeyToContact:       "Bob",
		KeyFromICSPosition: "Developer",
		KeyFromLocation:    "Palo Alto",
		KeyFromName:        "Bob Iannucci",
		KeyFromContact:     "Bob",
		KeyJurisdiction:    "Palo Alto",
		KeyIncidentName:    "Development test",
		KeyAddress:         "3540 South Court",
		KeyUnitSuite:       "",
		KeyTypeStructure:   "Single Family",
		KeyStories:         2,
		KeyOwnRent:         "Own",
		KeyDamageClass:     "Affected",
		KeyTag:             "Yellow",
		KeyEstimate:        1000,
		KeyOpRelayRcvd:     "N/A",
		KeyOpRelaySent:     "N/A",
		KeyOpName:          "Bob Iannucci",
		KeyOpCall:          "W6EI",
		KeyOpDate:          "09/24/2025 17:53",
	}
}

func with(fm FieldMap, key string, v any) FieldMap {
	fm[key] = v
	return fm
}

func mustBuild(t *testing.T, fm FieldMap) Record {
	t.Helper()
	r, err := Build(fm)
	require.NoError(t, err)
	return r
}
