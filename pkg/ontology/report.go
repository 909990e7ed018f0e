package ontology

import (
	"damage-intake/pkg/damage"
)

// Report is a stored damage assessment and its row id.
type Report struct {
	ID     int64         `json:"id"`
	Record damage.Record `json:"record"`
}

// Rejection describes wire text the codec refused.
type Rejection struct {
	Source  string `json:"source"`
	Code    string `json:"code"`
	Message string `json:"message"`
	MsgID   string `json:"msg_id,omitempty"`
}

type ListReportsQuery struct {
	OpCall string `json:"op_call,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

func (q ListReportsQuery) Filter() damage.Filter {
	return damage.Filter{OpCall: q.OpCall, Start: q.Start, End: q.End}
}
