package damage

import "context"

// Filter narrows a retrieval. Empty fields do not filter. OpCall matches
// case-insensitively; Start and End are inclusive wall-clock bounds on the
// report time and accept any string ParseStamp does.
type Filter struct {
	OpCall string
	Start  string
	End    string
}

// Store is the persistence contract the codec's callers rely on. Retrieve
// returns records newest first by report time.
type Store interface {
	Save(ctx context.Context, r Record) (int64, error)
	Retrieve(ctx context.Context, filter Filter) ([]Record, error)
}
