package ingest

// Status is the terminal state of one ingestion attempt.
type Status int

const (
	StatusIngested Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIngested:
		return "ingested"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Skip reasons reported in Outcome.Reason.
const (
	ReasonOutbound        = "outbound"
	ReasonNoCorrespondent = "no_correspondent"
	ReasonDuplicate       = "duplicate"
)

// Outcome describes what happened to one candidate message. Failed outcomes
// carry the error; Skipped outcomes carry the reason. Only callers that own
// cursors care about the distinction: Skipped advances the cursor, Failed
// does not.
type Outcome struct {
	Status Status
	Reason string // set when Status == StatusSkipped
	Err    error  // set when Status == StatusFailed
}

func Ingested() Outcome             { return Outcome{Status: StatusIngested} }
func Skipped(reason string) Outcome { return Outcome{Status: StatusSkipped, Reason: reason} }
func Failed(err error) Outcome      { return Outcome{Status: StatusFailed, Err: err} }
