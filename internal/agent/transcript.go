// File: internal/agent/transcript.go
package agent

import (
	"github.com/procdoc-lab/cua-cli/api/schemas"
)

// Transcript is the append-only record of a run: every model decision and
// every observation, in order, with nothing pruned. The wire history sent to
// the model is derived separately and may shrink; the transcript never does.
type Transcript struct {
	records []schemas.TurnRecord
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds one record. Records are immutable once appended.
func (t *Transcript) Append(rec schemas.TurnRecord) {
	t.records = append(t.records, rec)
}

// Records returns a copy of the record list, safe for the caller to keep.
func (t *Transcript) Records() []schemas.TurnRecord {
	out := make([]schemas.TurnRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Len reports the number of records appended so far.
func (t *Transcript) Len() int { return len(t.records) }

// LastObservation returns the most recent non-nil observation, or nil when
// no action has produced one yet.
func (t *Transcript) LastObservation() *schemas.Observation {
	for i := len(t.records) - 1; i >= 0; i-- {
		if t.records[i].Observation != nil {
			return t.records[i].Observation
		}
	}
	return nil
}
