// Package accuracy scores each source record by its agreement with the
// group consensus.
package accuracy

import (
	"math"

	"github.com/sells-group/provdir/internal/model"
)

// excluded fields describe the record rather than the clinician and are
// never compared.
var excluded = map[string]bool{
	model.FieldEndpoint: true,
	model.FieldAccuracy: true,
}

// Scorer sets Accuracy on group members.
type Scorer struct{}

// New creates a Scorer.
func New() *Scorer {
	return &Scorer{}
}

// Score returns copies of group, normalized to the union of group and
// consensus fields, with Accuracy set to the share of compared fields that
// exactly equal the consensus, rounded to two decimals. Compared fields are
// the consensus fields other than Endpoint and Accuracy.
func (s *Scorer) Score(group model.Group, consensus model.Record) model.Group {
	all := append(model.Group{consensus}, group...)
	fields := model.FieldNames(all...)

	var compared []string
	for _, f := range fields {
		if _, ok := consensus[f]; ok && !excluded[f] {
			compared = append(compared, f)
		}
	}

	out := make(model.Group, len(group))
	for i, rec := range group {
		scored := rec.Normalize(fields)
		scored[model.FieldAccuracy] = Agreement(scored, consensus, compared)
		out[i] = scored
	}
	return out
}

// Agreement is matches/len(fields) rounded to two decimals, or 0 with no
// fields.
func Agreement(rec, consensus model.Record, fields []string) float64 {
	if len(fields) == 0 {
		return 0
	}
	matches := 0
	for _, f := range fields {
		if rec[f] == consensus[f] {
			matches++
		}
	}
	return round2(float64(matches) / float64(len(fields)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
