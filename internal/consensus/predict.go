// Package consensus synthesizes one best-guess record per match group by a
// recency-weighted plurality vote over every field.
package consensus

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provdir/internal/model"
)

// ErrEmptyGroup is returned when Predict is given no records.
var ErrEmptyGroup = eris.New("consensus: empty group")

// WeightDivisor scales a record's age in days into its vote weight.
const WeightDivisor = 100.0

// Predictor builds consensus records.
type Predictor struct {
	now func() time.Time
}

// New creates a Predictor measuring record age against the current date.
func New() *Predictor {
	return &Predictor{now: time.Now}
}

// WithNow fixes the reference date for testing.
func (p *Predictor) WithNow(t time.Time) *Predictor {
	p.now = func() time.Time { return t }
	return p
}

// Weight is a record's vote weight given its LastPracUpdate stamp: whole
// days of age divided by WeightDivisor. Older records weigh more. Stamps
// in the future give negative weight. ok is false when the stamp is
// missing or unparseable, and such records do not vote.
func (p *Predictor) Weight(rec model.Record) (weight float64, ok bool) {
	s, ok := rec.String(model.FieldLastPracUpdate)
	if !ok {
		return 0, false
	}
	updated, err := parseStamp(s)
	if err != nil {
		return 0, false
	}
	days := math.Floor(day(p.now()).Sub(day(updated)).Hours() / 24)
	return days / WeightDivisor, true
}

// Predict returns the consensus of group. Each voting record adds its
// weight to its value for every field in the union of the group's fields,
// null included. The heaviest value wins and ties go to whichever value
// appeared first. When no record can vote, each field takes the first
// record's value. A single-record group yields a copy of that record.
//
// The result always has Endpoint "Consensus" and Accuracy 1.
func (p *Predictor) Predict(group model.Group) (model.Record, error) {
	if len(group) == 0 {
		return nil, ErrEmptyGroup
	}

	fields := model.FieldNames(group...)
	first := group[0].Normalize(fields)
	if len(group) == 1 {
		return asConsensus(first), nil
	}

	var weights []float64
	var voters []model.Record
	for _, rec := range group {
		if w, ok := p.Weight(rec); ok {
			weights = append(weights, w)
			voters = append(voters, rec)
		}
	}
	if len(voters) == 0 {
		return asConsensus(first), nil
	}

	out := make(model.Record, len(fields))
	for _, f := range fields {
		out[f] = plurality(f, voters, weights)
	}
	return asConsensus(out), nil
}

// plurality tallies field across voters. Values are scalars and safe as
// map keys.
func plurality(field string, voters []model.Record, weights []float64) any {
	tally := make(map[any]float64)
	var order []any
	for i, rec := range voters {
		v := rec[field]
		if _, seen := tally[v]; !seen {
			order = append(order, v)
		}
		tally[v] += weights[i]
	}

	winner := order[0]
	for _, v := range order[1:] {
		if tally[v] > tally[winner] {
			winner = v
		}
	}
	return winner
}

func asConsensus(rec model.Record) model.Record {
	rec[model.FieldEndpoint] = model.ConsensusEndpoint
	rec[model.FieldAccuracy] = model.ConsensusAccuracy
	return rec
}

func parseStamp(s string) (time.Time, error) {
	if t, err := time.Parse(model.TimestampLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "consensus: parse timestamp %q", s)
	}
	return t, nil
}

// day truncates t to midnight UTC.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
