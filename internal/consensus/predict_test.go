package consensus

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provdir/internal/model"
)

var today = time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return today.AddDate(0, 0, -n).Format(model.TimestampLayout)
}

func record(endpoint, city string, ageDays int) model.Record {
	r := model.NewRecord()
	r.Set(model.FieldEndpoint, endpoint)
	r.Set(model.FieldNPI, "1234567893")
	r.Set(model.FieldCity, city)
	r.Set(model.FieldLastPracUpdate, daysAgo(ageDays))
	return r
}

func TestPredict_EmptyGroup(t *testing.T) {
	_, err := New().Predict(nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrEmptyGroup))
}

func TestPredict_SingleRecord(t *testing.T) {
	in := record("Humana", "Salem", 10)
	got, err := New().WithNow(today).Predict(model.Group{in})
	require.NoError(t, err)

	assert.True(t, got.IsConsensus())
	assert.Equal(t, model.ConsensusAccuracy, got.Accuracy())
	assert.Equal(t, "Salem", got[model.FieldCity])
	assert.Equal(t, "Humana", in.Endpoint(), "input must not be mutated")
}

func TestPredict_Plurality(t *testing.T) {
	group := model.Group{
		record("A", "Oregon City", 200),
		record("B", "Oregon City", 200),
		record("C", "Portland", 300),
		record("D", "Oregon City", 200),
		record("E", "Oregon City", 200),
		record("F", "Oregon City", 200),
		record("G", "Oregon City", 200),
	}
	got, err := New().WithNow(today).Predict(group)
	require.NoError(t, err)

	assert.Equal(t, "Oregon City", got[model.FieldCity])
	assert.Equal(t, "1234567893", got[model.FieldNPI])
	assert.Equal(t, model.ConsensusEndpoint, got.Endpoint())
	assert.Equal(t, model.ConsensusAccuracy, got.Accuracy())
	assert.Len(t, got, len(model.CanonicalFields))
}

func TestPredict_OldRecordOutvotesNewerMajority(t *testing.T) {
	// Weight grows with age: 1000 days weighs 10 against five records of 1.
	group := model.Group{
		record("A", "Oregon City", 100),
		record("B", "Oregon City", 100),
		record("C", "Oregon City", 100),
		record("D", "Oregon City", 100),
		record("E", "Oregon City", 100),
		record("F", "Portland", 1000),
	}
	got, err := New().WithNow(today).Predict(group)
	require.NoError(t, err)
	assert.Equal(t, "Portland", got[model.FieldCity])
	assert.Equal(t, daysAgo(1000), got[model.FieldLastPracUpdate])
}

func TestPredict_TieGoesToFirstValue(t *testing.T) {
	group := model.Group{
		record("A", "Salem", 100),
		record("B", "Eugene", 100),
	}
	got, err := New().WithNow(today).Predict(group)
	require.NoError(t, err)
	assert.Equal(t, "Salem", got[model.FieldCity])
}

func TestPredict_NullIsVotable(t *testing.T) {
	a := record("A", "Salem", 300)
	a.Set(model.FieldPhone, nil)
	b := record("B", "Salem", 100)
	b.Set(model.FieldPhone, "5035550100")

	got, err := New().WithNow(today).Predict(model.Group{a, b})
	require.NoError(t, err)
	assert.Nil(t, got[model.FieldPhone])
}

func TestPredict_UndatedRecordsDoNotVote(t *testing.T) {
	undated := record("A", "Portland", 0)
	undated.Set(model.FieldLastPracUpdate, nil)
	garbled := record("B", "Portland", 0)
	garbled.Set(model.FieldLastPracUpdate, "last tuesday")

	group := model.Group{undated, garbled, record("C", "Salem", 50)}
	got, err := New().WithNow(today).Predict(group)
	require.NoError(t, err)
	assert.Equal(t, "Salem", got[model.FieldCity])
}

func TestPredict_NoVotersTakesFirstRecord(t *testing.T) {
	a := record("A", "Portland", 0)
	a.Set(model.FieldLastPracUpdate, nil)
	b := record("B", "Salem", 0)
	b.Set(model.FieldLastPracUpdate, nil)

	got, err := New().WithNow(today).Predict(model.Group{a, b})
	require.NoError(t, err)
	assert.Equal(t, "Portland", got[model.FieldCity])
	assert.True(t, got.IsConsensus())
}

func TestPredict_UnionOfFields(t *testing.T) {
	a := model.Record{model.FieldCity: "Salem", model.FieldLastPracUpdate: daysAgo(100)}
	b := model.Record{model.FieldCity: "Salem", "Specialty": "Cardiology", model.FieldLastPracUpdate: daysAgo(300)}

	got, err := New().WithNow(today).Predict(model.Group{a, b})
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", got["Specialty"])
	assert.Contains(t, got, model.FieldEndpoint)
}

func TestWeight(t *testing.T) {
	p := New().WithNow(today)

	w, ok := p.Weight(model.Record{model.FieldLastPracUpdate: daysAgo(250)})
	require.True(t, ok)
	assert.InDelta(t, 2.5, w, 1e-9)

	// Time of day is ignored; only whole days count.
	w, ok = p.Weight(model.Record{model.FieldLastPracUpdate: "2024-05-31T23:59:59Z"})
	require.True(t, ok)
	assert.InDelta(t, 0.01, w, 1e-9)

	w, ok = p.Weight(model.Record{model.FieldLastPracUpdate: "2024-06-11T00:00:00Z"})
	require.True(t, ok)
	assert.InDelta(t, -0.1, w, 1e-9)

	_, ok = p.Weight(model.Record{model.FieldLastPracUpdate: nil})
	assert.False(t, ok)
}
