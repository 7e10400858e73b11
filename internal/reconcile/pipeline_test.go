package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provdir/internal/match"
	"github.com/sells-group/provdir/internal/model"
	"github.com/sells-group/provdir/internal/standardize"
	"github.com/sells-group/provdir/pkg/fhir"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func practitioner(npi, family, updated string) fhir.Practitioner {
	return fhir.Practitioner{
		ResourceType: fhir.TypePractitioner,
		ID:           npi,
		Meta:         &fhir.Meta{LastUpdated: updated},
		Identifier:   []fhir.Identifier{{System: fhir.SystemNPI, Value: npi}},
		Name:         []fhir.HumanName{{Family: family, Given: []string{"Jane"}}},
		Gender:       "female",
	}
}

func located(p fhir.Practitioner, org, phone string, lat, lng float64) standardize.Raw {
	return standardize.IdentityRoleLocations{
		Practitioner: p,
		Roles: []standardize.RoleLocations{{
			Role: fhir.PractitionerRole{
				ResourceType: fhir.TypePractitionerRole,
				Organization: &fhir.Reference{Display: org},
				Specialty: []fhir.CodeableConcept{{Coding: []fhir.Coding{
					{System: fhir.SystemTaxonomy, Code: "207Q00000X"},
				}}},
				Telecom: []fhir.ContactPoint{{System: "phone", Value: phone}},
			},
			Locations: []fhir.Location{{
				ResourceType: fhir.TypeLocation,
				Address:      &fhir.Address{Text: "100 Main St, Oregon City, OR, 97045"},
				Position:     &fhir.Position{Latitude: lat, Longitude: lng},
			}},
		}},
	}
}

func sampleInputs() []SourceRaw {
	smith := practitioner("1234567893", "Smith", "2023-06-01T00:00:00Z")
	smithNewer := practitioner("1234567893", "Smith", "2024-05-01T00:00:00Z")
	doe := practitioner("9876543210", "Doe", "2024-01-01T00:00:00Z")

	return []SourceRaw{
		{Source: "Humana", Raws: []standardize.Raw{located(smith, "Cascade Family Medicine", "5035550100", 45.3573, -122.6068)}},
		{Source: "Cigna", Raws: []standardize.Raw{
			located(smith, "Cascade Family Medicine", "5035550100", 45.3580, -122.6050),
			standardize.Identity{Practitioner: doe},
		}},
		{Source: "UHC", Raws: []standardize.Raw{located(smithNewer, "Cascade Family Med", "5035550199", 45.3560, -122.6070)}},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	p := New(WithNow(now))
	results, err := p.Run(context.Background(), sampleInputs())
	require.NoError(t, err)
	require.Len(t, results, 2)

	smith := results[0]
	require.Len(t, smith.Members, 3)
	assert.Equal(t, "Humana", smith.Members[0].Endpoint())
	assert.Equal(t, "UHC", smith.Members[2].Endpoint())

	cons := smith.Consensus
	assert.True(t, cons.IsConsensus())
	assert.Equal(t, model.ConsensusAccuracy, cons.Accuracy())
	assert.Equal(t, "Cascade Family Medicine", cons[model.FieldGroupName])
	assert.Equal(t, "5035550100", cons[model.FieldPhone])

	for _, m := range smith.Members {
		assert.Greater(t, m.Accuracy(), 0.0)
		assert.LessOrEqual(t, m.Accuracy(), 1.0)
	}
	assert.Greater(t, smith.Members[0].Accuracy(), smith.Members[2].Accuracy())

	doe := results[1]
	require.Len(t, doe.Members, 1)
	assert.Equal(t, "Doe, Jane", doe.Consensus[model.FieldFullName])
	assert.InDelta(t, 1.0, doe.Members[0].Accuracy(), 1e-9)
}

func TestRun_GeocodesThroughMatcher(t *testing.T) {
	calls := 0
	geo := match.GeocoderFunc(func(context.Context, match.Address) (float64, float64, bool, error) {
		calls++
		return 45.3573, -122.6068, true, nil
	})

	p := New(WithNow(now), WithMatcher(match.New(match.WithGeocoder(geo))))
	p1 := practitioner("1234567893", "Smith", "2024-01-01T00:00:00Z")
	raw := standardize.IdentityRoleLocations{
		Practitioner: p1,
		Roles: []standardize.RoleLocations{{
			Role:      fhir.PractitionerRole{},
			Locations: []fhir.Location{{Address: &fhir.Address{Text: "100 Main St, Oregon City, OR, 97045"}}},
		}},
	}

	results, err := p.Run(context.Background(), []SourceRaw{
		{Source: "A", Raws: []standardize.Raw{raw}},
		{Source: "B", Raws: []standardize.Raw{raw}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Members, 2)
	assert.Equal(t, 1, calls)
	assert.InDelta(t, 45.3573, results[0].Consensus[model.FieldLat], 1e-9)
}

func TestRun_Empty(t *testing.T) {
	results, err := New().Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Run(ctx, sampleInputs())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStandardize_SourcesInOrder(t *testing.T) {
	recs := New(WithNow(now)).Standardize(sampleInputs())
	require.Len(t, recs, 4)
	assert.Equal(t, []string{"Humana", "Cigna", "Cigna", "UHC"}, []string{
		recs[0].Endpoint(), recs[1].Endpoint(), recs[2].Endpoint(), recs[3].Endpoint(),
	})
}

func TestRunBatch_PreservesOrder(t *testing.T) {
	p := New(WithNow(now), WithConcurrency(2))

	single := []SourceRaw{{Source: "Solo", Raws: []standardize.Raw{
		standardize.Identity{Practitioner: practitioner("1111111111", "Solo", "2024-01-01T00:00:00Z")},
	}}}

	out, err := p.RunBatch(context.Background(), [][]SourceRaw{sampleInputs(), single, sampleInputs()})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Len(t, out[0], 2)
	assert.Len(t, out[1], 1)
	assert.Equal(t, "Solo", out[1][0].Members[0].Endpoint())
	assert.Len(t, out[2], 2)
}

func TestRunBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().RunBatch(ctx, [][]SourceRaw{sampleInputs()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconcile: batch 0")
}
