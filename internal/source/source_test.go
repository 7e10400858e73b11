package source

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provdir/internal/config"
	"github.com/sells-group/provdir/internal/standardize"
)

func TestLoadFile_ChoosesRichestShape(t *testing.T) {
	raws, err := LoadFile(filepath.Join("testdata", "humana.json"))
	require.NoError(t, err)
	require.Len(t, raws, 2)

	full, ok := raws[0].(standardize.IdentityRoleLocations)
	require.True(t, ok, "got %T", raws[0])
	assert.Equal(t, "hp1", full.Practitioner.ID)
	require.Len(t, full.Roles, 1)
	require.Len(t, full.Roles[0].Locations, 1)
	assert.Equal(t, "hl1", full.Roles[0].Locations[0].ID)

	bare, ok := raws[1].(standardize.Identity)
	require.True(t, ok, "got %T", raws[1])
	assert.Equal(t, "hp2", bare.Practitioner.ID)
}

func TestLoadFile_DanglingLocationFallsBackToRoles(t *testing.T) {
	raws, err := LoadFile(filepath.Join("testdata", "cigna.json"))
	require.NoError(t, err)
	require.Len(t, raws, 1)

	roles, ok := raws[0].(standardize.IdentityRoles)
	require.True(t, ok, "got %T", raws[0])
	require.Len(t, roles.Roles, 1)
	assert.Equal(t, "cr1", roles.Roles[0].ID)
}

func TestLink_MixedRolesKeepsOnlyLocated(t *testing.T) {
	b, err := ReadBundle(strings.NewReader(`{"resourceType": "Bundle", "entry": [
		{"resource": {"resourceType": "Practitioner", "id": "p1"}},
		{"resource": {"resourceType": "PractitionerRole", "id": "r1", "practitioner": {"reference": "Practitioner/p1"}}},
		{"resource": {"resourceType": "PractitionerRole", "id": "r2", "practitioner": {"reference": "Practitioner/p1"},
			"location": [{"reference": "Location/l1"}]}},
		{"resource": {"resourceType": "Location", "id": "l1"}}
	]}`))
	require.NoError(t, err)

	raws := Link(b)
	require.Len(t, raws, 1)
	full, ok := raws[0].(standardize.IdentityRoleLocations)
	require.True(t, ok)
	require.Len(t, full.Roles, 1)
	assert.Equal(t, "r2", full.Roles[0].Role.ID)
}

func TestLink_SkipsBadEntries(t *testing.T) {
	b, err := ReadBundle(strings.NewReader(`{"resourceType": "Bundle", "entry": [
		{"resource": {"resourceType": "Practitioner", "id": 7}},
		{"resource": {"resourceType": "Practitioner", "id": "ok"}}
	]}`))
	require.NoError(t, err)
	raws := Link(b)
	require.Len(t, raws, 1)
}

func TestReadBundle_Errors(t *testing.T) {
	_, err := ReadBundle(strings.NewReader(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: decode bundle")

	_, err = ReadBundle(strings.NewReader(`{"resourceType": "Practitioner"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected Bundle")
}

func TestLoadDir(t *testing.T) {
	inputs, err := LoadDir(context.Background(), []config.SourceConfig{
		{Name: "Humana", Path: filepath.Join("testdata", "humana.json")},
		{Name: "Cigna", Path: filepath.Join("testdata", "cigna.json")},
	})
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "Humana", inputs[0].Source)
	assert.Len(t, inputs[0].Raws, 2)
	assert.Equal(t, "Cigna", inputs[1].Source)
	assert.Len(t, inputs[1].Raws, 1)
}

func TestLoadDir_MissingFile(t *testing.T) {
	_, err := LoadDir(context.Background(), []config.SourceConfig{
		{Name: "Aetna", Path: filepath.Join("testdata", "missing.json")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: load Aetna")
}
