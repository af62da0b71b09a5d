package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
	"github.com/JonMunkholm/csvdxf/internal/profile"
	"github.com/JonMunkholm/csvdxf/internal/table"
)

func draft() *pipeline.Draft {
	return &pipeline.Draft{
		RunID:  uuid.MustParse("6f1c1f3e-8b7a-4c55-9d7e-2f0a5b9c1d23"),
		Source: "points.csv",
		Rows:   3,
		Profiles: []profile.ColumnProfile{
			{Name: "lon", Type: table.CellNumber, NumericRatio: 1, Samples: []string{"2.35", "13.4"}},
			{Name: "lat", Type: table.CellNumber, NumericRatio: 1},
			{Name: "name", Type: table.CellText},
		},
		Mapping: &mapping.Draft{
			Assignments: []mapping.Assignment{
				{Column: "lon", Role: mapping.RoleX, Confidence: 0.9, Source: mapping.SourceInferred},
				{Column: "lat", Role: mapping.RoleY, Confidence: 0.9, Source: mapping.SourceInferred},
				{Column: "name", Role: mapping.RoleIgnore, Source: mapping.SourceInferred},
			},
			Warnings: []mapping.Warning{{Code: mapping.WarnNeedsConfirm, Column: "lat", Message: "check"}},
		},
	}
}

func TestWriteDraft(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDraft(&buf, draft()))

	var doc draftDocument
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "6f1c1f3e-8b7a-4c55-9d7e-2f0a5b9c1d23", doc.RunID)
	require.Len(t, doc.Columns, 3)
	assert.Equal(t, "X", doc.Columns[0].Role)
	assert.Equal(t, "numeric", doc.Columns[0].Type)
	assert.Equal(t, []string{"2.35", "13.4"}, doc.Columns[0].Samples)
	assert.Equal(t, []string{"[needs_confirmation] lat: check"}, doc.Warnings)
	assert.Contains(t, buf.String(), "samples: [\"2.35\", \"13.4\"]")
}

func TestReadDecision_EditedDraft(t *testing.T) {
	d := draft()

	var buf bytes.Buffer
	require.NoError(t, WriteDraft(&buf, d))
	edited := strings.Replace(buf.String(), "role: IGNORE", "role: label", 1)

	dec, err := ReadDecision(strings.NewReader(edited), d)
	require.NoError(t, err)

	assert.Equal(t, map[string]mapping.Role{"name": mapping.RoleLabel}, dec.Overrides)
}

func TestReadDecision_UnchangedDraftAccepts(t *testing.T) {
	d := draft()

	var buf bytes.Buffer
	require.NoError(t, WriteDraft(&buf, d))

	dec, err := ReadDecision(&buf, d)
	require.NoError(t, err)
	assert.Nil(t, dec.Overrides)
}

func TestReadDecision_Overrides(t *testing.T) {
	in := `
overrides:
  lon: y
  lat: X
`
	dec, err := ReadDecision(strings.NewReader(in), draft())
	require.NoError(t, err)
	assert.Equal(t, map[string]mapping.Role{"lon": mapping.RoleY, "lat": mapping.RoleX}, dec.Overrides)
}

func TestReadDecision_Empty(t *testing.T) {
	dec, err := ReadDecision(strings.NewReader(""), draft())
	require.NoError(t, err)
	assert.Nil(t, dec.Overrides)
}

func TestReadDecision_Errors(t *testing.T) {
	tests := map[string]string{
		"wrong run":      "run_id: 00000000-0000-0000-0000-000000000001\n",
		"unknown column": "columns:\n  - column: elevation\n    role: Z\n",
		"bad role":       "overrides:\n  lon: north\n",
		"bad yaml":       "overrides: [\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadDecision(strings.NewReader(in), draft())
			assert.Error(t, err)
		})
	}
}
