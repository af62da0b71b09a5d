package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvdxf/internal/mapping"
)

func rolesOf(t *testing.T, csv string) map[string]mapping.Role {
	t.Helper()
	cands, err := NewEngine(Heuristic{}).Infer(context.Background(), profilesOf(t, csv))
	require.NoError(t, err)

	out := make(map[string]mapping.Role, len(cands))
	for _, c := range cands {
		assert.True(t, c.Scored)
		out[c.Column] = c.Role
	}
	return out
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want map[string]mapping.Role
	}{
		{
			name: "geographic names",
			csv:  lonLat,
			want: map[string]mapping.Role{"lon": mapping.RoleX, "lat": mapping.RoleY, "name": mapping.RoleLabel},
		},
		{
			name: "survey names",
			csv:  "Point ID,Easting,Northing,Elevation,Layer\nP1,100,200,5,walls\nP2,101,201,6,walls\n",
			want: map[string]mapping.Role{
				"Point ID":  mapping.RoleLabel,
				"Easting":   mapping.RoleX,
				"Northing":  mapping.RoleY,
				"Elevation": mapping.RoleZ,
				"Layer":     mapping.RoleLayer,
			},
		},
		{
			name: "part list",
			csv:  "nom des pièces,LONGUEUR,LARGEUR,paquet\nA,12.5,3,P1\nB,10,2,P1\n",
			want: map[string]mapping.Role{
				"nom des pièces": mapping.RoleLabel,
				"LONGUEUR":       mapping.RoleX,
				"LARGEUR":        mapping.RoleY,
				"paquet":         mapping.RoleLayer,
			},
		},
		{
			name: "positional fallback",
			csv:  "a,b,c\n1,2,3\n4,5,6\n",
			want: map[string]mapping.Role{"a": mapping.RoleX, "b": mapping.RoleY, "c": mapping.RoleIgnore},
		},
		{
			name: "coordinate keyword on text column is skipped",
			csv:  "x,p,q\nfoo,1,2\nbar,3,4\n",
			want: map[string]mapping.Role{"x": mapping.RoleLabel, "p": mapping.RoleX, "q": mapping.RoleY},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rolesOf(t, tt.csv))
		})
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	req := NewRequest(profilesOf(t, lonLat))

	a, err := Heuristic{}.Complete(context.Background(), req)
	require.NoError(t, err)
	b, err := Heuristic{}.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
