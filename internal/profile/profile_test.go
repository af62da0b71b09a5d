package profile

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvdxf/internal/table"
)

func load(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(csv), table.DefaultOptions())
	require.NoError(t, err)
	return tbl
}

func TestProfile_NumericColumn(t *testing.T) {
	tbl := load(t, "x,name\n1,a\n2,b\n3,c\n4,d\n")

	got := Profile(tbl, Options{})
	require.Len(t, got, 2)

	x := got[0]
	assert.Equal(t, "x", x.Name)
	assert.Equal(t, 0, x.Index)
	assert.Equal(t, table.CellNumber, x.Type)
	assert.Equal(t, 1.0, x.NumericRatio)
	assert.Equal(t, 1.0, x.DistinctRatio)
	assert.Zero(t, x.EmptyRatio)
	assert.True(t, x.HasRange)
	assert.Equal(t, 1.0, x.Min)
	assert.Equal(t, 4.0, x.Max)
	assert.InDelta(t, 2.5, x.Mean, 1e-9)
	assert.InDelta(t, 1.2909944, x.StdDev, 1e-6)

	name := got[1]
	assert.Equal(t, table.CellText, name.Type)
	assert.Zero(t, name.NumericRatio)
	assert.False(t, name.HasRange)
}

func TestProfile_HugeValuesStayFinite(t *testing.T) {
	tbl := load(t, "x,y,z\n1e308,1,-1.7e308\n1e308,2,1.7e308\n")

	got := Profile(tbl, Options{})
	require.Len(t, got, 3)

	for _, p := range got {
		for _, v := range []float64{p.Min, p.Max, p.Mean, p.StdDev} {
			assert.False(t, math.IsInf(v, 0) || math.IsNaN(v), "%s: %v", p.Name, v)
		}
	}
	assert.Equal(t, 1e308, got[0].Mean)
	assert.Zero(t, got[0].StdDev)
	assert.InDelta(t, 1.5, got[1].Mean, 1e-9)
	assert.Zero(t, got[2].Mean)

	_, err := json.Marshal(got)
	assert.NoError(t, err)
}

func TestProfile_RatiosIgnoreEmptyCells(t *testing.T) {
	tbl := load(t, "x,y\n1,\n2,a\nfoo,\n,b\n")

	got := Profile(tbl, Options{})

	x := got[0]
	assert.InDelta(t, 2.0/3.0, x.NumericRatio, 1e-9)
	assert.InDelta(t, 0.25, x.EmptyRatio, 1e-9)
	assert.Equal(t, table.CellNumber, x.Type)

	y := got[1]
	assert.InDelta(t, 0.5, y.EmptyRatio, 1e-9)
	assert.Equal(t, table.CellText, y.Type)
}

func TestProfile_AllEmptyColumn(t *testing.T) {
	tbl := load(t, "x,blank\n1,\n2,\n")

	got := Profile(tbl, Options{})[1]

	assert.Equal(t, table.CellEmpty, got.Type)
	assert.Zero(t, got.NumericRatio)
	assert.Zero(t, got.DistinctRatio)
	assert.Equal(t, 1.0, got.EmptyRatio)
	assert.Empty(t, got.Samples)
}

func TestProfile_SingleValueHasZeroStdDev(t *testing.T) {
	tbl := load(t, "x,y\n7,1\n")

	got := Profile(tbl, Options{})[0]

	assert.Equal(t, 7.0, got.Mean)
	assert.Zero(t, got.StdDev)
}

func TestProfile_DistinctRatio(t *testing.T) {
	tbl := load(t, "layer\nA\nA\nB\nB\n")

	got := Profile(tbl, Options{})[0]

	assert.Equal(t, 0.5, got.DistinctRatio)
	assert.Equal(t, []string{"A", "B"}, got.Samples)
}

func TestProfile_Deterministic(t *testing.T) {
	tbl := load(t, "a,b,c\n1,x,\n2,y,3\n3,z,4\n")

	first := Profile(tbl, Options{SampleSize: 2})
	second := Profile(tbl, Options{SampleSize: 2})

	assert.Equal(t, first, second)
}

func TestSamples(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		n      int
		want   []string
	}{
		{"fewer than n", []string{"a", "b"}, 5, []string{"a", "b"}},
		{"evenly spaced", []string{"0", "1", "2", "3", "4", "5", "6", "7", "8"}, 3, []string{"0", "4", "8"}},
		{"repeats filled from start", []string{"a", "a", "a", "b", "a"}, 3, []string{"a", "b"}},
		{"first and last", []string{"p", "q", "r", "s"}, 2, []string{"p", "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, samples(tt.values, tt.n))
		})
	}
}

func TestNumericCapable(t *testing.T) {
	assert.True(t, NumericCapable(ColumnProfile{NumericRatio: 0.9}, 0.9))
	assert.False(t, NumericCapable(ColumnProfile{NumericRatio: 0.6}, 0.9))
}
