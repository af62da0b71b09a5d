package dxf

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/table"
)

func loadTable(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(csv), table.DefaultOptions())
	require.NoError(t, err)
	return tbl
}

func confirm(t *testing.T, tbl *table.Table, roles map[string]mapping.Role) *mapping.Confirmed {
	t.Helper()
	d := &mapping.Draft{}
	for _, c := range tbl.Columns {
		d.Assignments = append(d.Assignments, mapping.Assignment{Column: c, Role: mapping.RoleIgnore})
	}
	c, err := d.Confirm(roles)
	require.NoError(t, err)
	return c
}

const cities = "lon,lat,name\n2.35,48.85,Paris\n-0.12,51.5,London\n13.4,52.52,Berlin\n"

func TestBuild_LonLatName(t *testing.T) {
	tbl := loadTable(t, cities)
	m := confirm(t, tbl, map[string]mapping.Role{"lon": mapping.RoleX, "lat": mapping.RoleY, "name": mapping.RoleLabel})

	res, err := NewBuilder(DefaultOptions()).Build(m, tbl)
	require.NoError(t, err)

	require.Len(t, res.Drawing.Layers, 1)
	layer := res.Drawing.Layers[0]
	assert.Equal(t, "0", layer.Name)
	require.Len(t, layer.Entities, 3)
	assert.Equal(t, []string{"Paris"}, layer.Entities[0].Labels)
	assert.Equal(t, []string{"Berlin"}, layer.Entities[2].Labels)
	assert.Equal(t, 3, res.Rows)
	assert.Zero(t, res.Skipped)
	assert.Empty(t, res.Warnings)
}

func TestBuild_RoundTripCoordinates(t *testing.T) {
	tbl := loadTable(t, cities)
	m := confirm(t, tbl, map[string]mapping.Role{"lon": mapping.RoleX, "lat": mapping.RoleY})

	res, err := NewBuilder(DefaultOptions()).Build(m, tbl)
	require.NoError(t, err)

	for i, e := range res.Drawing.Layers[0].Entities {
		lon, _ := tbl.Cell(i, "lon")
		lat, _ := tbl.Cell(i, "lat")
		assert.Equal(t, Vec3{X: lon.Number, Y: lat.Number}, e.Coords[0])
		assert.Equal(t, []int{i}, e.Rows)
	}
}

func TestBuild_Transform(t *testing.T) {
	tbl := loadTable(t, "x,y,z\n1,2,3\n")
	m := confirm(t, tbl, map[string]mapping.Role{"x": mapping.RoleX, "y": mapping.RoleY, "z": mapping.RoleZ})

	opts := DefaultOptions()
	opts.FlipY = true
	opts.Scale = 10

	res, err := NewBuilder(opts).Build(m, tbl)
	require.NoError(t, err)

	assert.Equal(t, Vec3{X: 10, Y: -20, Z: 30}, res.Drawing.Layers[0].Entities[0].Coords[0])
}

func TestBuild_SkipsRowsWithoutCoordinates(t *testing.T) {
	tbl := loadTable(t, "x,y,tag\n1,2,a\n,3,b\n4,n/a,c\n5,6,d\n")
	m := confirm(t, tbl, map[string]mapping.Role{"x": mapping.RoleX, "y": mapping.RoleY})

	res, err := NewBuilder(DefaultOptions()).Build(m, tbl)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, res.Rows-res.Skipped, res.Drawing.EntityCount())

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, RowWarning{Row: 1, Line: 3, Column: "x", Reason: "empty value; row skipped"}, res.Warnings[0])
	assert.Equal(t, "y", res.Warnings[1].Column)
	assert.Equal(t, 4, res.Warnings[1].Line)
}

func TestBuild_NonNumericZDefaultsToZero(t *testing.T) {
	tbl := loadTable(t, "x,y,z\n1,2,high\n3,4,5\n")
	m := confirm(t, tbl, map[string]mapping.Role{"x": mapping.RoleX, "y": mapping.RoleY, "z": mapping.RoleZ})

	res, err := NewBuilder(DefaultOptions()).Build(m, tbl)
	require.NoError(t, err)

	ents := res.Drawing.Layers[0].Entities
	assert.Zero(t, ents[0].Coords[0].Z)
	assert.Equal(t, 5.0, ents[1].Coords[0].Z)
	assert.Zero(t, res.Skipped)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "z", res.Warnings[0].Column)
}

func TestBuild_Layers(t *testing.T) {
	tbl := loadTable(t, "x,y,kind\n1,1,walls\n2,2, \n3,3,doors\n4,4,walls\n")
	m := confirm(t, tbl, map[string]mapping.Role{"x": mapping.RoleX, "y": mapping.RoleY, "kind": mapping.RoleLayer})

	opts := DefaultOptions()
	opts.DefaultLayer = "MISC"

	res, err := NewBuilder(opts).Build(m, tbl)
	require.NoError(t, err)

	var names []string
	counts := map[string]int{}
	for _, l := range res.Drawing.Layers {
		names = append(names, l.Name)
		counts[l.Name] = len(l.Entities)
	}
	assert.Equal(t, []string{"walls", "MISC", "doors"}, names)
	assert.Equal(t, map[string]int{"walls": 2, "MISC": 1, "doors": 1}, counts)
}

func TestBuild_PolylineMode(t *testing.T) {
	tbl := loadTable(t, "x,y,kind,id\n0,0,a,p1\n1,0,a,p2\n1,1,a,p3\n5,5,b,q1\n")
	m := confirm(t, tbl, map[string]mapping.Role{
		"x": mapping.RoleX, "y": mapping.RoleY, "kind": mapping.RoleLayer, "id": mapping.RoleLabel,
	})

	opts := DefaultOptions()
	opts.Geometry = GeometryPolyline

	res, err := NewBuilder(opts).Build(m, tbl)
	require.NoError(t, err)

	require.Len(t, res.Drawing.Layers, 2)
	a := res.Drawing.Layers[0].Entities
	require.Len(t, a, 1)
	assert.Equal(t, KindPolyline, a[0].Kind)
	assert.Equal(t, []Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}, a[0].Coords)
	assert.Equal(t, []string{"p1", "p2", "p3"}, a[0].Labels)

	b := res.Drawing.Layers[1].Entities
	require.Len(t, b, 1)
	assert.Equal(t, KindPoint, b[0].Kind)
}

func TestBuild_NoValidRows(t *testing.T) {
	tbl := loadTable(t, "x,y\na,b\nc,d\n")
	m := confirm(t, tbl, map[string]mapping.Role{"x": mapping.RoleX, "y": mapping.RoleY})

	_, err := NewBuilder(DefaultOptions()).Build(m, tbl)

	var ge *GeometryBuildError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, 2, ge.Rows)
	assert.Equal(t, 2, ge.Skipped)
}

func TestBuild_MappingConsumedOnce(t *testing.T) {
	tbl := loadTable(t, cities)
	m := confirm(t, tbl, map[string]mapping.Role{"lon": mapping.RoleX, "lat": mapping.RoleY})
	b := NewBuilder(DefaultOptions())

	_, err := b.Build(m, tbl)
	require.NoError(t, err)

	_, err = b.Build(m, tbl)
	var ge *GeometryBuildError
	require.True(t, errors.As(err, &ge))
	assert.ErrorIs(t, err, mapping.ErrConsumed)
}

func TestBuild_ColumnMissingFromTable(t *testing.T) {
	tbl := loadTable(t, cities)
	other := loadTable(t, "e,n\n1,2\n")
	m := confirm(t, other, map[string]mapping.Role{"e": mapping.RoleX, "n": mapping.RoleY})

	_, err := NewBuilder(DefaultOptions()).Build(m, tbl)

	var mc *MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, mapping.RoleX, mc.Role)
	assert.Equal(t, "e", mc.Column)
	var ge *GeometryBuildError
	assert.False(t, errors.As(err, &ge))

	// The failed build leaves the mapping usable.
	_, err = NewBuilder(DefaultOptions()).Build(m, other)
	assert.NoError(t, err)
}

func TestBuild_NegativeScaleRejected(t *testing.T) {
	tbl := loadTable(t, cities)
	m := confirm(t, tbl, map[string]mapping.Role{"lon": mapping.RoleX, "lat": mapping.RoleY})
	opts := DefaultOptions()
	opts.Scale = -2

	_, err := NewBuilder(opts).Build(m, tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scale")

	_, err = NewBuilder(DefaultOptions()).Build(m, tbl)
	assert.NoError(t, err, "mapping must not be consumed by a rejected build")
}

func TestBuild_ZeroScaleMeansUnset(t *testing.T) {
	tbl := loadTable(t, cities)
	m := confirm(t, tbl, map[string]mapping.Role{"lon": mapping.RoleX, "lat": mapping.RoleY})

	res, err := NewBuilder(Options{}).Build(m, tbl)
	require.NoError(t, err)
	assert.Equal(t, 2.35, res.Drawing.Layers[0].Entities[0].Coords[0].X)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", DefaultOptions(), false},
		{"zero value", Options{}, false},
		{"negative scale", Options{Scale: -2}, true},
		{"infinite scale", Options{Scale: math.Inf(1)}, true},
		{"nan scale", Options{Scale: math.NaN()}, true},
		{"unknown geometry", Options{Geometry: "spline"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseGeometry(t *testing.T) {
	tests := map[string]Geometry{
		"":           GeometryPoint,
		"point":      GeometryPoint,
		"polyline":   GeometryPolyline,
		"POLYLINE":   GeometryPolyline,
		" Polyline ": GeometryPolyline,
	}
	for in, want := range tests {
		g, err := ParseGeometry(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, g, in)
	}

	_, err := ParseGeometry("spline")
	assert.Error(t, err)
}
