package dxf

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/table"
)

// Geometry selects how rows become entities.
type Geometry string

const (
	GeometryPoint    Geometry = "point"
	GeometryPolyline Geometry = "polyline"
)

// ParseGeometry accepts "point" or "polyline" in any case.
func ParseGeometry(s string) (Geometry, error) {
	switch g := Geometry(strings.ToLower(strings.TrimSpace(s))); g {
	case GeometryPoint, GeometryPolyline:
		return g, nil
	case "":
		return GeometryPoint, nil
	default:
		return "", fmt.Errorf("unknown geometry %q (want point or polyline)", s)
	}
}

// Options controls the coordinate transform and entity layout.
type Options struct {
	FlipY        bool
	Scale        float64
	DefaultLayer string
	Geometry     Geometry
	TextHeight   float64
}

func DefaultOptions() Options {
	return Options{
		Scale:        1,
		DefaultLayer: "0",
		Geometry:     GeometryPoint,
		TextHeight:   2.5,
	}
}

// Validate reports options no drawing can be built with. A zero Scale is
// unset and means 1.
func (o Options) Validate() error {
	if o.Scale < 0 || math.IsInf(o.Scale, 0) || math.IsNaN(o.Scale) {
		return fmt.Errorf("scale %v must be positive", o.Scale)
	}
	if o.Geometry != "" {
		if _, err := ParseGeometry(string(o.Geometry)); err != nil {
			return err
		}
	}
	return nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Scale == 0 {
		o.Scale = d.Scale
	}
	if o.DefaultLayer == "" {
		o.DefaultLayer = d.DefaultLayer
	}
	if o.Geometry == "" {
		o.Geometry = d.Geometry
	}
	if o.TextHeight <= 0 {
		o.TextHeight = d.TextHeight
	}
	return o
}

// RowWarning explains why a row was skipped or partly defaulted.
type RowWarning struct {
	Row    int    `json:"row" yaml:"row"`
	Line   int    `json:"line" yaml:"line"`
	Column string `json:"column" yaml:"column"`
	Reason string `json:"reason" yaml:"reason"`
}

func (w RowWarning) String() string {
	return fmt.Sprintf("line %d: %s: %s", w.Line, w.Column, w.Reason)
}

// Result is a built drawing plus per-row accounting.
type Result struct {
	Drawing  *Drawing
	Rows     int
	Skipped  int
	Warnings []RowWarning
}

// GeometryBuildError reports a build that produced no drawing.
type GeometryBuildError struct {
	Reason  string
	Rows    int
	Skipped int
	Err     error
}

func (e *GeometryBuildError) Error() string {
	if e.Rows > 0 {
		return fmt.Sprintf("geometry build failed: %s (%d of %d rows skipped)", e.Reason, e.Skipped, e.Rows)
	}
	return "geometry build failed: " + e.Reason
}

func (e *GeometryBuildError) Unwrap() error {
	return e.Err
}

// MissingColumnError reports a confirmed column the table does not have,
// usually because the file changed after the mapping was made.
type MissingColumnError struct {
	Role   mapping.Role
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s column %q is not in the table", e.Role, e.Column)
}

// Builder turns confirmed mappings into drawings.
type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts.withDefaults()}
}

type columns struct {
	x, y, z, label, layer int
}

func resolve(m *mapping.Confirmed, t *table.Table) (columns, error) {
	cols := columns{z: -1, label: -1, layer: -1}
	for _, spec := range []struct {
		role mapping.Role
		dst  *int
	}{
		{mapping.RoleX, &cols.x},
		{mapping.RoleY, &cols.y},
		{mapping.RoleZ, &cols.z},
		{mapping.RoleLabel, &cols.label},
		{mapping.RoleLayer, &cols.layer},
	} {
		name, ok := m.Column(spec.role)
		if !ok {
			continue
		}
		idx, ok := t.ColumnIndex(name)
		if !ok {
			return cols, &MissingColumnError{Role: spec.role, Column: name}
		}
		*spec.dst = idx
	}
	return cols, nil
}

// Build consumes m and emits one entity per usable row (point mode) or one
// polyline per layer (polyline mode). Rows without numeric X and Y are
// skipped with a warning. m is left unused when the options are invalid or
// a mapped column is missing from t.
func (b *Builder) Build(m *mapping.Confirmed, t *table.Table) (*Result, error) {
	if err := b.opts.Validate(); err != nil {
		return nil, fmt.Errorf("drawing options: %w", err)
	}

	cols, err := resolve(m, t)
	if err != nil {
		return nil, err
	}

	if err := m.Consume(); err != nil {
		return nil, &GeometryBuildError{Reason: "mapping was already used for a drawing", Err: err}
	}
	xName, yName := t.Columns[cols.x], t.Columns[cols.y]

	res := &Result{Drawing: NewDrawing(b.opts.TextHeight), Rows: len(t.Rows)}
	polylines := make(map[*Layer]*Entity)

	for i, row := range t.Rows {
		x, why := coordinate(row.Cells[cols.x])
		if why != "" {
			res.skip(i, row.Line, xName, why)
			continue
		}
		y, why := coordinate(row.Cells[cols.y])
		if why != "" {
			res.skip(i, row.Line, yName, why)
			continue
		}

		var z float64
		if cols.z >= 0 {
			if z, why = coordinate(row.Cells[cols.z]); why != "" {
				res.warn(i, row.Line, t.Columns[cols.z], why+"; using 0")
			}
		}

		p := b.transform(x, y, z)

		var label string
		if cols.label >= 0 {
			label = row.Cells[cols.label].Raw
		}

		layerName := b.opts.DefaultLayer
		if cols.layer >= 0 && row.Cells[cols.layer].Raw != "" {
			layerName = row.Cells[cols.layer].Raw
		}
		layer := res.Drawing.Layer(layerName)

		if b.opts.Geometry == GeometryPolyline {
			pl, ok := polylines[layer]
			if !ok {
				pl = &Entity{Kind: KindPolyline}
				polylines[layer] = pl
			}
			pl.Coords = append(pl.Coords, p)
			pl.Labels = append(pl.Labels, label)
			pl.Rows = append(pl.Rows, i)
			continue
		}

		layer.Entities = append(layer.Entities, Entity{
			Kind:   KindPoint,
			Coords: []Vec3{p},
			Labels: []string{label},
			Rows:   []int{i},
		})
	}

	if res.Skipped == res.Rows {
		return nil, &GeometryBuildError{
			Reason:  "no row has numeric X and Y values",
			Rows:    res.Rows,
			Skipped: res.Skipped,
			Err:     errors.New(firstReason(res.Warnings)),
		}
	}

	for _, layer := range res.Drawing.Layers {
		pl, ok := polylines[layer]
		if !ok {
			continue
		}
		// A single vertex cannot form a polyline.
		if len(pl.Coords) == 1 {
			pl.Kind = KindPoint
		}
		layer.Entities = append(layer.Entities, *pl)
	}

	return res, nil
}

func (b *Builder) transform(x, y, z float64) Vec3 {
	if b.opts.FlipY {
		y = -y
	}
	s := b.opts.Scale
	return Vec3{X: x * s, Y: y * s, Z: z * s}
}

// coordinate returns the cell's number or a reason it has none.
func coordinate(c table.Cell) (float64, string) {
	switch c.Kind {
	case table.CellNumber:
		return c.Number, ""
	case table.CellEmpty:
		return 0, "empty value"
	default:
		return 0, fmt.Sprintf("value %q is not numeric", c.Raw)
	}
}

func (r *Result) skip(row, line int, column, reason string) {
	r.Skipped++
	r.warn(row, line, column, reason+"; row skipped")
}

func (r *Result) warn(row, line int, column, reason string) {
	r.Warnings = append(r.Warnings, RowWarning{Row: row, Line: line, Column: column, Reason: reason})
}

func firstReason(ws []RowWarning) string {
	if len(ws) == 0 {
		return "no rows"
	}
	return ws[0].String()
}
