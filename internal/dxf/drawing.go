// Package dxf builds drawing entities from a confirmed column mapping and
// writes them as an ASCII DXF file.
package dxf

// Vec3 is a coordinate triple in drawing units.
type Vec3 struct {
	X, Y, Z float64
}

// EntityKind distinguishes the supported primitives.
type EntityKind int

const (
	KindPoint EntityKind = iota
	KindPolyline
)

func (k EntityKind) String() string {
	if k == KindPolyline {
		return "polyline"
	}
	return "point"
}

// Entity is a point (one coordinate) or a polyline (several). Labels and
// Rows are parallel to Coords; an empty label draws no text. Rows are
// 0-based table row indexes.
type Entity struct {
	Kind   EntityKind
	Coords []Vec3
	Labels []string
	Rows   []int
}

// Layer is a named, ordered list of entities.
type Layer struct {
	Name     string
	Entities []Entity
}

// Drawing is an ordered list of layers.
type Drawing struct {
	Layers     []*Layer
	TextHeight float64

	byName map[string]*Layer
}

func NewDrawing(textHeight float64) *Drawing {
	return &Drawing{TextHeight: textHeight, byName: make(map[string]*Layer)}
}

// Layer returns the named layer, creating it on first use.
func (d *Drawing) Layer(name string) *Layer {
	if d.byName == nil {
		d.byName = make(map[string]*Layer)
	}
	if l, ok := d.byName[name]; ok {
		return l
	}
	l := &Layer{Name: name}
	d.byName[name] = l
	d.Layers = append(d.Layers, l)
	return l
}

// EntityCount returns the number of entities across all layers.
func (d *Drawing) EntityCount() int {
	n := 0
	for _, l := range d.Layers {
		n += len(l.Entities)
	}
	return n
}
