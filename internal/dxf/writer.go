package dxf

import (
	"fmt"
	"io"
	"os"
	"strings"

	yd "github.com/yofu/dxf"
	"github.com/yofu/dxf/drawing"
)

// Characters AutoCAD does not allow in layer names.
const badLayerChars = `<>/\":;?*|=,` + "`"

// Write emits d as an ASCII DXF file. Labels become TEXT entities on their
// point's layer.
func Write(w io.Writer, d *Drawing) error {
	doc, err := render(d)
	if err != nil {
		return fmt.Errorf("write dxf: %w", err)
	}

	// The drawing can only be saved by file name.
	tmp, err := os.CreateTemp("", "csvdxf-*.dxf")
	if err != nil {
		return fmt.Errorf("write dxf: %w", err)
	}
	name := tmp.Name()
	tmp.Close()
	defer os.Remove(name)

	if err := doc.SaveAs(name); err != nil {
		return fmt.Errorf("write dxf: %w", err)
	}

	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("write dxf: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write dxf: %w", err)
	}
	return nil
}

// render builds the library drawing: one layer table entry per layer, then
// that layer's points or polylines and their labels.
func render(d *Drawing) (*drawing.Drawing, error) {
	doc := yd.NewDrawing()
	names := layerNames(d.Layers)

	for _, l := range d.Layers {
		name := names[l]
		if name == "0" {
			if err := doc.ChangeLayer(name); err != nil {
				return nil, err
			}
		} else if _, err := doc.AddLayer(name, yd.DefaultColor, yd.DefaultLineType, true); err != nil {
			return nil, fmt.Errorf("layer %q: %w", name, err)
		}

		for _, e := range l.Entities {
			if err := addEntity(doc, e); err != nil {
				return nil, fmt.Errorf("layer %q: %w", name, err)
			}
			for i, label := range e.Labels {
				if label == "" {
					continue
				}
				// Offset the insertion point so the text does not sit on the marker.
				at, off := e.Coords[i], d.TextHeight/2
				if _, err := doc.Text(encodeText(label), at.X+off, at.Y+off, at.Z, d.TextHeight); err != nil {
					return nil, fmt.Errorf("label %q: %w", label, err)
				}
			}
		}
	}
	return doc, nil
}

func addEntity(doc *drawing.Drawing, e Entity) error {
	if e.Kind == KindPolyline {
		vertices := make([][]float64, len(e.Coords))
		for i, c := range e.Coords {
			vertices[i] = []float64{c.X, c.Y, c.Z}
		}
		_, err := doc.Polyline(false, vertices...)
		return err
	}
	c := e.Coords[0]
	_, err := doc.Point(c.X, c.Y, c.Z)
	return err
}

// encodeText makes s safe for a single group value: line breaks become
// spaces and non-ASCII runes use the \U+XXXX escape.
func encodeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\r' || r == '\n':
			b.WriteByte(' ')
		case r > 0x7E:
			fmt.Fprintf(&b, `\U+%04X`, r)
		case r < 0x20:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// layerNames maps each layer to a DXF-legal name, keeping names unique.
func layerNames(layers []*Layer) map[*Layer]string {
	out := make(map[*Layer]string, len(layers))
	used := make(map[string]bool, len(layers))
	for _, l := range layers {
		base := SanitizeLayerName(l.Name)
		name := base
		for n := 2; used[strings.ToUpper(name)]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[strings.ToUpper(name)] = true
		out[l] = name
	}
	return out
}

// SanitizeLayerName trims name and replaces the characters DXF forbids in
// layer names. Other characters, including non-ASCII letters, are kept.
func SanitizeLayerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "0"
	}
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(badLayerChars, r) || r < 0x20 {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
