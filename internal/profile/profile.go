// Package profile computes per-column statistics used to explain a table's
// shape to the role inference engine and the mapping validator.
package profile

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/JonMunkholm/csvdxf/internal/table"
)

// DefaultSampleSize is the number of sample values kept per column.
const DefaultSampleSize = 5

// numericTypeRatio is the share of numeric cells at which a column is typed
// as numeric.
const numericTypeRatio = 0.5

// ColumnProfile summarises one column. Ratios are computed over non-empty
// cells; EmptyRatio is over all rows. Range statistics are set only when
// HasRange is true, and every statistic is finite.
type ColumnProfile struct {
	Name          string         `json:"name" yaml:"name"`
	Index         int            `json:"index" yaml:"index"`
	Type          table.CellKind `json:"type" yaml:"type"`
	NumericRatio  float64        `json:"numeric_ratio" yaml:"numeric_ratio"`
	DistinctRatio float64        `json:"distinct_ratio" yaml:"distinct_ratio"`
	EmptyRatio    float64        `json:"empty_ratio" yaml:"empty_ratio"`
	HasRange      bool           `json:"has_range" yaml:"has_range"`
	Min           float64        `json:"min,omitempty" yaml:"min,omitempty"`
	Max           float64        `json:"max,omitempty" yaml:"max,omitempty"`
	Mean          float64        `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev        float64        `json:"stddev,omitempty" yaml:"stddev,omitempty"`
	Samples       []string       `json:"samples" yaml:"samples"`
}

// Options configures profiling.
type Options struct {
	SampleSize int
}

// Profile returns one profile per column, in header order.
func Profile(t *table.Table, opts Options) []ColumnProfile {
	n := opts.SampleSize
	if n <= 0 {
		n = DefaultSampleSize
	}

	out := make([]ColumnProfile, len(t.Columns))
	for i, name := range t.Columns {
		out[i] = column(t, i, name, n)
	}
	return out
}

func column(t *table.Table, idx int, name string, sampleSize int) ColumnProfile {
	p := ColumnProfile{Name: name, Index: idx, Samples: []string{}}

	var (
		raws     []string
		numbers  []float64
		distinct = make(map[string]struct{})
	)
	for _, row := range t.Rows {
		c := row.Cells[idx]
		if c.Kind == table.CellEmpty {
			continue
		}
		raws = append(raws, c.Raw)
		distinct[c.Raw] = struct{}{}
		if c.Kind == table.CellNumber {
			numbers = append(numbers, c.Number)
		}
	}

	if len(t.Rows) > 0 {
		p.EmptyRatio = float64(len(t.Rows)-len(raws)) / float64(len(t.Rows))
	}

	if len(raws) == 0 {
		p.Type = table.CellEmpty
		return p
	}

	p.NumericRatio = float64(len(numbers)) / float64(len(raws))
	p.DistinctRatio = float64(len(distinct)) / float64(len(raws))

	p.Type = table.CellText
	if p.NumericRatio >= numericTypeRatio {
		p.Type = table.CellNumber
	}

	if len(numbers) > 0 {
		p.HasRange = true
		p.Min = floats.Min(numbers)
		p.Max = floats.Max(numbers)
		p.Mean, p.StdDev = meanStdDev(numbers, math.Max(math.Abs(p.Min), math.Abs(p.Max)))
	}

	p.Samples = samples(raws, sampleSize)
	return p
}

// meanStdDev computes the statistics on values divided by their largest
// magnitude so sums near the float64 limit cannot overflow. A result that is
// still not representable is reported as zero.
func meanStdDev(numbers []float64, magnitude float64) (mean, std float64) {
	if len(numbers) == 1 {
		return numbers[0], 0
	}
	scale := 1.0
	if magnitude > 1 {
		scale = magnitude
		scaled := make([]float64, len(numbers))
		for i, v := range numbers {
			scaled[i] = v / scale
		}
		numbers = scaled
	}
	mean, std = stat.MeanStdDev(numbers, nil)
	mean, std = finite(mean*scale), finite(std*scale)
	return mean, std
}

func finite(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// samples picks up to n distinct values at evenly spaced positions, then
// fills from the start of the column if spacing landed on repeats.
func samples(values []string, n int) []string {
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	take := func(v string) {
		if len(out) >= n {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	if len(values) <= n || n == 1 {
		for _, v := range values {
			take(v)
		}
		return out
	}

	last := len(values) - 1
	for i := 0; i < n; i++ {
		take(values[i*last/(n-1)])
	}
	for _, v := range values {
		take(v)
	}
	return out
}

// NumericCapable reports whether a column can carry coordinates.
func NumericCapable(p ColumnProfile, threshold float64) bool {
	return p.NumericRatio >= threshold
}

// ByName indexes profiles by column name.
func ByName(profiles []ColumnProfile) map[string]ColumnProfile {
	m := make(map[string]ColumnProfile, len(profiles))
	for _, p := range profiles {
		m[p.Name] = p
	}
	return m
}
