// Package codec reads and writes the human-editable YAML forms of drafts
// and decisions used by the command line.
package codec

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
)

// draftDocument is the YAML shape of a draft. Editing the role of a column
// and passing the file back as a decision overrides that column.
type draftDocument struct {
	RunID          string        `yaml:"run_id"`
	Source         string        `yaml:"source"`
	Rows           int           `yaml:"rows"`
	InferenceError string        `yaml:"inference_error,omitempty"`
	Columns        []columnEntry `yaml:"columns"`
	Warnings       []string      `yaml:"warnings,omitempty"`
}

type columnEntry struct {
	Column       string   `yaml:"column"`
	Role         string   `yaml:"role"`
	Confidence   float64  `yaml:"confidence"`
	Source       string   `yaml:"source,omitempty"`
	Rationale    string   `yaml:"rationale,omitempty"`
	Type         string   `yaml:"type,omitempty"`
	NumericRatio float64  `yaml:"numeric_ratio"`
	Samples      []string `yaml:"samples,omitempty,flow"`
}

// decisionDocument accepts either an overrides map, an edited draft, or both.
type decisionDocument struct {
	RunID     string            `yaml:"run_id"`
	Overrides map[string]string `yaml:"overrides"`
	Columns   []columnEntry     `yaml:"columns"`
}

// WriteDraft writes d as an editable YAML document.
func WriteDraft(w io.Writer, d *pipeline.Draft) error {
	doc := draftDocument{
		RunID:          d.RunID.String(),
		Source:         d.Source,
		Rows:           d.Rows,
		InferenceError: d.InferenceError,
	}

	byName := make(map[string]int, len(d.Profiles))
	for i, p := range d.Profiles {
		byName[p.Name] = i
	}

	for _, a := range d.Mapping.Assignments {
		e := columnEntry{
			Column:     a.Column,
			Role:       string(a.Role),
			Confidence: a.Confidence,
			Source:     string(a.Source),
			Rationale:  a.Rationale,
		}
		if i, ok := byName[a.Column]; ok {
			p := d.Profiles[i]
			e.Type = p.Type.String()
			e.NumericRatio = p.NumericRatio
			e.Samples = p.Samples
		}
		doc.Columns = append(doc.Columns, e)
	}
	for _, warn := range d.Mapping.Warnings {
		doc.Warnings = append(doc.Warnings, warn.String())
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode draft YAML: %w", err)
	}
	return enc.Close()
}

// ReadDecision parses a decision for d. Roles listed under columns count
// as overrides only where they differ from the draft; entries under
// overrides always apply and win over columns.
func ReadDecision(r io.Reader, d *pipeline.Draft) (pipeline.Decision, error) {
	var doc decisionDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return pipeline.Decision{}, fmt.Errorf("failed to parse decision YAML: %w", err)
	}

	if doc.RunID != "" && doc.RunID != d.RunID.String() {
		return pipeline.Decision{}, fmt.Errorf("decision is for run %s, not %s", doc.RunID, d.RunID)
	}

	overrides := make(map[string]mapping.Role)
	for _, e := range doc.Columns {
		current, ok := d.Mapping.Role(e.Column)
		if !ok {
			return pipeline.Decision{}, fmt.Errorf("decision names unknown column %q", e.Column)
		}
		role, err := mapping.ParseRole(e.Role)
		if err != nil {
			return pipeline.Decision{}, fmt.Errorf("column %q: %w", e.Column, err)
		}
		if role != current {
			overrides[e.Column] = role
		}
	}

	columns := make([]string, 0, len(doc.Overrides))
	for c := range doc.Overrides {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	for _, c := range columns {
		role, err := mapping.ParseRole(doc.Overrides[c])
		if err != nil {
			return pipeline.Decision{}, fmt.Errorf("override %q: %w", c, err)
		}
		overrides[c] = role
	}

	if len(overrides) == 0 {
		return pipeline.Decision{}, nil
	}
	return pipeline.Decision{Overrides: overrides}, nil
}
