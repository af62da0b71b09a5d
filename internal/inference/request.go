// Package inference asks a role-inference capability (a local language model
// or an offline heuristic) to propose a role for every column of a table.
package inference

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/profile"
)

// ColumnDescriptor is what the capability is told about one column.
type ColumnDescriptor struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	NumericRatio  float64  `json:"numeric_ratio"`
	DistinctRatio float64  `json:"distinct_ratio"`
	EmptyRatio    float64  `json:"empty_ratio"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	Samples       []string `json:"samples"`
}

// Request is the single structured question sent per run.
type Request struct {
	Columns []ColumnDescriptor `json:"columns"`
	Roles   []string           `json:"roles"`
}

// NewRequest describes profiles in header order.
func NewRequest(profiles []profile.ColumnProfile) Request {
	req := Request{
		Columns: make([]ColumnDescriptor, len(profiles)),
		Roles:   make([]string, len(mapping.Roles)),
	}
	for i, r := range mapping.Roles {
		req.Roles[i] = string(r)
	}
	for i, p := range profiles {
		d := ColumnDescriptor{
			Name:          p.Name,
			Type:          p.Type.String(),
			NumericRatio:  p.NumericRatio,
			DistinctRatio: p.DistinctRatio,
			EmptyRatio:    p.EmptyRatio,
			Samples:       append([]string{}, p.Samples...),
		}
		if p.HasRange {
			lo, hi := p.Min, p.Max
			d.Min, d.Max = &lo, &hi
		}
		req.Columns[i] = d
	}
	return req
}

// Hash is a stable SHA-256 of the request's canonical JSON encoding.
func (r Request) Hash() string {
	b, err := json.Marshal(r)
	if err != nil {
		// Only plain strings and finite floats are encoded.
		panic("inference: marshal request: " + err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ColumnReply is the capability's answer for one column. A nil Confidence
// means the capability did not score its answer.
type ColumnReply struct {
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	Confidence *float64 `json:"confidence,omitempty"`
	Rationale  string   `json:"rationale,omitempty"`
}

// Reply is the capability's structured answer.
type Reply struct {
	Columns []ColumnReply `json:"columns"`
}

// Score is a helper for building replies.
func Score(v float64) *float64 {
	return &v
}
