package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/profile"
	"github.com/JonMunkholm/csvdxf/internal/table"
)

// Draft is a run suspended at human confirmation. It is plain data so it
// can be stored and resumed later, possibly by another process.
type Draft struct {
	RunID          uuid.UUID               `json:"run_id" yaml:"run_id"`
	Source         string                  `json:"source" yaml:"source"`
	Digest         string                  `json:"digest" yaml:"digest"`
	Input          table.Options           `json:"input" yaml:"input"`
	Columns        []string                `json:"columns" yaml:"columns"`
	Rows           int                     `json:"rows" yaml:"rows"`
	Profiles       []profile.ColumnProfile `json:"profiles" yaml:"profiles"`
	Candidates     []mapping.RoleCandidate `json:"candidates" yaml:"candidates"`
	Mapping        *mapping.Draft          `json:"mapping" yaml:"mapping"`
	InferenceError string                  `json:"inference_error,omitempty" yaml:"inference_error,omitempty"`
	Inferences     int                     `json:"inferences" yaml:"inferences"`
	CreatedAt      time.Time               `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at" yaml:"updated_at"`
}

// Manual reports whether the draft has no inferred candidates.
func (d *Draft) Manual() bool {
	return len(d.Candidates) == 0
}

// Decision is the human answer to a draft. No overrides accepts the draft
// as proposed.
type Decision struct {
	Overrides map[string]mapping.Role `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// ParseOverrides reads "column=ROLE" pairs.
func ParseOverrides(pairs []string) (map[string]mapping.Role, error) {
	out := make(map[string]mapping.Role, len(pairs))
	for _, p := range pairs {
		col, role, ok := cut(p)
		if !ok || col == "" {
			return nil, fmt.Errorf("override %q: want column=ROLE", p)
		}
		r, err := mapping.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", p, err)
		}
		out[col] = r
	}
	return out, nil
}

// cut splits on the last '=' so column names may contain '='.
func cut(s string) (string, string, bool) {
	i := strings.LastIndex(s, "=")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:i]), s[i+1:], true
}

// SourceChangedError reports that the file behind a draft changed between
// analysis and confirmation.
type SourceChangedError struct {
	Path string
	Want string
	Got  string
}

func (e *SourceChangedError) Error() string {
	return fmt.Sprintf("source %s changed since analysis (digest %.12s, now %.12s)", e.Path, e.Want, e.Got)
}
