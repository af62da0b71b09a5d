package mapping

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Source records where an assignment came from.
type Source string

const (
	SourceInferred Source = "inferred"
	SourceFallback Source = "fallback"
	SourceManual   Source = "manual"
	SourceOverride Source = "override"
)

// Warning codes.
const (
	WarnLowNumericRatio  = "low_numeric_ratio"
	WarnDuplicateRole    = "duplicate_role"
	WarnTieBreak         = "tie_break"
	WarnFallbackY        = "fallback_y"
	WarnMissingRole      = "missing_role"
	WarnNeedsConfirm     = "needs_confirmation"
	WarnUnknownCandidate = "unknown_candidate"
)

// Assignment is the role held by one column.
type Assignment struct {
	Column     string  `json:"column" yaml:"column"`
	Role       Role    `json:"role" yaml:"role"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Rationale  string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Source     Source  `json:"source" yaml:"source"`
}

// Warning is a validator finding the user should see before confirming.
type Warning struct {
	Code    string `json:"code" yaml:"code"`
	Column  string `json:"column,omitempty" yaml:"column,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	if w.Column != "" {
		return fmt.Sprintf("[%s] %s: %s", w.Code, w.Column, w.Message)
	}
	return fmt.Sprintf("[%s] %s", w.Code, w.Message)
}

// Draft is an unconfirmed mapping. It has one assignment per column in
// header order and is only changed through Confirm.
type Draft struct {
	Assignments []Assignment `json:"assignments" yaml:"assignments"`
	Warnings    []Warning    `json:"warnings" yaml:"warnings"`
}

// Column returns the column holding role r.
func (d *Draft) Column(r Role) (string, bool) {
	for _, a := range d.Assignments {
		if a.Role == r {
			return a.Column, true
		}
	}
	return "", false
}

// Role returns the role assigned to column.
func (d *Draft) Role(column string) (Role, bool) {
	for _, a := range d.Assignments {
		if a.Column == column {
			return a.Role, true
		}
	}
	return "", false
}

// Complete reports whether the draft could be confirmed unchanged.
func (d *Draft) Complete() bool {
	_, x := d.Column(RoleX)
	_, y := d.Column(RoleY)
	return x && y
}

// Confirm applies the user's overrides and freezes the result. Overriding a
// column to a unique role displaces the role from any column the user did
// not override; two overrides claiming the same role are rejected. The
// draft itself is left untouched.
func (d *Draft) Confirm(overrides map[string]Role) (*Confirmed, error) {
	assignments := make([]Assignment, len(d.Assignments))
	copy(assignments, d.Assignments)

	pos := make(map[string]int, len(assignments))
	for i, a := range assignments {
		pos[a.Column] = i
	}

	columns := make([]string, 0, len(overrides))
	for c := range overrides {
		columns = append(columns, c)
	}
	sort.Slice(columns, func(i, j int) bool {
		pi, oki := pos[columns[i]]
		pj, okj := pos[columns[j]]
		if oki != okj {
			return !oki
		}
		if !oki {
			return columns[i] < columns[j]
		}
		return pi < pj
	})

	overridden := make(map[string]bool, len(overrides))
	for _, column := range columns {
		role := overrides[column]
		i, ok := pos[column]
		if !ok {
			return nil, &NoViableMappingError{Rule: RuleOverride, Column: column, Reason: "no such column"}
		}
		if !role.Valid() {
			return nil, &NoViableMappingError{Rule: RuleOverride, Column: column, Reason: fmt.Sprintf("unknown role %q", role)}
		}
		assignments[i] = Assignment{
			Column:     column,
			Role:       role,
			Confidence: 1,
			Rationale:  "set by user",
			Source:     SourceOverride,
		}
		overridden[column] = true
	}

	for _, column := range columns {
		role := overrides[column]
		if !role.Unique() {
			continue
		}
		for i, a := range assignments {
			if a.Role == role && !overridden[a.Column] {
				assignments[i].Role = RoleIgnore
				assignments[i].Rationale = fmt.Sprintf("%s reassigned to %q by user", role, column)
			}
		}
	}

	return freeze(assignments)
}

// Accept confirms the draft unchanged.
func (d *Draft) Accept() (*Confirmed, error) {
	return d.Confirm(nil)
}

func freeze(assignments []Assignment) (*Confirmed, error) {
	holders := make(map[Role]string, len(Roles))
	for _, a := range assignments {
		if !a.Role.Unique() {
			continue
		}
		if prev, dup := holders[a.Role]; dup {
			return nil, &NoViableMappingError{
				Rule:   RuleUniqueness,
				Column: a.Column,
				Reason: fmt.Sprintf("role %s is already held by %q", a.Role, prev),
			}
		}
		holders[a.Role] = a.Column
	}

	for _, r := range []Role{RoleX, RoleY} {
		if _, ok := holders[r]; !ok {
			return nil, &NoViableMappingError{Rule: RuleRequired, Reason: fmt.Sprintf("no column is assigned %s", r)}
		}
	}

	return &Confirmed{assignments: assignments, holders: holders}, nil
}

// Confirmed is a frozen mapping with X and Y assigned exactly once. It can
// be consumed by a single build.
type Confirmed struct {
	assignments []Assignment
	holders     map[Role]string
	consumed    atomic.Bool
}

// Column returns the column holding role r.
func (c *Confirmed) Column(r Role) (string, bool) {
	col, ok := c.holders[r]
	return col, ok
}

// Assignments returns a copy of the frozen assignments in column order.
func (c *Confirmed) Assignments() []Assignment {
	out := make([]Assignment, len(c.assignments))
	copy(out, c.assignments)
	return out
}

// Consume marks the mapping used. Only the first call succeeds.
func (c *Confirmed) Consume() error {
	if !c.consumed.CompareAndSwap(false, true) {
		return ErrConsumed
	}
	return nil
}
