// Package mapping turns role candidates into a draft column mapping, applies
// deterministic sanity rules, and freezes the result once a human confirms it.
package mapping

import (
	"fmt"
	"strings"
)

// Role is the semantic meaning of a column in the drawing.
type Role string

const (
	RoleX      Role = "X"
	RoleY      Role = "Y"
	RoleZ      Role = "Z"
	RoleLabel  Role = "LABEL"
	RoleLayer  Role = "LAYER"
	RoleIgnore Role = "IGNORE"
)

// Roles is the closed role vocabulary in prompt order.
var Roles = []Role{RoleX, RoleY, RoleZ, RoleLabel, RoleLayer, RoleIgnore}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (want one of %s)", s, roleList())
	}
	return r, nil
}

// Valid reports whether r is in the vocabulary.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// Unique reports whether at most one column may hold r.
func (r Role) Unique() bool {
	return r != RoleIgnore && r.Valid()
}

// Coordinate reports whether r needs numeric values.
func (r Role) Coordinate() bool {
	return r == RoleX || r == RoleY || r == RoleZ
}

func roleList() string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// RoleCandidate is one proposed role for a column. Scored is false when the
// confidence is a default rather than a value the engine supplied.
type RoleCandidate struct {
	Column     string  `json:"column" yaml:"column"`
	Role       Role    `json:"role" yaml:"role"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Rationale  string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Scored     bool    `json:"scored" yaml:"scored"`
}
