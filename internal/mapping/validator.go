package mapping

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/csvdxf/internal/profile"
)

const (
	DefaultNumericThreshold = 0.9
	DefaultConfirmThreshold = 0.5
)

// Validator applies the draft rules. The zero value uses the defaults.
type Validator struct {
	NumericThreshold float64 // share of numeric cells an X/Y/Z column needs
	ConfirmThreshold float64 // confidence below which a role needs confirmation
}

func (v Validator) numeric() float64 {
	if v.NumericThreshold <= 0 {
		return DefaultNumericThreshold
	}
	return v.NumericThreshold
}

func (v Validator) confirm() float64 {
	if v.ConfirmThreshold <= 0 {
		return DefaultConfirmThreshold
	}
	return v.ConfirmThreshold
}

// Validate builds a draft with one assignment per profile. With no
// candidates the draft is fully manual: every column starts as IGNORE apart
// from the Y fallback.
func (v Validator) Validate(candidates []RoleCandidate, profiles []profile.ColumnProfile) (*Draft, error) {
	threshold := v.numeric()

	capable := 0
	for _, p := range profiles {
		if profile.NumericCapable(p, threshold) {
			capable++
		}
	}
	if capable < 2 {
		return nil, &NoViableMappingError{
			Rule:   RuleViability,
			Reason: fmt.Sprintf("%d column(s) are at least %.0f%% numeric, need 2", capable, threshold*100),
		}
	}

	d := &Draft{Warnings: []Warning{}}
	byColumn := make(map[string]RoleCandidate, len(candidates))
	for _, c := range candidates {
		if _, dup := byColumn[c.Column]; dup {
			continue
		}
		byColumn[c.Column] = c
	}

	known := profile.ByName(profiles)
	for _, c := range candidates {
		if _, ok := known[c.Column]; !ok {
			d.warn(WarnUnknownCandidate, c.Column, "candidate names a column that is not in the table")
		}
	}

	// Each column gets exactly one assignment.
	for _, p := range profiles {
		c, ok := byColumn[p.Name]
		if !ok || !c.Role.Valid() {
			d.Assignments = append(d.Assignments, Assignment{Column: p.Name, Role: RoleIgnore, Source: SourceManual})
			continue
		}
		d.Assignments = append(d.Assignments, Assignment{
			Column:     p.Name,
			Role:       c.Role,
			Confidence: c.Confidence,
			Rationale:  c.Rationale,
			Source:     SourceInferred,
		})
	}

	// Coordinates need numeric columns.
	for i, a := range d.Assignments {
		if !a.Role.Coordinate() {
			continue
		}
		p := profiles[i]
		if profile.NumericCapable(p, threshold) {
			continue
		}
		d.Assignments[i].Role = RoleIgnore
		d.warn(WarnLowNumericRatio, a.Column, fmt.Sprintf(
			"proposed as %s but only %.0f%% of values are numeric (need %.0f%%); set to IGNORE",
			a.Role, p.NumericRatio*100, threshold*100))
	}

	d.enforceUnique()
	d.fallbackY(profiles, threshold)

	for _, r := range []Role{RoleX, RoleY} {
		if _, ok := d.Column(r); !ok {
			d.warn(WarnMissingRole, "", fmt.Sprintf("no column is assigned %s; choose one before confirming", r))
		}
	}

	for _, a := range d.Assignments {
		if a.Role != RoleIgnore && a.Confidence < v.confirm() {
			d.warn(WarnNeedsConfirm, a.Column, fmt.Sprintf(
				"%s assigned with confidence %.2f; please confirm", a.Role, a.Confidence))
		}
	}

	return d, nil
}

// enforceUnique keeps the highest-confidence holder of each unique role,
// preferring the leftmost column on ties.
func (d *Draft) enforceUnique() {
	for _, r := range Roles {
		if !r.Unique() {
			continue
		}

		keep := -1
		tied := false
		for i, a := range d.Assignments {
			if a.Role != r {
				continue
			}
			switch {
			case keep < 0 || a.Confidence > d.Assignments[keep].Confidence:
				keep = i
				tied = false
			case a.Confidence == d.Assignments[keep].Confidence:
				tied = true
			}
		}
		if keep < 0 {
			continue
		}

		winner := d.Assignments[keep].Column
		if tied {
			d.warn(WarnTieBreak, winner, fmt.Sprintf(
				"several columns proposed as %s with equal confidence; kept the leftmost", r))
		}
		for i, a := range d.Assignments {
			if i == keep || a.Role != r {
				continue
			}
			d.Assignments[i].Role = RoleIgnore
			d.warn(WarnDuplicateRole, a.Column, fmt.Sprintf(
				"also proposed as %s (confidence %.2f); %q kept the role", r, a.Confidence, winner))
		}
	}
}

// fallbackY assigns Y to the most numeric unassigned column when the
// candidates left Y empty.
func (d *Draft) fallbackY(profiles []profile.ColumnProfile, threshold float64) {
	if _, ok := d.Column(RoleY); ok {
		return
	}

	ranked := make([]int, 0, len(profiles))
	for i, p := range profiles {
		if profile.NumericCapable(p, threshold) {
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return profiles[ranked[a]].NumericRatio > profiles[ranked[b]].NumericRatio
	})

	for _, i := range ranked {
		a := d.Assignments[i]
		if a.Role != RoleIgnore {
			continue
		}
		d.Assignments[i] = Assignment{
			Column:    a.Column,
			Role:      RoleY,
			Rationale: "most numeric remaining column",
			Source:    SourceFallback,
		}
		d.warn(WarnFallbackY, a.Column, "Y was not proposed; this column was chosen automatically and must be confirmed")
		return
	}
}

func (d *Draft) warn(code, column, msg string) {
	d.Warnings = append(d.Warnings, Warning{Code: code, Column: column, Message: msg})
}
