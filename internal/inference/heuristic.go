package inference

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/JonMunkholm/csvdxf/internal/mapping"
)

// keywords are matched against the words of a column name, most specific
// role first. The French names come from the part lists the tool was first
// used with (LONGUEUR/LARGEUR drawn as X/Y, repère as label, paquet as layer).
var keywords = []struct {
	role  mapping.Role
	words []string
}{
	{mapping.RoleX, []string{"x", "lon", "lng", "long", "longitude", "east", "easting", "longueur"}},
	{mapping.RoleY, []string{"y", "lat", "latitude", "north", "northing", "largeur", "larg"}},
	{mapping.RoleZ, []string{"z", "alt", "altitude", "elev", "elevation", "height", "depth", "hauteur"}},
	{mapping.RoleLayer, []string{"layer", "calque", "group", "category", "class", "type", "paquet", "lot", "kit"}},
	{mapping.RoleLabel, []string{"name", "label", "nom", "id", "title", "designation", "désignation", "piece", "pièce", "pièces", "blaze", "repère", "repere", "ref", "reference", "référence"}},
}

const (
	keywordConfidence  = 0.8
	positionConfidence = 0.25
	profileConfidence  = 0.35
)

// Heuristic is an offline Capability that guesses roles from column names
// and profile statistics. It never fails.
type Heuristic struct {
	NumericThreshold float64
}

func (h Heuristic) threshold() float64 {
	if h.NumericThreshold <= 0 {
		return mapping.DefaultNumericThreshold
	}
	return h.NumericThreshold
}

func (h Heuristic) Complete(ctx context.Context, req Request) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	n := len(req.Columns)
	roles := make([]mapping.Role, n)
	scores := make([]float64, n)
	why := make([]string, n)
	taken := make(map[mapping.Role]bool)

	numeric := func(i int) bool { return req.Columns[i].NumericRatio >= h.threshold() }

	// Names first.
	for i, c := range req.Columns {
		role, word, ok := matchName(c.Name)
		if !ok || taken[role] || (role.Coordinate() && !numeric(i)) {
			continue
		}
		roles[i], scores[i], why[i] = role, keywordConfidence, "name contains "+strconv.Quote(word)
		taken[role] = true
	}

	// Unnamed axes go to the leftmost free numeric columns.
	for _, role := range []mapping.Role{mapping.RoleX, mapping.RoleY} {
		if taken[role] {
			continue
		}
		for i := range req.Columns {
			if roles[i] == "" && numeric(i) {
				roles[i], scores[i], why[i] = role, positionConfidence, "leftmost unassigned numeric column"
				taken[role] = true
				break
			}
		}
	}

	// A mostly-unique text column reads as a label, a repetitive one as a layer.
	for i, c := range req.Columns {
		if roles[i] != "" || c.Type != "text" {
			continue
		}
		switch {
		case !taken[mapping.RoleLabel] && c.DistinctRatio >= 0.9:
			roles[i], scores[i], why[i] = mapping.RoleLabel, profileConfidence, "text column with mostly unique values"
			taken[mapping.RoleLabel] = true
		case !taken[mapping.RoleLayer] && c.DistinctRatio <= 0.5:
			roles[i], scores[i], why[i] = mapping.RoleLayer, profileConfidence, "text column with repeated values"
			taken[mapping.RoleLayer] = true
		}
	}

	reply := Reply{Columns: make([]ColumnReply, n)}
	for i, c := range req.Columns {
		if roles[i] == "" {
			roles[i], scores[i], why[i] = mapping.RoleIgnore, 0.5, "no matching name or pattern"
		}
		reply.Columns[i] = ColumnReply{
			Name:       c.Name,
			Role:       string(roles[i]),
			Confidence: Score(scores[i]),
			Rationale:  why[i],
		}
	}
	return reply, nil
}

// matchName returns the first role whose keyword equals a word of name.
func matchName(name string) (mapping.Role, string, bool) {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, k := range keywords {
		for _, kw := range k.words {
			for _, w := range words {
				if w == kw {
					return k.role, kw, true
				}
			}
		}
	}
	return "", "", false
}
