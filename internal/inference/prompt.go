package inference

import (
	"encoding/json"
	"fmt"
	"strings"
)

const promptHeader = `You label the columns of a CSV file so it can be drawn as a DXF file.

Each column gets exactly one role:
- X: horizontal coordinate (longitude, easting, length)
- Y: vertical coordinate (latitude, northing, width)
- Z: elevation or height
- LABEL: text written next to each point (name, id, reference)
- LAYER: grouping value used as the drawing layer (category, type, batch)
- IGNORE: anything else

Rules:
- X and Y must be used exactly once. Z, LABEL and LAYER at most once.
- X, Y and Z columns must be numeric.
- Use the exact column names given below.
- Give a confidence between 0 and 1 and a short rationale.
- Reply with JSON only, no explanation.

Columns (with statistics and sample values):
`

const promptFooter = `
Reply with this JSON shape:
{"columns":[{"name":"<column>","role":"<%s>","confidence":0.0,"rationale":"<why>"}]}
`

// Prompt renders req as the text sent to a language model.
func Prompt(req Request) (string, error) {
	cols, err := json.MarshalIndent(req.Columns, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode columns: %w", err)
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.Write(cols)
	b.WriteString("\n")
	fmt.Fprintf(&b, promptFooter, strings.Join(req.Roles, "|"))
	return b.String(), nil
}
