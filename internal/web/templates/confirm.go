// Package templates renders the HTML pages of the web UI.
//
// Pages are written in templ; run `templ generate` after editing a .templ
// file.
package templates

import "net/url"

// ConfirmColumn is one row of the confirmation table.
type ConfirmColumn struct {
	Name       string
	Role       string
	Confidence float64
	Source     string
	Rationale  string
	Type       string
	Samples    []string
}

// ConfirmPage is the data behind the confirmation page of a run.
type ConfirmPage struct {
	RunID          string
	Source         string
	Rows           int
	InferenceError string
	Columns        []ConfirmColumn
	Warnings       []string
	Roles          []string
}

// FieldPrefix prefixes the form field carrying a column's role.
const FieldPrefix = "role:"

func confirmAction(runID string) string {
	return "/api/runs/" + url.PathEscape(runID) + "/confirm"
}
