package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Codes are grouped by category:
//
//	FILE001 - File too large            FILE005 - Empty input
//	FILE002 - Malformed table           FILE006 - Duplicate column
//	FILE003 - Encoding error            FILE007 - File not found
//	FILE004 - No file provided          FILE008 - Source changed since analysis
//
//	INF001  - Inference unavailable     INF002  - Inference reply malformed
//
//	MAP001  - Not enough numeric columns
//	MAP002  - X or Y missing
//	MAP003  - Role held by two columns
//	MAP004  - Override rejected
//
//	GEO001  - No drawable rows          GEO002  - Mapping already used
//	GEO003  - Mapped column missing
//
//	RUN001  - Run not found             RUN003  - Request timed out
//	RUN002  - Request cancelled         RUN004  - Invalid decision
//
//	RATE001 - Too many conversions
//
//	ERR000  - Unknown error; check the server log for the technical error.
//
// Typed errors are matched with errors.As / errors.Is first. Errors that
// only surface as text (for example from net/http) fall back to
// case-insensitive substring patterns. The first match wins.

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/JonMunkholm/csvdxf/internal/dxf"
	"github.com/JonMunkholm/csvdxf/internal/inference"
	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
	"github.com/JonMunkholm/csvdxf/internal/runstore"
	"github.com/JonMunkholm/csvdxf/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// Category returns the code prefix, e.g. "MAP" for MAP002.
func (m UserMessage) Category() string {
	return strings.TrimRight(m.Code, "0123456789")
}

type errorMatcher struct {
	match func(error) bool
	msg   UserMessage
}

func as[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func rule(r string) func(error) bool {
	return func(err error) bool {
		var nv *mapping.NoViableMappingError
		return errors.As(err, &nv) && nv.Rule == r
	}
}

// DecisionError reports a decision that could not be read.
type DecisionError struct {
	Err error
}

func (e *DecisionError) Error() string {
	return "invalid decision: " + e.Err.Error()
}

func (e *DecisionError) Unwrap() error {
	return e.Err
}

var typedMatchers = []errorMatcher{
	{
		match: func(err error) bool { return errors.Is(err, ErrTooManyRuns) },
		msg: UserMessage{
			Message: "The converter is busy with other files",
			Action:  "Please wait a moment and try again",
			Code:    "RATE001",
		},
	},
	{
		match: func(err error) bool { return errors.Is(err, runstore.ErrNotFound) },
		msg: UserMessage{
			Message: "Run not found",
			Action:  "The run may already be confirmed. Analyze the file again",
			Code:    "RUN001",
		},
	},
	{
		match: as[*DecisionError],
		msg: UserMessage{
			Message: "The decision could not be read",
			Action:  "Send overrides as column to role pairs, e.g. {\"overrides\":{\"lon\":\"X\"}}",
			Code:    "RUN004",
		},
	},
	{
		match: as[*pipeline.SourceChangedError],
		msg: UserMessage{
			Message: "The file changed after it was analyzed",
			Action:  "Analyze the file again before confirming",
			Code:    "FILE008",
		},
	},
	{
		match: as[*table.EmptyInputError],
		msg: UserMessage{
			Message: "The file has no data rows",
			Action:  "Upload a file with a header row and at least one data row",
			Code:    "FILE005",
		},
	},
	{
		match: as[*table.DuplicateColumnError],
		msg: UserMessage{
			Message: "Two columns have the same name",
			Action:  "Rename one of the duplicate header cells",
			Code:    "FILE006",
		},
	},
	{
		match: func(err error) bool {
			var m *table.MalformedInputError
			return errors.As(err, &m) && m.Offset >= 0
		},
		msg: UserMessage{
			Message: "The file contains bytes that are not valid in its encoding",
			Action:  "Save the file as UTF-8 or set the input encoding",
			Code:    "FILE003",
		},
	},
	{
		match: as[*table.MalformedInputError],
		msg: UserMessage{
			Message: "The file is not a well-formed table",
			Action:  "Check the delimiter and that every row has the same number of fields",
			Code:    "FILE002",
		},
	},
	{
		match: func(err error) bool { return errors.Is(err, fs.ErrNotExist) },
		msg: UserMessage{
			Message: "File not found",
			Action:  "Check the path and try again",
			Code:    "FILE007",
		},
	},
	{
		match: as[*inference.MalformedReplyError],
		msg: UserMessage{
			Message: "The inference model returned an unusable answer",
			Action:  "Retry inference or assign the column roles manually",
			Code:    "INF002",
		},
	},
	{
		match: as[*inference.UnavailableError],
		msg: UserMessage{
			Message: "Column roles could not be inferred",
			Action:  "Assign the X and Y columns manually or retry when the model server is up",
			Code:    "INF001",
		},
	},
	{
		match: rule(mapping.RuleViability),
		msg: UserMessage{
			Message: "The file needs at least two numeric columns",
			Action:  "Check the decimal separator and delimiter settings",
			Code:    "MAP001",
		},
	},
	{
		match: rule(mapping.RuleRequired),
		msg: UserMessage{
			Message: "No column is assigned to X or Y",
			Action:  "Assign a numeric column to each of X and Y",
			Code:    "MAP002",
		},
	},
	{
		match: rule(mapping.RuleUniqueness),
		msg: UserMessage{
			Message: "A role is assigned to more than one column",
			Action:  "Keep each of X, Y, Z, LABEL and LAYER on a single column",
			Code:    "MAP003",
		},
	},
	{
		match: rule(mapping.RuleOverride),
		msg: UserMessage{
			Message: "An override names an unknown column or role",
			Action:  "Use a column from the file and one of X, Y, Z, LABEL, LAYER, IGNORE",
			Code:    "MAP004",
		},
	},
	{
		match: func(err error) bool { return errors.Is(err, mapping.ErrConsumed) },
		msg: UserMessage{
			Message: "This mapping has already produced a drawing",
			Action:  "Analyze the file again to produce another drawing",
			Code:    "GEO002",
		},
	},
	{
		match: as[*dxf.MissingColumnError],
		msg: UserMessage{
			Message: "A mapped column is no longer in the file",
			Action:  "Analyze the file again and review the mapping",
			Code:    "GEO003",
		},
	},
	{
		match: as[*dxf.GeometryBuildError],
		msg: UserMessage{
			Message: "No row had usable X and Y values",
			Action:  "Check that the X and Y columns hold numbers",
			Code:    "GEO001",
		},
	},
}

// errorPattern maps a technical error substring (case-insensitive) to a
// user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or XLSX file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "RUN003",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, m := range typedMatchers {
		if m.match(err) {
			return m.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
