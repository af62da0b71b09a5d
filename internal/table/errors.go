package table

import (
	"fmt"
	"strings"
)

// MalformedInputError reports input that cannot be turned into a rectangular
// table: inconsistent row width, undecodable bytes, or an unusable header.
type MalformedInputError struct {
	Path   string
	Line   int   // 1-based line, 0 if unknown
	Offset int64 // byte offset for decoding failures, -1 if not applicable
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	var b strings.Builder
	b.WriteString("malformed input")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, ": byte %d", e.Offset)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// EmptyInputError reports a file with no header or no data rows.
type EmptyInputError struct {
	Path   string
	Reason string
}

func (e *EmptyInputError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("empty input %s: %s", e.Path, e.Reason)
	}
	return "empty input: " + e.Reason
}

// DuplicateColumnError reports two header cells with the same trimmed name.
// Positions are 1-based.
type DuplicateColumnError struct {
	Path   string
	Name   string
	First  int
	Second int
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column %q at positions %d and %d", e.Name, e.First, e.Second)
}

// withPath stamps path onto any loader error that lacks one.
func withPath(err error, path string) error {
	switch e := err.(type) {
	case *MalformedInputError:
		if e.Path == "" {
			e.Path = path
		}
	case *EmptyInputError:
		if e.Path == "" {
			e.Path = path
		}
	case *DuplicateColumnError:
		if e.Path == "" {
			e.Path = path
		}
	}
	return err
}

func malformedAt(line int, reason string, err error) *MalformedInputError {
	return &MalformedInputError{Line: line, Offset: -1, Reason: reason, Err: err}
}

func malformedOffset(offset int64, reason string) *MalformedInputError {
	return &MalformedInputError{Offset: offset, Reason: reason}
}
