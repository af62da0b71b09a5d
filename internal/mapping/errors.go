package mapping

import (
	"errors"
	"fmt"
)

// ErrConsumed is returned when a confirmed mapping is built a second time.
var ErrConsumed = errors.New("confirmed mapping already consumed")

// Rules reported by NoViableMappingError.
const (
	RuleViability  = "viability"
	RuleRequired   = "required"
	RuleUniqueness = "uniqueness"
	RuleOverride   = "override"
)

// NoViableMappingError reports that no mapping with both X and Y can be
// produced from the table or from the user's decision.
type NoViableMappingError struct {
	Rule   string
	Column string
	Reason string
}

func (e *NoViableMappingError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("no viable mapping (%s): column %q: %s", e.Rule, e.Column, e.Reason)
	}
	return fmt.Sprintf("no viable mapping (%s): %s", e.Rule, e.Reason)
}
