package filter

import "fmt"

// Parse failure reasons.
const (
	reasonEmpty         = "empty filter"
	reasonMissingOpen   = "missing '('"
	reasonMissingClose  = "missing ')'"
	reasonInvalidOp     = "invalid operator"
	reasonMissingAttr   = "missing attribute name"
	reasonInvalidValue  = "invalid value"
	reasonMissingValue  = "missing value"
	reasonTrailing      = "extraneous trailing characters"
	reasonEndedAbruptly = "filter ended abruptly"
)

// SyntaxError reports a malformed filter string. Pos is the rune offset where parsing stopped.
type SyntaxError struct {
	Filter string
	Pos    int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid filter: %s at position %d: %q", e.Reason, e.Pos, e.Offending())
}

// Offending returns the part of the filter starting at Pos.
func (e *SyntaxError) Offending() string {
	runes := []rune(e.Filter)
	if e.Pos >= len(runes) {
		return ""
	}
	return string(runes[e.Pos:])
}
