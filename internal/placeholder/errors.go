package placeholder

import "fmt"

// UnboundError reports a placeholder token that has no bound value.
type UnboundError struct {
	// Name is the placeholder name as written in the query text.
	Name string

	// Offset is the byte offset of the opening brace.
	Offset int
}

func (e *UnboundError) Error() string {
	return fmt.Sprintf("offset %d: no value bound for placeholder {%s}", e.Offset, e.Name)
}

// MalformedError reports a syntactically invalid placeholder token, such as
// an unterminated marker or an empty name.
type MalformedError struct {
	// Offset is the byte offset where the problem was detected.
	Offset int

	msg string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.msg)
}

// NewMalformedError creates a malformed-token error at the given offset.
func NewMalformedError(offset int, format string, args ...any) *MalformedError {
	return &MalformedError{Offset: offset, msg: fmt.Sprintf(format, args...)}
}
