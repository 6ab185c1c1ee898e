package translate

import "fmt"

// Compile error codes (E200-E299)
const (
	ErrUnknownRootField  = "E201" // root field names no entity operation
	ErrUnknownField      = "E202" // field, where key or input key not on the type
	ErrUnknownOperator   = "E203" // where key suffix not valid for the field
	ErrNotFilterable     = "E204" // attribute is not filterable
	ErrNotSortable       = "E205" // attribute is not sortable
	ErrBadArgument       = "E206" // argument value has the wrong shape
	ErrAmbiguousWrite    = "E207" // two input fields write one stored property
	ErrUnsupported       = "E208" // valid request the translator does not lower
	ErrUnknownIndex      = "E209" // fulltext index not declared
	ErrBadCursor         = "E210" // after cursor does not decode
	ErrUnknownTypeCond   = "E211" // type condition is not a concrete member
	ErrNotAggregatable   = "E212" // attribute is not aggregatable
	ErrClaimTypeMismatch = "E213" // rule compares a claim that can never match
	ErrInvalidMutation   = "E214" // malformed mutation input
	ErrBuild             = "E299" // clause tree could not be serialized
)

// CompileError is a compile-time error. No statement is produced when one is
// returned.
type CompileError struct {
	Code    string
	Type    string // owning entity, "" when not applicable
	Field   string // offending field or key
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.Type != "" && e.Field != "":
		return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Type, e.Field, e.Message)
	case e.Type != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
	case e.Field != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

func compileErr(code, typ, field, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Type: typ, Field: field, Message: fmt.Sprintf(format, args...)}
}
