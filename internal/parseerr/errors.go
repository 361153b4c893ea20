// Package parseerr defines the structured error taxonomy surfaced by the
// blueprint parser and the intrinsic function engine.
//
// Errors are numbered so callers can react to specific failures without
// string matching. Every error raised while processing an element is
// annotated with that element exactly once, at the outermost processing
// step, so each surfaced error can be traced back to the document node
// that caused it.
package parseerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the parser's failure families.
type Kind int

const (
	// KindFormat marks a structural mismatch against a schema: wrong
	// primitive type, missing required key, unrecognized key in strict mode.
	KindFormat Kind = iota
	// KindLogic marks a numbered, semantically meaningful failure such as an
	// ambiguous mapping, a missing plugin or a circular dependency.
	KindLogic
	// KindSchemaAPI marks a malformed schema descriptor, i.e. a defect in
	// the consuming element type definitions rather than in the document.
	KindSchemaAPI
	// KindFunctionEvaluation marks an intrinsic expression that could not be
	// resolved.
	KindFunctionEvaluation
	// KindUnknownInput marks a get_input referencing a name absent from the
	// input table.
	KindUnknownInput
)

// Error codes shared with the rest of the toolchain. The set is not
// exhaustive; codes are stable once published.
const (
	CodeFormat                    = 1
	CodeWorkflowNoPlugin          = 21
	CodeIllegalExecutor           = 28
	CodeInvalidDSLVersion         = 29
	CodeValueDoesNotMatchType     = 50
	CodeReservedScriptPath        = 60
	CodeMissingScriptPlugin       = 61
	CodeAmbiguousOperationMapping = 91
	CodeCycle                     = 100
	CodeUndefinedProperty         = 106
	CodeMissingRequiredProperty   = 107
	CodeMultipleContainedIn       = 112
)

// ErrIllegalState reports an internal-consistency failure that well-formed
// schemas should make unreachable.
var ErrIllegalState = errors.New("illegal state")

// Error is the structured error produced by the parser core.
type Error struct {
	Kind    Kind
	Code    int
	Message string

	// Element is the document node responsible for the failure. It is set by
	// the topological processor if the raise site did not attach one.
	Element any

	// CircularDependency carries the full cycle chain for CodeCycle errors,
	// first name repeated at the end.
	CircularDependency []string

	// FunctionName and Path identify the intrinsic expression for
	// KindFunctionEvaluation errors.
	FunctionName string
	Path         string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindFunctionEvaluation:
		if e.FunctionName != "" {
			return fmt.Sprintf("%s: %s", e.FunctionName, e.Message)
		}
	case KindSchemaAPI:
		return fmt.Sprintf("invalid schema API usage: %s", e.Message)
	}
	return e.Message
}

// Format creates a format error with the given code.
func Format(code int, format string, args ...any) *Error {
	return &Error{Kind: KindFormat, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Logic creates a numbered logic error.
func Logic(code int, format string, args ...any) *Error {
	return &Error{Kind: KindLogic, Code: code, Message: fmt.Sprintf(format, args...)}
}

// SchemaAPI creates an error reporting a malformed schema descriptor.
func SchemaAPI(format string, args ...any) *Error {
	return &Error{Kind: KindSchemaAPI, Code: CodeFormat, Message: fmt.Sprintf(format, args...)}
}

// FunctionEvaluation creates an error for an intrinsic expression that could
// not be resolved.
func FunctionEvaluation(name string, format string, args ...any) *Error {
	return &Error{Kind: KindFunctionEvaluation, FunctionName: name, Message: fmt.Sprintf(format, args...)}
}

// UnknownInput creates an error for a get_input referencing an undeclared
// input name.
func UnknownInput(format string, args ...any) *Error {
	return &Error{Kind: KindUnknownInput, Message: fmt.Sprintf(format, args...)}
}

// As unwraps err into a *Error if possible.
func As(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}
