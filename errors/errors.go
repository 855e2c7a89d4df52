package errors

import (
	"fmt"

	"github.com/pontaoski/talc/types"
)

// ResolutionError reports an identifier with no reachable declaration.
type ResolutionError struct {
	Kind     string
	Name     string
	Location types.Span
}

func (e ResolutionError) Error() string {
	return fmt.Sprintf("no %s \"%s\" in scope. %s", e.Kind, e.Name, e.Location)
}

// RedefinitionError reports a second definition of a name in one scope.
type RedefinitionError struct {
	Name     string
	Location types.Span
	Previous types.Span
}

func (e RedefinitionError) Error() string {
	return fmt.Sprintf("redefinition of \"%s\". %s (previously defined at %s)", e.Name, e.Location, e.Previous)
}

// TypeDeclarationError reports a declared type name that does not exist.
type TypeDeclarationError struct {
	What     string
	TypeName string
	Location types.Span
}

func (e TypeDeclarationError) Error() string {
	return fmt.Sprintf("declared type of %s, %s, doesn't exist. %s", e.What, e.TypeName, e.Location)
}

type TypeMismatch struct {
	What     string
	Got      string
	Expected string
	Location types.Span
}

func (e TypeMismatch) Error() string {
	return fmt.Sprintf("%s has type %s, expected %s. %s", e.What, e.Got, e.Expected, e.Location)
}

// EvaluationError is raised when the simplifier meets an operator it has no
// compile-time semantics for. It should be unreachable.
type EvaluationError struct {
	Op       types.Op
	Location types.Span
}

func (e EvaluationError) Error() string {
	return fmt.Sprintf("ICE: don't know how to compute %s at compile time. %s", e.Op.Symbol(), e.Location)
}

// ArgumentError is a numeric domain error such as the factorial of a
// negative number. The numeric package has no locations, so Location is
// filled in by whoever catches it.
type ArgumentError struct {
	Msg      string
	Location types.Span
}

func (e ArgumentError) Error() string {
	if e.Location.IsZero() {
		return e.Msg
	}
	return fmt.Sprintf("%s. %s", e.Msg, e.Location)
}

func NewArgumentError(msg string, fmts ...interface{}) ArgumentError {
	return ArgumentError{Msg: fmt.Sprintf(msg, fmts...)}
}

// CodegenError reports a tree shape the generator can't lower.
type CodegenError struct {
	Msg      string
	Location types.Span
}

func (e CodegenError) Error() string {
	return fmt.Sprintf("ICE: %s. %s", e.Msg, e.Location)
}

type RuntimeError struct {
	Msg      string
	Function string
	Location types.Span
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("%s (in %s). %s", e.Msg, e.Function, e.Location)
}

// DecodeError reports a malformed tree document.
type DecodeError struct {
	Msg      string
	Location types.Span
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("bad tree document: %s. %s", e.Msg, e.Location)
}
