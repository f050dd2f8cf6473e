package command

import (
	"errors"
	"fmt"
)

// Argument errors.
var (
	// ErrInvalidArgCount indicates an empty argument vector.
	ErrInvalidArgCount = errors.New("invalid count of arguments")

	// ErrInvalidArgVector indicates a nil argument vector.
	ErrInvalidArgVector = errors.New("invalid vector of arguments")

	// ErrEmptyName indicates an empty command name.
	ErrEmptyName = errors.New("empty command name")

	// ErrInvalidIndex indicates a parameter index out of range.
	ErrInvalidIndex = errors.New("invalid command parameter index")

	// ErrUnexpectedOption indicates an option outside of the allowed set.
	ErrUnexpectedOption = errors.New("unexpected option")

	// ErrIDOffset indicates an identifier offset out of range.
	ErrIDOffset = errors.New("cannot generate command ID: offset is out of range")
)

// Option contract violations.
var (
	ErrOptionMandatory        = errors.New("is mandatory")
	ErrOptionRequiresValue    = errors.New("requires a value")
	ErrOptionRequiresNoValue  = errors.New("requires no value")
	ErrOptionRequiresNonEmpty = errors.New("requires a non-empty value")
)

// ArgError reports an invalid element of the argument vector.
type ArgError struct {
	// Index is the position in the argument vector
	Index int
	// Err is the underlying error
	Err error
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("%v at argv[%d]", e.Err, e.Index)
}

func (e *ArgError) Unwrap() error {
	return e.Err
}

// IndexError reports an out of range parameter index.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%v %d (%d parameters)", ErrInvalidIndex, e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	return ErrInvalidIndex
}

// OptionError reports a violated option requirement. The message reads
// "option --<name> <requirement>".
type OptionError struct {
	// Name is the option name without the leading dashes
	Name string
	// Err is one of the option sentinel errors or ErrUnexpectedOption
	Err error
}

func (e *OptionError) Error() string {
	if errors.Is(e.Err, ErrUnexpectedOption) {
		return fmt.Sprintf("%v --%s", e.Err, e.Name)
	}
	return fmt.Sprintf("option --%s %v", e.Name, e.Err)
}

func (e *OptionError) Unwrap() error {
	return e.Err
}
