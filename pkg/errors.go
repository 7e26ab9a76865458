package reaction

import (
	"errors"
	"fmt"
)

var (
	// ErrMisconfiguredDependency is reported when a column reads something that
	// is not declared, or reads reconstructed data before its reorder rule.
	ErrMisconfiguredDependency = errors.New("misconfigured dependency")
	// ErrTypeMismatch is reported when a derivation does not fit the declared
	// types of its inputs or of the binding it redefines.
	ErrTypeMismatch = errors.New("type mismatch")
	ErrCycle        = errors.New("dependency cycle")
	ErrGraphBuilt   = errors.New("graph already built")
	ErrNotBuilt     = errors.New("graph not built")
)

// ConfigError is a configuration-time structural error. Processing must not
// start once one of these has been returned.
type ConfigError struct {
	Kind   error
	Column string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: column %q", e.Kind, e.Column)
	}
	return fmt.Sprintf("%v: column %q: %v", e.Kind, e.Column, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func misconfigured(column string, format string, args ...any) error {
	return &ConfigError{Kind: ErrMisconfiguredDependency, Column: column, Err: fmt.Errorf(format, args...)}
}

func mismatch(column string, format string, args ...any) error {
	return &ConfigError{Kind: ErrTypeMismatch, Column: column, Err: fmt.Errorf(format, args...)}
}

// EventError is a per-event data error. The event is discarded, the run goes on.
type EventError struct {
	Column string
	Err    error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event column %q: %v", e.Column, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error {
	return e.Err
}

// ErrWriteTable represents an error when appending rows to a table.
type ErrWriteTable struct {
	TableName string
	Err       error
}

func (e *ErrWriteTable) Error() string {
	return fmt.Sprintf("error writing table %q: %v", e.TableName, e.Err)
}

func (e *ErrWriteTable) Unwrap() error {
	return e.Err
}

var (
	ErrMissingInput  = errors.New("input column missing from record")
	ErrInputType     = errors.New("input column has the wrong type")
	ErrUnknownColumn = errors.New("unknown column")
)
