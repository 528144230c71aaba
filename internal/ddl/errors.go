package ddl

import "errors"

// ErrInvalidIdentifier indicates a table, column, index, or constraint
// name contains characters outside [a-zA-Z0-9_].
var ErrInvalidIdentifier = errors.New("invalid SQL identifier")

// ErrStatementMismatch indicates the creation statement does not create
// the object named in the helper call.
var ErrStatementMismatch = errors.New("creation statement does not match named object")

// ErrEmptyDefinition indicates a required SQL fragment was empty.
var ErrEmptyDefinition = errors.New("empty SQL definition")
