package parser

import "errors"

// ErrNotSingleCreateTable indicates SQL did not contain exactly one CREATE TABLE statement.
var ErrNotSingleCreateTable = errors.New("not a single CREATE TABLE statement")
