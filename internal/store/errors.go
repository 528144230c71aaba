package store

import "errors"

// ErrMalformedName indicates a .sql file does not match the
// <14-digit timestamp>_<slug>.sql naming pattern.
var ErrMalformedName = errors.New("malformed migration filename")

// ErrDuplicateVersion indicates two migration files share the same version.
var ErrDuplicateVersion = errors.New("duplicate migration version")

// ErrExplicitTransaction indicates a migration file carries its own
// BEGIN/COMMIT; the runner owns the transaction boundary.
var ErrExplicitTransaction = errors.New("migration contains explicit transaction control")
