package runner

import "errors"

// ErrExecutionFailed indicates a migration body failed to execute.
// The failing migration's transaction is rolled back and the run halts.
var ErrExecutionFailed = errors.New("migration execution failed")
