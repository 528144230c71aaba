package runner_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idempotentsql/migrate/internal/runner"
	"github.com/idempotentsql/migrate/internal/store"
)

func TestNew_defaultOptions(t *testing.T) {
	t.Parallel()

	r := runner.New(nil, nil)

	require.NotNil(t, r)
}

func TestNew_withOptions(t *testing.T) {
	t.Parallel()

	var received []runner.ProgressEvent
	cb := func(e runner.ProgressEvent) { received = append(received, e) }

	r := runner.New(nil, nil,
		runner.WithLockTimeout(10*time.Second),
		runner.WithStatementTimeout(30*time.Second),
		runner.WithDryRun(true),
		runner.WithProgressCallback(cb),
	)

	require.NotNil(t, r)
}

func TestProgressEvent_fields(t *testing.T) {
	t.Parallel()

	m := &store.Migration{Version: "20250101000000", Name: "create_users"}
	testErr := errors.New("test error")

	event := runner.ProgressEvent{
		Migration: m,
		Status:    runner.StatusFailed,
		Duration:  5 * time.Second,
		Error:     testErr,
	}

	assert.Equal(t, m, event.Migration)
	assert.Equal(t, runner.StatusFailed, event.Status)
	assert.Equal(t, 5*time.Second, event.Duration)
	assert.ErrorIs(t, event.Error, testErr)
}

func TestStatusConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "starting", runner.StatusStarting)
	assert.Equal(t, "applied", runner.StatusApplied)
	assert.Equal(t, "failed", runner.StatusFailed)
	assert.Equal(t, "skipped", runner.StatusSkipped)
	assert.Equal(t, "planned", runner.StatusPlanned)
}

func TestErrExecutionFailed_message(t *testing.T) {
	t.Parallel()

	assert.EqualError(t, runner.ErrExecutionFailed, "migration execution failed")
}
