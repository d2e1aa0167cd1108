package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_MissingDatabase(t *testing.T) {
	_, _, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trace.db")
	// A failing run still records its transitions.
	_, _, runErr := execute(t, "run", "--db", db, "testdata/failing/wrong.yaml")
	require.Error(t, runErr)
	assert.Equal(t, ExitFailure, GetExitCode(runErr))

	out, _, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "cli-wrong")
}

func TestTrace_UnknownToken(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trace.db")
	_, _, err := execute(t, "run", "--db", db, "testdata/scenarios/baseline.yaml")
	require.NoError(t, err)

	_, _, err = execute(t, "trace", "--db", db, "not-a-token")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_RequiresDBFlag(t *testing.T) {
	_, _, err := execute(t, "trace")
	require.Error(t, err)
}
