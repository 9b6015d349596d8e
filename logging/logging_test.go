package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugLevelSpec(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "test.log")

	// Single level applies to every subsystem.
	b, err := NewLogBackend(logFile, "debug")
	require.NoError(t, err)
	defer b.Close()

	// Same subsystem yields the same logger.
	l1 := b.Logger("CLNT")
	l2 := b.Logger("CLNT")
	assert.Equal(t, l1, l2)
}

func TestDebugLevelPairs(t *testing.T) {
	b, err := NewLogBackend("", "CLNT=debug,WTCH=trace")
	require.NoError(t, err)
	defer b.Close()
	// Subsystem matching is case-insensitive on the spec side.
	b2, err := NewLogBackend("", "clnt=debug")
	require.NoError(t, err)
	defer b2.Close()
}

func TestDebugLevelBadSpec(t *testing.T) {
	_, err := NewLogBackend("", "verbose")
	assert.Error(t, err)
	_, err = NewLogBackend("", "CLNT=nope")
	assert.Error(t, err)
}
