package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitBatchesListenersOnly(t *testing.T) {
	m := newAppState(context.Background(), nil, slog.Disabled)
	cmd := m.Init()
	require.NotNil(t, cmd)

	// The batch holds the two channel listeners and the message wait;
	// terminal setup (alt screen) belongs to the program options.
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	require.True(t, ok)
	assert.Len(t, batch, 3)
}

func TestEditLine(t *testing.T) {
	runes := func(s string) tea.KeyMsg {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	backspace := tea.KeyMsg{Type: tea.KeyBackspace}

	buf := editLine("", runes("1"), 4)
	buf = editLine(buf, runes("2"), 4)
	assert.Equal(t, "12", buf)

	// Max length caps further input.
	buf = editLine("1234", runes("5"), 4)
	assert.Equal(t, "1234", buf)

	buf = editLine("1234", backspace, 4)
	assert.Equal(t, "123", buf)
	assert.Equal(t, "", editLine("", backspace, 4))

	// Non-typing keys leave the buffer alone.
	assert.Equal(t, "12", editLine("12", tea.KeyMsg{Type: tea.KeyUp}, 4))
}
