package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okets/folder-mcp-core/internal/folder"
)

func TestStateMachine_HappyPath(t *testing.T) {
	m := NewStateMachine()
	assert.Equal(t, folder.StatusPending, m.Current())

	require.NoError(t, m.TransitionTo(folder.StatusScanning))
	require.NoError(t, m.TransitionTo(folder.StatusReady))
	require.NoError(t, m.TransitionTo(folder.StatusIndexing))
	require.NoError(t, m.TransitionTo(folder.StatusActive))
	require.NoError(t, m.TransitionTo(folder.StatusScanning))
	require.NoError(t, m.TransitionTo(folder.StatusActive))
}

func TestStateMachine_NoChangesSkipsReady(t *testing.T) {
	m := NewStateMachine()
	require.NoError(t, m.TransitionTo(folder.StatusScanning))
	require.NoError(t, m.TransitionTo(folder.StatusActive))
}

func TestStateMachine_IllegalTransitionFails(t *testing.T) {
	m := NewStateMachine()
	err := m.TransitionTo(folder.StatusIndexing)
	assert.Error(t, err)
	assert.Equal(t, folder.StatusPending, m.Current())
}

func TestStateMachine_ErrorIsTerminalUntilReset(t *testing.T) {
	m := NewStateMachine()
	require.NoError(t, m.TransitionTo(folder.StatusScanning))
	require.NoError(t, m.TransitionTo(folder.StatusError))
	assert.False(t, m.CanTransitionTo(folder.StatusScanning))

	m.Reset()
	assert.Equal(t, folder.StatusPending, m.Current())
	assert.True(t, m.CanTransitionTo(folder.StatusScanning))
}

func TestStateMachine_CanTransitionToIsSideEffectFree(t *testing.T) {
	m := NewStateMachine()
	assert.True(t, m.CanTransitionTo(folder.StatusScanning))
	assert.Equal(t, folder.StatusPending, m.Current())
}
