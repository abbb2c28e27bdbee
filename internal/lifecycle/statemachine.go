// Package lifecycle implements the folder status state machine and the
// manager that drives one folder through scanning, change detection,
// indexing and back to active (spec.md §4.5, §4.6).
package lifecycle

import (
	"fmt"

	"github.com/okets/folder-mcp-core/internal/amerrors"
	"github.com/okets/folder-mcp-core/internal/folder"
)

// legalTransitions encodes the FSM edges from spec.md §4.5.
var legalTransitions = map[folder.Status]map[folder.Status]bool{
	folder.StatusPending: {
		folder.StatusScanning: true,
		folder.StatusError:    true,
	},
	folder.StatusScanning: {
		folder.StatusReady:  true,
		folder.StatusActive: true,
		folder.StatusError:  true,
	},
	folder.StatusReady: {
		folder.StatusIndexing: true,
		folder.StatusError:    true,
	},
	folder.StatusIndexing: {
		folder.StatusActive: true,
		folder.StatusError:  true,
	},
	folder.StatusActive: {
		folder.StatusScanning: true,
		folder.StatusError:    true,
	},
	folder.StatusError: {},
}

// StateMachine is LifecycleStateMachine: a tagged variant with a central
// transition function that validates the edge before mutating state.
type StateMachine struct {
	current folder.Status
}

// NewStateMachine starts in pending.
func NewStateMachine() *StateMachine {
	return &StateMachine{current: folder.StatusPending}
}

// Current returns the machine's current state.
func (m *StateMachine) Current() folder.Status {
	return m.current
}

// CanTransitionTo is side-effect-free (spec.md §4.5).
func (m *StateMachine) CanTransitionTo(target folder.Status) bool {
	edges, ok := legalTransitions[m.current]
	if !ok {
		return false
	}
	return edges[target]
}

// TransitionTo mutates state, failing on an illegal transition: a
// programmer error, never retried (spec.md §4.5, §7).
func (m *StateMachine) TransitionTo(target folder.Status) error {
	if !m.CanTransitionTo(target) {
		return amerrors.New(amerrors.ErrCodeIllegalTransition,
			fmt.Sprintf("illegal transition %s -> %s", m.current, target), nil).
			WithDetail("from", string(m.current)).
			WithDetail("to", string(target))
	}
	m.current = target
	return nil
}

// Reset returns the machine to pending, clearing derived state. This is
// always legal, even from error.
func (m *StateMachine) Reset() {
	m.current = folder.StatusPending
}
