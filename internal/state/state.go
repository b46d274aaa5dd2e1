////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package state holds the participant state machine. It defines which
// protocol phases exist for a participant and which transitions between
// them are allowable within the NewMachine() function.
package state

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/secretsanta/internal/phase"
)

/*///State Machine Object/////////////////////////////////////////////////////*/

// core state machine object
type Machine struct {
	// holds the phase
	*phase.Type
	// mux to ensure proper access to the phase
	*sync.RWMutex
	// number of onion layers peeled while in EncryptedKeyCirculated
	rounds *uint32
	// holds valid phase transitions
	stateMap [][]bool
	// name used in logs
	owner string
}

// NewTestMachine builds a machine starting at the given phase. Can only be
// used in tests.
func NewTestMachine(owner string, start phase.Type, t interface{}) Machine {
	switch v := t.(type) {
	case *testing.T:
	case *testing.M:
		break
	default:
		panic(fmt.Sprintf("Cannot use outside of test environment; %+v", v))
	}

	m := NewMachine(owner)
	*m.Type = start

	return m
}

// NewMachine builds the machine and sets valid transitions
func NewMachine(owner string) Machine {
	p := phase.Init
	rounds := uint32(0)

	// builds the object
	M := Machine{&p,
		&sync.RWMutex{},
		&rounds,
		make([][]bool, phase.NumPhases),
		owner,
	}

	// finish populating the stateMap
	for i := 0; i < int(phase.NumPhases); i++ {
		M.stateMap[i] = make([]bool, phase.NumPhases)
	}

	// add phase transitions
	M.addStateTransition(phase.Init, phase.EphemeralKeyPublished, phase.Error)
	M.addStateTransition(phase.EphemeralKeyPublished,
		phase.EncryptedKeyCirculated, phase.Error)
	M.addStateTransition(phase.EncryptedKeyCirculated, phase.RosterSaved,
		phase.Error)
	M.addStateTransition(phase.RosterSaved, phase.AssignmentRevealed,
		phase.Error)
	M.addStateTransition(phase.AssignmentRevealed, phase.Init, phase.Error)
	M.addStateTransition(phase.Error, phase.Init)

	return M
}

// adds a phase transition to the machine
func (m Machine) addStateTransition(from phase.Type, to ...phase.Type) {
	for _, t := range to {
		m.stateMap[from][t] = true
	}
}

/*///Public Functions/////////////////////////////////////////////////////////*/

// Update moves to the next phase if the transition is valid from the current
// phase. Entering EncryptedKeyCirculated resets the round counter.
func (m Machine) Update(next phase.Type) error {
	m.Lock()
	defer m.Unlock()

	// Errors tend to cascade, so we should ignore attempts to transition
	// into error from error
	if next == phase.Error && *m.Type == phase.Error {
		return nil
	}

	// check if the requested phase change is valid
	if !m.stateMap[*m.Type][next] {
		return errors.Errorf("not a valid phase change from %s to %s",
			*m.Type, next)
	}

	jww.DEBUG.Printf("[%s] Updating from %s to %s", m.owner, *m.Type, next)
	*m.Type = next
	if next == phase.EncryptedKeyCirculated {
		atomic.StoreUint32(m.rounds, 0)
	}
	return nil
}

// Require returns an error unless the machine is in the expected phase
func (m Machine) Require(expected phase.Type) error {
	m.RLock()
	defer m.RUnlock()

	if *m.Type != expected {
		return errors.Errorf("in phase %s, expected %s", *m.Type, expected)
	}
	return nil
}

// CompleteRound records one peeled onion layer and returns the new count
func (m Machine) CompleteRound() (uint32, error) {
	if err := m.Require(phase.EncryptedKeyCirculated); err != nil {
		return 0, err
	}
	return atomic.AddUint32(m.rounds, 1), nil
}

// Rounds returns the number of onion layers peeled in this run
func (m Machine) Rounds() uint32 {
	return atomic.LoadUint32(m.rounds)
}

// Reset returns the machine to Init from any phase
func (m Machine) Reset() {
	m.Lock()
	defer m.Unlock()
	*m.Type = phase.Init
	atomic.StoreUint32(m.rounds, 0)
}

// Get gets the current phase under a read lock
func (m Machine) Get() phase.Type {
	m.RLock()
	defer m.RUnlock()
	return *m.Type
}
