////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package phase

// type.go contains the phases a participant moves through in one protocol run

// Type the Name of a phase
type Type uint32

const (
	// Init holds the long-term key pair and nothing else
	Init Type = iota

	// EphemeralKeyPublished has broadcast a fresh anonymizing public key
	EphemeralKeyPublished

	// EncryptedKeyCirculated has broadcast its onion wrapped long-term key
	// and is peeling layers off every participant's onion, one per round
	EncryptedKeyCirculated

	// RosterSaved holds every long-term public key, unlinked from its owner
	RosterSaved

	// AssignmentRevealed has broadcast its identity to its recipient and
	// learnt who drew it
	AssignmentRevealed

	// Error a Fatal Error has occurred, the run cannot continue
	Error
)

// NumPhases in a run
const NumPhases = Error + 1

// Array used to get the phase Names for Printing
var typeStrings = [NumPhases]string{"Init", "EphemeralKeyPublished",
	"EncryptedKeyCirculated", "RosterSaved", "AssignmentRevealed", "Error"}

// Adheres to the Stringer interface to return the name of the phase type
func (p Type) String() string {
	if p >= NumPhases {
		return "Unknown"
	}
	return typeStrings[p]
}
