////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cryptops

// digest.go contains the roster digest participants compare to confirm they
// hold the same roster

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// RosterDigest hashes the ordered roster entries with BLAKE2b-256. Entries
// are length prefixed so that different splits of the same bytes differ.
func RosterDigest(roster [][]byte) []byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for keys longer than 64 bytes
		panic(err)
	}

	lenBuf := make([]byte, 4)
	for _, entry := range roster {
		binary.BigEndian.PutUint32(lenBuf, uint32(len(entry)))
		h.Write(lenBuf)
		h.Write(entry)
	}
	return h.Sum(nil)
}
