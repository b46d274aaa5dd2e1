////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cryptops

// shuffle.go contains the Fisher-Yates shuffle used for every random
// ordering in the protocol

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

// ShuffleUniform permutes perm in place so that every ordering is equally
// likely. Each swap index is drawn from rng by rejection, never by reducing
// a random value modulo the range.
func ShuffleUniform(rng io.Reader, perm []uint32) error {
	for i := len(perm) - 1; i > 0; i-- {
		j, err := rand.Int(rng, big.NewInt(int64(i+1)))
		if err != nil {
			return errors.Wrapf(err, "failed to draw swap index for "+
				"position %d", i)
		}
		k := j.Int64()
		perm[i], perm[k] = perm[k], perm[i]
	}
	return nil
}
