////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cryptops

// derangement.go contains the rejection sampler for fixed point free
// permutations

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/crypto/fastRNG"
	"gitlab.com/xx_network/crypto/csprng"
)

// DefaultDerangementAttempts bounds the number of permutations drawn before
// sampling gives up. The expected number of draws tends to e.
const DefaultDerangementAttempts = 10000

var (
	// ErrInvalidSize is returned for sets too small to have a derangement
	ErrInvalidSize = errors.New("a derangement needs at least two elements")

	// ErrDerangementTimeout is returned when every draw had a fixed point
	ErrDerangementTimeout = errors.New(
		"derangement sampling exceeded its attempt budget")
)

// Derangement is a permutation of 0..n-1 in which no index maps to itself.
// Participant i gives to participant Derangement[i].
type Derangement []uint32

// Validate checks that d is a permutation without fixed points
func (d Derangement) Validate() error {
	if len(d) < 2 {
		return errors.WithMessagef(ErrInvalidSize, "derangement has %d "+
			"elements", len(d))
	}

	seen := make([]bool, len(d))
	for i, target := range d {
		if int(target) >= len(d) {
			return errors.Errorf("index %d maps to %d, outside of [0, %d)",
				i, target, len(d))
		}
		if int(target) == i {
			return errors.Errorf("index %d maps to itself", i)
		}
		if seen[target] {
			return errors.Errorf("index %d is mapped to more than once",
				target)
		}
		seen[target] = true
	}
	return nil
}

// Inverse returns the permutation mapping every recipient to its giver
func (d Derangement) Inverse() Derangement {
	inv := make(Derangement, len(d))
	for i, target := range d {
		inv[target] = uint32(i)
	}
	return inv
}

// Shuffler permutes the slice in place, every ordering equally likely
type Shuffler func(perm *[]uint32) error

// DerangementSampler draws uniformly random derangements by rejection
type DerangementSampler struct {
	maxAttempts int
	shuffle     Shuffler
}

// NewDerangementSampler creates a sampler shuffling with ShuffleUniform on
// system CSPRNG backed streams. A non positive maxAttempts uses
// DefaultDerangementAttempts.
func NewDerangementSampler(maxAttempts int) *DerangementSampler {
	if maxAttempts <= 0 {
		maxAttempts = DefaultDerangementAttempts
	}

	rngStreamGen := fastRNG.NewStreamGenerator(1, 1, csprng.NewSystemRNG)
	return &DerangementSampler{
		maxAttempts: maxAttempts,
		shuffle: func(perm *[]uint32) error {
			stream := rngStreamGen.GetStream()
			defer stream.Close()
			return ShuffleUniform(stream, *perm)
		},
	}
}

// NewTestDerangementSampler creates a sampler with a caller supplied
// shuffle. Can only be used in tests.
func NewTestDerangementSampler(maxAttempts int, shuffler Shuffler,
	t interface{}) *DerangementSampler {
	switch v := t.(type) {
	case *testing.T:
	case *testing.M:
		break
	default:
		panic(fmt.Sprintf("Cannot use outside of test environment; %+v", v))
	}

	ds := NewDerangementSampler(maxAttempts)
	ds.shuffle = shuffler
	return ds
}

// Sample draws permutations of 0..n-1 until one has no fixed point
func (ds *DerangementSampler) Sample(n int) (Derangement, error) {
	if n < 2 {
		return nil, errors.WithMessagef(ErrInvalidSize,
			"cannot sample a derangement of %d elements", n)
	}

	perm := make([]uint32, n)
	for attempt := 1; attempt <= ds.maxAttempts; attempt++ {
		for i := range perm {
			perm[i] = uint32(i)
		}
		if err := ds.shuffle(&perm); err != nil {
			return nil, errors.WithMessagef(err, "derangement attempt %d",
				attempt)
		}

		if hasFixedPoint(perm) {
			continue
		}

		jww.DEBUG.Printf("Sampled a derangement of %d elements in %d "+
			"attempts", n, attempt)
		d := make(Derangement, n)
		copy(d, perm)
		return d, nil
	}

	return nil, errors.WithMessagef(ErrDerangementTimeout,
		"no derangement of %d elements found in %d attempts", n,
		ds.maxAttempts)
}

func hasFixedPoint(perm []uint32) bool {
	for i, target := range perm {
		if uint32(i) == target {
			return true
		}
	}
	return false
}
