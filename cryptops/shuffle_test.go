////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cryptops

import (
	"bytes"
	"testing"

	"gitlab.com/xx_network/crypto/csprng"
)

// Critical values of the chi-square distribution at p = 0.001
const (
	chiSquareCritical7  = 24.32
	chiSquareCritical23 = 49.73
	chiSquareCritical43 = 77.42
)

// chiSquare returns the statistic of the observed counts against equal
// expected counts over the given number of categories
func chiSquare(counts []int, categories, total int) float64 {
	expected := float64(total) / float64(categories)
	stat := 0.0
	for _, observed := range counts {
		diff := float64(observed) - expected
		stat += diff * diff / expected
	}
	// categories never observed contribute their full expectation
	stat += float64(categories-len(counts)) * expected
	return stat
}

// Tests that all 24 orderings of four elements are equally likely.
func TestShuffleUniform_AllOrderings(t *testing.T) {
	const trials = 24000
	rng := csprng.NewSystemRNG()

	counts := make(map[[4]uint32]int)
	for i := 0; i < trials; i++ {
		perm := []uint32{0, 1, 2, 3}
		if err := ShuffleUniform(rng, perm); err != nil {
			t.Fatalf("ShuffleUniform() failed: %+v", err)
		}
		counts[[4]uint32{perm[0], perm[1], perm[2], perm[3]}]++
	}

	if len(counts) > 24 {
		t.Fatalf("Shuffle produced %d orderings of four elements",
			len(counts))
	}

	observed := make([]int, 0, len(counts))
	for _, count := range counts {
		observed = append(observed, count)
	}
	if stat := chiSquare(observed, 24, trials); stat > chiSquareCritical23 {
		t.Errorf("Orderings are not uniform: chi-square %.2f exceeds %.2f"+
			"\n\tcounts: %v", stat, chiSquareCritical23, counts)
	}
}

// Tests that a reader failure is returned and that trivial slices need no
// randomness.
func TestShuffleUniform_ReaderError(t *testing.T) {
	if err := ShuffleUniform(bytes.NewReader(nil), []uint32{3, 1, 2}); err == nil {
		t.Errorf("Expected an error from an empty reader")
	}

	for _, perm := range [][]uint32{nil, {7}} {
		if err := ShuffleUniform(bytes.NewReader(nil), perm); err != nil {
			t.Errorf("Shuffling %v read randomness: %+v", perm, err)
		}
	}
}

// Tests that all 44 derangements of five elements are drawn equally often
// by the production sampler.
func TestDerangementSampler_Sample_UniformFive(t *testing.T) {
	const trials = 22000
	ds := NewDerangementSampler(0)

	counts := make(map[[5]uint32]int)
	for i := 0; i < trials; i++ {
		d, err := ds.Sample(5)
		if err != nil {
			t.Fatalf("Sample(5) failed: %+v", err)
		}
		counts[[5]uint32{d[0], d[1], d[2], d[3], d[4]}]++
	}

	if len(counts) > 44 {
		t.Fatalf("Sampler produced %d derangements of five elements",
			len(counts))
	}

	observed := make([]int, 0, len(counts))
	for _, count := range counts {
		observed = append(observed, count)
	}
	if stat := chiSquare(observed, 44, trials); stat > chiSquareCritical43 {
		t.Errorf("Derangements are not uniform: chi-square %.2f exceeds "+
			"%.2f\n\tcounts: %v", stat, chiSquareCritical43, counts)
	}
}

// Tests that the first element of a derangement of nine is equally likely to
// map to each of the other eight.
func TestDerangementSampler_Sample_UniformNine(t *testing.T) {
	const trials = 80000
	ds := NewDerangementSampler(0)

	counts := make([]int, 9)
	for i := 0; i < trials; i++ {
		d, err := ds.Sample(9)
		if err != nil {
			t.Fatalf("Sample(9) failed: %+v", err)
		}
		counts[d[0]]++
	}

	if counts[0] != 0 {
		t.Fatalf("Element 0 mapped to itself %d times", counts[0])
	}
	if stat := chiSquare(counts[1:], 8, trials); stat > chiSquareCritical7 {
		t.Errorf("Targets of element 0 are not uniform: chi-square %.2f "+
			"exceeds %.2f\n\tcounts: %v", stat, chiSquareCritical7, counts[1:])
	}
}
