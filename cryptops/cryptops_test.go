////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cryptops

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"gitlab.com/xx_network/crypto/csprng"
)

// Tests that keys survive PEM export and import.
func TestExportImportPublicKey(t *testing.T) {
	key, err := GenerateKeyPair(csprng.NewSystemRNG(), testModulusBits)
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %+v", err)
	}

	pem := ExportPublicKey(key.GetPublic())
	pub, err := ImportPublicKey(pem, testModulusBits)
	if err != nil {
		t.Fatalf("ImportPublicKey() failed: %+v", err)
	}

	if pub.PublicKey.N.Cmp(key.PrivateKey.N) != 0 ||
		pub.PublicKey.E != key.PrivateKey.E {
		t.Errorf("Imported key does not match the generated key")
	}

	if !bytes.Equal(pem, ExportPublicKey(pub)) {
		t.Errorf("Re-exported key PEM differs from the original")
	}
}

// Tests that garbage and keys of the wrong size are rejected.
func TestImportPublicKey_Invalid(t *testing.T) {
	if _, err := ImportPublicKey([]byte("not a key"), testModulusBits); err == nil {
		t.Errorf("Expected an error when importing garbage")
	}

	key, err := GenerateKeyPair(csprng.NewSystemRNG(), testModulusBits)
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %+v", err)
	}
	if _, err = ImportPublicKey(ExportPublicKey(key.GetPublic()), 2048); err == nil {
		t.Errorf("Expected an error when importing a key of the wrong size")
	}
}

// Tests that the digest depends on content and order.
func TestRosterDigest(t *testing.T) {
	a := [][]byte{[]byte("ab"), []byte("c")}
	b := [][]byte{[]byte("a"), []byte("bc")}
	c := [][]byte{[]byte("c"), []byte("ab")}

	if !bytes.Equal(RosterDigest(a), RosterDigest([][]byte{[]byte("ab"), []byte("c")})) {
		t.Errorf("Equal rosters produced different digests")
	}
	if bytes.Equal(RosterDigest(a), RosterDigest(b)) {
		t.Errorf("Differently split rosters produced the same digest")
	}
	if bytes.Equal(RosterDigest(a), RosterDigest(c)) {
		t.Errorf("Differently ordered rosters produced the same digest")
	}
	if len(RosterDigest(nil)) != 32 {
		t.Errorf("Unexpected digest length %d", len(RosterDigest(nil)))
	}
}

// Tests that every sample is a valid derangement.
func TestDerangementSampler_Sample(t *testing.T) {
	ds := NewDerangementSampler(0)
	for n := 2; n < 40; n++ {
		for trial := 0; trial < 25; trial++ {
			d, err := ds.Sample(n)
			if err != nil {
				t.Fatalf("Sample(%d) failed: %+v", n, err)
			}
			if len(d) != n {
				t.Fatalf("Sample(%d) returned %d elements", n, len(d))
			}
			if err = d.Validate(); err != nil {
				t.Errorf("Sample(%d) is not a derangement: %v (%+v)", n, d, err)
			}
		}
	}
}

// Tests that n = 2 always produces the single swap.
func TestDerangementSampler_Sample_Two(t *testing.T) {
	ds := NewDerangementSampler(0)
	for i := 0; i < 20; i++ {
		d, err := ds.Sample(2)
		if err != nil {
			t.Fatalf("Sample(2) failed: %+v", err)
		}
		if d[0] != 1 || d[1] != 0 {
			t.Errorf("Unexpected derangement of two: %v", d)
		}
	}
}

// Tests that both derangements of three elements are drawn with roughly
// equal probability.
func TestDerangementSampler_Sample_Uniform(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ds := NewTestDerangementSampler(0, func(perm *[]uint32) error {
		p := *perm
		rng.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
		return nil
	}, t)

	const trials = 6000
	counts := make(map[[3]uint32]int)
	for i := 0; i < trials; i++ {
		d, err := ds.Sample(3)
		if err != nil {
			t.Fatalf("Sample(3) failed: %+v", err)
		}
		counts[[3]uint32{d[0], d[1], d[2]}]++
	}

	if len(counts) != 2 {
		t.Fatalf("Expected exactly 2 derangements of 3, found %v", counts)
	}
	for d, count := range counts {
		if count < trials/2-300 || count > trials/2+300 {
			t.Errorf("Derangement %v drawn %d of %d times", d, count, trials)
		}
	}
}

// Tests that sizes below two are rejected.
func TestDerangementSampler_Sample_InvalidSize(t *testing.T) {
	ds := NewDerangementSampler(0)
	for _, n := range []int{-1, 0, 1} {
		_, err := ds.Sample(n)
		if !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Sample(%d) expected ErrInvalidSize, received: %+v", n, err)
		}
	}
}

// Tests that a shuffle which never moves anything exhausts the budget.
func TestDerangementSampler_Sample_Timeout(t *testing.T) {
	calls := 0
	ds := NewTestDerangementSampler(17, func(*[]uint32) error {
		calls++
		return nil
	}, t)

	_, err := ds.Sample(5)
	if !errors.Is(err, ErrDerangementTimeout) {
		t.Errorf("Expected ErrDerangementTimeout, received: %+v", err)
	}
	if calls != 17 {
		t.Errorf("Unexpected number of draws.\n\texpected: %d\n\treceived: %d",
			17, calls)
	}
}

// Tests that a failing shuffle aborts sampling with its error.
func TestDerangementSampler_Sample_ShuffleError(t *testing.T) {
	rngErr := errors.New("entropy exhausted")
	ds := NewTestDerangementSampler(0, func(*[]uint32) error {
		return rngErr
	}, t)

	d, err := ds.Sample(4)
	if !errors.Is(err, rngErr) {
		t.Errorf("Unexpected error\n\texpected: %v\n\treceived: %v", rngErr,
			err)
	}
	if d != nil {
		t.Errorf("Derangement returned alongside an error: %v", d)
	}
}

func TestNewTestDerangementSampler_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected a panic outside of a test")
		}
	}()
	NewTestDerangementSampler(1, nil, struct{}{})
}

func TestDerangement_Validate(t *testing.T) {
	valid := []Derangement{{1, 0}, {1, 2, 0}, {3, 2, 1, 0}}
	for _, d := range valid {
		if err := d.Validate(); err != nil {
			t.Errorf("%v reported invalid: %+v", d, err)
		}
	}

	invalid := []Derangement{nil, {0}, {0, 1}, {1, 1}, {1, 2, 3}, {2, 0, 1, 3}}
	for _, d := range invalid {
		if err := d.Validate(); err == nil {
			t.Errorf("%v reported valid", d)
		}
	}
}

func TestDerangement_Inverse(t *testing.T) {
	d := Derangement{2, 3, 1, 0}
	inv := d.Inverse()
	for i, target := range d {
		if inv[target] != uint32(i) {
			t.Errorf("Inverse does not map %d back to %d: %v", target, i, inv)
		}
	}
}
