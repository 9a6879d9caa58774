package commit

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func elem(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

func TestNextStateChains(t *testing.T) {
	var s0 fr.Element // zero initial state
	s1 := NextState(s0, elem(11))
	s2 := NextState(s1, elem(22))

	if s1.Equal(&s2) {
		t.Fatal("state chain stalled")
	}
	// Order matters.
	alt := NextState(NextState(s0, elem(22)), elem(11))
	if s2.Equal(&alt) {
		t.Fatal("state chain insensitive to step order")
	}
}

func TestDeriveIndexRange(t *testing.T) {
	seed := elem(12345)
	for depth := uint(0); depth <= 20; depth += 4 {
		for step := uint64(0); step < 16; step++ {
			idx := DeriveIndex(seed, elem(step*7), step, depth)
			if depth == 0 && idx != 0 {
				t.Fatalf("depth 0 index = %d, want 0", idx)
			}
			if depth > 0 && idx >= 1<<depth {
				t.Fatalf("index %d out of range for depth %d", idx, depth)
			}
		}
	}
}

func TestDeriveIndexDeterministic(t *testing.T) {
	a := DeriveIndex(elem(5), elem(6), 7, 12)
	b := DeriveIndex(elem(5), elem(6), 7, 12)
	if a != b {
		t.Fatal("index derivation not deterministic")
	}
}

func TestDeriveIndexSensitivity(t *testing.T) {
	base := DeriveIndex(elem(5), elem(6), 7, 32)
	if DeriveIndex(elem(5), elem(6), 8, 32) == base &&
		DeriveIndex(elem(5), elem(7), 7, 32) == base &&
		DeriveIndex(elem(6), elem(6), 7, 32) == base {
		t.Fatal("index derivation ignores its inputs")
	}
}

// TestDeriveIndexUniform checks the statistical uniformity of derived
// indices over [0, 2^depth): with 4096 samples into 16 buckets, each bucket
// expects 256 hits; a bucket outside [128, 384] signals heavy bias.
func TestDeriveIndexUniform(t *testing.T) {
	const depth = 4
	const samples = 4096
	var buckets [1 << depth]int

	seed := elem(12345)
	state := elem(0)
	for step := uint64(0); step < samples; step++ {
		idx := DeriveIndex(seed, state, step, depth)
		buckets[idx]++
		// Evolve the state the way the protocol does.
		state = NextState(state, elem(step))
	}

	for b, n := range buckets {
		if n < 128 || n > 384 {
			t.Fatalf("bucket %d has %d hits, expected near %d", b, n, samples/(1<<depth))
		}
	}
}

func TestDeriveIndexMatchesLowBits(t *testing.T) {
	// The index must be exactly the low depth bits of the canonical LE
	// integer of the digest; the circuit depends on this truncation.
	seed, state := elem(9), elem(10)
	const step = 3
	full := DeriveIndex(seed, state, step, 63)
	for depth := uint(1); depth <= 16; depth++ {
		got := DeriveIndex(seed, state, step, depth)
		if got != full&((1<<depth)-1) {
			t.Fatalf("depth %d index %d is not a truncation of %d", depth, got, full)
		}
	}
}

func TestChallengeIDDeterministic(t *testing.T) {
	a := ChallengeID(1000, elem(1), "file", elem(2), 8, 5, "node_1")
	b := ChallengeID(1000, elem(1), "file", elem(2), 8, 5, "node_1")
	if a != b {
		t.Fatal("challenge id not deterministic")
	}
}

func TestChallengeIDSensitivity(t *testing.T) {
	base := ChallengeID(1000, elem(1), "file", elem(2), 8, 5, "node_1")
	variants := [][32]byte{
		ChallengeID(1001, elem(1), "file", elem(2), 8, 5, "node_1"),
		ChallengeID(1000, elem(9), "file", elem(2), 8, 5, "node_1"),
		ChallengeID(1000, elem(1), "file2", elem(2), 8, 5, "node_1"),
		ChallengeID(1000, elem(1), "file", elem(3), 8, 5, "node_1"),
		ChallengeID(1000, elem(1), "file", elem(2), 9, 5, "node_1"),
		ChallengeID(1000, elem(1), "file", elem(2), 8, 6, "node_1"),
		ChallengeID(1000, elem(1), "file", elem(2), 8, 5, "node_2"),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collided with base id", i)
		}
	}
}
