package poseidon

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func elem(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

func TestRegistryTagsDisjoint(t *testing.T) {
	seen := make(map[Tag]bool)
	for _, tag := range Registry() {
		if seen[tag] {
			t.Fatalf("tag %d assigned to two contexts", tag)
		}
		seen[tag] = true
	}
}

func TestHashDeterministic(t *testing.T) {
	a := Hash(TagNode, elem(42), elem(123))
	b := Hash(TagNode, elem(42), elem(123))
	if !a.Equal(&b) {
		t.Fatal("same inputs produced different digests")
	}
}

func TestDomainSeparation(t *testing.T) {
	x, y := elem(42), elem(123)
	digests := make(map[string]Tag)
	for _, tag := range Registry() {
		h := Hash(tag, x, y)
		key := h.String()
		if prev, ok := digests[key]; ok {
			t.Fatalf("tags %d and %d collide on identical inputs", prev, tag)
		}
		digests[key] = tag
	}
}

func TestHashInputSensitivity(t *testing.T) {
	base := Hash(TagNode, elem(1), elem(2))

	changed := Hash(TagNode, elem(2), elem(1))
	if base.Equal(&changed) {
		t.Fatal("operand order does not affect digest")
	}

	longer := Hash(TagNode, elem(1), elem(2), elem(0))
	if base.Equal(&longer) {
		t.Fatal("appending a zero operand does not affect digest")
	}
}

func TestRootCommitmentBindsDepth(t *testing.T) {
	root := elem(7)
	a := RootCommitment(root, 3)
	b := RootCommitment(root, 4)
	if a.Equal(&b) {
		t.Fatal("root commitment ignores depth")
	}
	c := RootCommitment(root, 3)
	if !a.Equal(&c) {
		t.Fatal("root commitment not deterministic")
	}
}

func TestHashNonZero(t *testing.T) {
	// The zero chain input must still map away from zero.
	h := Hash(TagStateUpdate, fr.Element{}, fr.Element{})
	if h.IsZero() {
		t.Fatal("tagged hash of zeros is zero")
	}
}
