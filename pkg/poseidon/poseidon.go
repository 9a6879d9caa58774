// Package poseidon provides the domain-separated Poseidon hashing used for
// every commitment in the PoR engine. One Poseidon2 permutation (BN254,
// width 2, 6 full / 50 partial rounds — the gnark-crypto defaults) backs a
// Merkle-Damgard chain with a zero IV; a tagged hash absorbs the domain tag
// first, then the operands.
//
// The in-circuit counterpart in pkg/circuit drives the identical permutation
// through gnark's std/hash Merkle-Damgard wrapper, so on- and off-circuit
// digests agree bit for bit.
package poseidon

import (
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// Poseidon2 parameters shared with the circuit. The values are the BN254
// defaults in gnark-crypto; changing them breaks every stored commitment.
const (
	Width         = 2
	FullRounds    = 6
	PartialRounds = 50
)

// Tag identifies a hashing context. No two contexts may share a value.
type Tag uint64

const (
	// TagLeaf marks symbol-to-leaf encoding contexts. Leaves embed the raw
	// symbol directly (the leaf IS the data), so this tag is reserved for
	// the registry rather than consumed by the tree builder.
	TagLeaf Tag = 1

	// TagNode separates internal Merkle node hashes.
	TagNode Tag = 2

	// TagIndexDerive separates challenge-index derivation.
	TagIndexDerive Tag = 6

	// TagStateUpdate separates the recursive state chain.
	TagStateUpdate Tag = 7

	// TagRC separates root commitments rc = H(TagRC, root, depth).
	TagRC Tag = 8

	// TagChallengeID separates challenge-ID derivation.
	TagChallengeID Tag = 10
)

// Registry lists every assigned tag; the domain-separation test checks the
// set for duplicates.
func Registry() []Tag {
	return []Tag{TagLeaf, TagNode, TagIndexDerive, TagStateUpdate, TagRC, TagChallengeID}
}

var (
	permOnce sync.Once
	perm     *poseidon2.Permutation
)

func permutation() *poseidon2.Permutation {
	permOnce.Do(func() {
		perm = poseidon2.NewPermutation(Width, FullRounds, PartialRounds)
	})
	return perm
}

// Element lifts a tag into the field.
func (t Tag) Element() fr.Element {
	var e fr.Element
	e.SetUint64(uint64(t))
	return e
}

// compress is the two-to-one Poseidon2 compression: permute (left, right)
// in place and feed the right input forward. This is the same compression
// the in-circuit Merkle-Damgard hasher applies per absorbed word.
func compress(left, right fr.Element) fr.Element {
	state := [Width]fr.Element{left, right}
	if err := permutation().Permutation(state[:]); err != nil {
		// Permutation only fails on a state width other than Width.
		panic("poseidon: permutation failed: " + err.Error())
	}
	var out fr.Element
	out.Add(&state[1], &right)
	return out
}

// Hash absorbs the tag and then each operand into the Merkle-Damgard
// chain, starting from the zero state, and returns the final state.
func Hash(tag Tag, elems ...fr.Element) fr.Element {
	var state fr.Element // zero IV
	state = compress(state, tag.Element())
	for _, e := range elems {
		state = compress(state, e)
	}
	return state
}

// RootCommitment binds a file's Merkle root to its tree depth:
// rc = H(TagRC, root, depth).
func RootCommitment(root fr.Element, depth uint64) fr.Element {
	var d fr.Element
	d.SetUint64(depth)
	return Hash(TagRC, root, d)
}
