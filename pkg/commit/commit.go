// Package commit derives the engine's commitments: the recursive state
// chain, the per-step challenge indices, and challenge identifiers. The
// index derivation here and the in-circuit gadget must agree bit for bit;
// both take the low depth bits of the same tagged Poseidon digest.
package commit

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/keepernet/keepernet/pkg/field"
	"github.com/keepernet/keepernet/pkg/poseidon"
)

// NextState advances the state chain: s' = H(TagStateUpdate, s, leaf).
// The chain starts at zero and binds both step order and leaf content.
func NextState(state, leaf fr.Element) fr.Element {
	return poseidon.Hash(poseidon.TagStateUpdate, state, leaf)
}

// DeriveIndex maps (seed, state, step) to a leaf index in [0, 2^depth).
//
// The digest h = H(TagIndexDerive, seed, state, step) is uniform over the
// full 254-bit field, so masking to the low depth bits is the unbiased
// power-of-two reduction (bias below 2^(depth-254)). depth must be <= 63;
// depth 0 always yields index 0.
func DeriveIndex(seed, state fr.Element, step uint64, depth uint) uint64 {
	if depth == 0 {
		return 0
	}
	if depth > 63 {
		depth = 63
	}
	h := poseidon.Hash(poseidon.TagIndexDerive, seed, state, field.FromUint64(step))
	le := field.ToBytesLE(h)
	v := binary.LittleEndian.Uint64(le[:8])
	return v & (uint64(1)<<depth - 1)
}

// ChallengeID computes the deterministic 32-byte challenge identifier:
// SHA-256 over the TagChallengeID encoding followed by every binding field
// of the challenge.
func ChallengeID(blockHeight uint64, seed fr.Element, fileID string, root fr.Element, depth, numChallenges uint64, proverID string) [32]byte {
	h := sha256.New()

	tag := field.ToBytesLE(poseidon.TagChallengeID.Element())
	h.Write(tag[:])

	var u [8]byte
	binary.LittleEndian.PutUint64(u[:], blockHeight)
	h.Write(u[:])

	seedLE := field.ToBytesLE(seed)
	h.Write(seedLE[:])

	h.Write([]byte(fileID))

	rootLE := field.ToBytesLE(root)
	h.Write(rootLE[:])

	binary.LittleEndian.PutUint64(u[:], depth)
	h.Write(u[:])

	binary.LittleEndian.PutUint64(u[:], numChallenges)
	h.Write(u[:])

	h.Write([]byte(proverID))

	var id [32]byte
	copy(id[:], h.Sum(nil))
	return id
}
