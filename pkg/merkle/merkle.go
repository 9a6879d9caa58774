// Package merkle implements the Poseidon binary Merkle tree over symbol
// leaves. Leaves are field encodings of 31-byte symbols, padded with the
// zero element to the next power of two; internal nodes are the
// tag-separated hash H(TagNode, left, right). The path fold implemented
// here is realized identically by the in-circuit gadget.
package merkle

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/keepernet/keepernet/pkg/field"
	"github.com/keepernet/keepernet/pkg/poseidon"
)

var (
	ErrNoLeaves   = errors.New("merkle: no leaves")
	ErrIndexRange = errors.New("merkle: leaf index out of range")
)

// Tree is a complete binary Merkle tree stored layer by layer: layers[0]
// holds the (padded) leaves and the last layer holds the single root.
type Tree struct {
	layers [][]fr.Element
}

// HashNode is the internal-node hash: H(TagNode, left, right).
func HashNode(left, right fr.Element) fr.Element {
	return poseidon.Hash(poseidon.TagNode, left, right)
}

// Build constructs a tree over the given leaves, padding with the zero
// element to the next power of two.
func Build(leaves []fr.Element) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}

	padded := make([]fr.Element, field.NextPow2(len(leaves)))
	copy(padded, leaves)

	layers := [][]fr.Element{padded}
	for len(layers[len(layers)-1]) > 1 {
		cur := layers[len(layers)-1]
		next := make([]fr.Element, len(cur)/2)
		for i := range next {
			next[i] = HashNode(cur[2*i], cur[2*i+1])
		}
		layers = append(layers, next)
	}

	return &Tree{layers: layers}, nil
}

// Root returns the tree root.
func (t *Tree) Root() fr.Element {
	return t.layers[len(t.layers)-1][0]
}

// Depth returns log2 of the padded leaf count.
func (t *Tree) Depth() int {
	return len(t.layers) - 1
}

// LeafCount returns the padded leaf count.
func (t *Tree) LeafCount() int {
	return len(t.layers[0])
}

// Leaf returns the leaf at index i.
func (t *Tree) Leaf(i uint64) (fr.Element, error) {
	var zero fr.Element
	if i >= uint64(len(t.layers[0])) {
		return zero, fmt.Errorf("%w: %d >= %d", ErrIndexRange, i, len(t.layers[0]))
	}
	return t.layers[0][i], nil
}

// Path returns the sibling hashes for the leaf at index i, ordered bottom-up.
// The slice has exactly Depth() entries.
func (t *Tree) Path(i uint64) ([]fr.Element, error) {
	if i >= uint64(len(t.layers[0])) {
		return nil, fmt.Errorf("%w: %d >= %d", ErrIndexRange, i, len(t.layers[0]))
	}

	siblings := make([]fr.Element, 0, t.Depth())
	idx := i
	for level := 0; level < t.Depth(); level++ {
		siblings = append(siblings, t.layers[level][idx^1])
		idx >>= 1
	}
	return siblings, nil
}

// VerifyPath folds leaf and siblings along the binary representation of
// index and compares the result with root. A set bit means the current node
// is the right child of its parent.
func VerifyPath(root, leaf fr.Element, index uint64, siblings []fr.Element) bool {
	if len(siblings) < 64 && index >= 1<<uint(len(siblings)) {
		return false
	}
	cur := leaf
	for level, sib := range siblings {
		if index>>uint(level)&1 == 1 {
			cur = HashNode(sib, cur)
		} else {
			cur = HashNode(cur, sib)
		}
	}
	return cur.Equal(&root)
}

// PaddedPath returns the path for leaf i extended with zero siblings to the
// requested depth, for circuits shaped wider than this tree.
func (t *Tree) PaddedPath(i uint64, depth int) ([]fr.Element, error) {
	if depth < t.Depth() {
		return nil, fmt.Errorf("merkle: pad depth %d below tree depth %d", depth, t.Depth())
	}
	siblings, err := t.Path(i)
	if err != nil {
		return nil, err
	}
	for len(siblings) < depth {
		var zero fr.Element
		siblings = append(siblings, zero)
	}
	return siblings, nil
}

// DepthForLeafCount returns the depth of a tree over n leaves after padding.
func DepthForLeafCount(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n-1))
}
