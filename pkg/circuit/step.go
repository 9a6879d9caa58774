// Package circuit defines the PoR step circuit: one recursion step that
// verifies, for every file slot, a challenged Merkle leaf against the
// slot's file root, binds the file root and depth into the ledger's
// aggregated tree, and advances the hash-chain state.
//
// The circuit is shape-polymorphic over (slots, fileDepth, ledgerDepth);
// all control flow is selected by these compile-time constants, so every
// witness of a given shape synthesizes the identical constraint system.
package circuit

import (
	"errors"

	"github.com/consensys/gnark/frontend"
	stdhash "github.com/consensys/gnark/std/hash"
	"github.com/consensys/gnark/std/permutation/poseidon2"

	"github.com/keepernet/keepernet/pkg/poseidon"
)

// ErrShapeMismatch reports a public vector whose length does not match the
// circuit shape.
var ErrShapeMismatch = errors.New("circuit: public vector does not match shape")

// StepCircuit proves one recursion step. ZIn and ZOut follow the Layout
// documented in layout.go; Step is the zero-based step counter, bound as a
// public input by the verifier.
type StepCircuit struct {
	ZIn  []frontend.Variable `gnark:",public"`
	ZOut []frontend.Variable `gnark:",public"`
	Step frontend.Variable   `gnark:",public"`

	// Per-slot advice.
	Leaf         []frontend.Variable   // challenged symbol, as field element
	FileSiblings [][]frontend.Variable // [slots][fileDepth] file-tree siblings
	LevelActive  [][]frontend.Variable // [slots][fileDepth] level mask bits
	AggSiblings  [][]frontend.Variable // [slots][ledgerDepth] aggregated-tree siblings

	slots       int
	fileDepth   int
	ledgerDepth int
}

// New returns a compile-time placeholder for the given shape, with every
// slice sized so the frontend derives the correct schema.
func New(slots, fileDepth, ledgerDepth int) *StepCircuit {
	c := &StepCircuit{
		slots:       slots,
		fileDepth:   fileDepth,
		ledgerDepth: ledgerDepth,
	}
	arity := Layout{Slots: slots}.Arity()
	c.ZIn = make([]frontend.Variable, arity)
	c.ZOut = make([]frontend.Variable, arity)
	c.Leaf = make([]frontend.Variable, slots)
	c.FileSiblings = make([][]frontend.Variable, slots)
	c.LevelActive = make([][]frontend.Variable, slots)
	c.AggSiblings = make([][]frontend.Variable, slots)
	for f := 0; f < slots; f++ {
		c.FileSiblings[f] = make([]frontend.Variable, fileDepth)
		c.LevelActive[f] = make([]frontend.Variable, fileDepth)
		c.AggSiblings[f] = make([]frontend.Variable, ledgerDepth)
	}
	return c
}

// NewAssignment returns a shape-sized assignment skeleton for witness
// construction; the caller fills in the values.
func NewAssignment(slots, fileDepth, ledgerDepth int) *StepCircuit {
	return New(slots, fileDepth, ledgerDepth)
}

// Define synthesizes the step constraints.
func (c *StepCircuit) Define(api frontend.API) error {
	layout := Layout{Slots: c.slots}
	if len(c.ZIn) != layout.Arity() || len(c.ZOut) != layout.Arity() {
		return ErrShapeMismatch
	}

	p, err := poseidon2.NewPoseidon2FromParameters(api, poseidon.Width, poseidon.FullRounds, poseidon.PartialRounds)
	if err != nil {
		return err
	}
	hasher := stdhash.NewMerkleDamgardHasher(api, p, 0)
	hashTagged := func(tag poseidon.Tag, xs ...frontend.Variable) frontend.Variable {
		hasher.Reset()
		hasher.Write(frontend.Variable(uint64(tag)))
		hasher.Write(xs...)
		return hasher.Sum()
	}

	root := c.ZIn[layout.AggRoot()]
	stateIn := c.ZIn[layout.StateIn()]
	state := stateIn

	for f := 0; f < c.slots; f++ {
		ledgerIndex := c.ZIn[layout.LedgerIndex(f)]
		depthPub := c.ZIn[layout.Depth(f)]
		seedPub := c.ZIn[layout.Seed(f)]

		// A slot is active iff its public depth is non-zero; padding slots
		// must leave the state untouched.
		active := api.Sub(1, api.IsZero(depthPub))

		// Challenge-index derivation over (seed, state_in, step). The low
		// fileDepth bits of the digest are the path directions; the same
		// truncation runs off-circuit in pkg/commit.
		h := hashTagged(poseidon.TagIndexDerive, seedPub, stateIn, c.Step)
		hBits := api.ToBinary(h, api.Compiler().FieldBitLen())
		dirBits := hBits[:c.fileDepth]

		// Level mask: boolean, contiguous from the bottom, summing to the
		// public depth. This binds the number of folded levels to the
		// depth committed in the ledger.
		sum := frontend.Variable(0)
		prev := frontend.Variable(1)
		for lvl := 0; lvl < c.fileDepth; lvl++ {
			flag := c.LevelActive[f][lvl]
			api.AssertIsBoolean(flag)
			api.AssertIsEqual(api.Mul(flag, api.Sub(1, prev)), 0)
			prev = flag
			sum = api.Add(sum, flag)
		}
		api.AssertIsEqual(sum, depthPub)

		// Gated Merkle fold: levels beyond the declared depth leave the
		// running hash unchanged.
		cur := c.Leaf[f]
		for lvl := 0; lvl < c.fileDepth; lvl++ {
			sib := c.FileSiblings[f][lvl]
			left := api.Select(dirBits[lvl], sib, cur)
			right := api.Select(dirBits[lvl], cur, sib)
			folded := hashTagged(poseidon.TagNode, left, right)
			cur = api.Select(c.LevelActive[f][lvl], folded, cur)
		}
		computedRoot := cur

		rc := hashTagged(poseidon.TagRC, computedRoot, depthPub)

		if c.ledgerDepth > 0 {
			// Ledger membership: fold rc along the public ledger index.
			// ToBinary also range-checks the index against 2^ledgerDepth.
			idxBits := api.ToBinary(ledgerIndex, c.ledgerDepth)
			acc := rc
			for lvl := 0; lvl < c.ledgerDepth; lvl++ {
				sib := c.AggSiblings[f][lvl]
				left := api.Select(idxBits[lvl], sib, acc)
				right := api.Select(idxBits[lvl], acc, sib)
				acc = hashTagged(poseidon.TagNode, left, right)
			}
			api.AssertIsEqual(api.Mul(active, api.Sub(acc, root)), 0)
		} else {
			// Single-file shape: the public root is the file root.
			api.AssertIsEqual(api.Mul(active, api.Sub(computedRoot, root)), 0)
		}

		// Gated state update and leaf exposure.
		updated := hashTagged(poseidon.TagStateUpdate, state, c.Leaf[f])
		state = api.Select(active, updated, state)

		leafOut := api.Select(active, c.Leaf[f], 0)
		api.AssertIsEqual(c.ZOut[layout.Leaf(f)], leafOut)
	}

	// Thread the invariant sections through unchanged.
	api.AssertIsEqual(c.ZOut[layout.AggRoot()], root)
	api.AssertIsEqual(c.ZOut[layout.StateIn()], state)
	for i := 2; i < 2+3*c.slots; i++ {
		api.AssertIsEqual(c.ZOut[i], c.ZIn[i])
	}

	return nil
}
