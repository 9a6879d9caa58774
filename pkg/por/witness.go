// witness.go builds per-step circuit assignments. The derivation chain
// here (index, state update, leaf exposure) is the off-circuit mirror of
// pkg/circuit's Define; any drift between the two fails proving.
package por

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/keepernet/keepernet/pkg/circuit"
	"github.com/keepernet/keepernet/pkg/commit"
	"github.com/keepernet/keepernet/pkg/field"
)

// buildStepAssignment produces the full witness assignment for one step:
// the public vectors (zIn, zOut, step) plus all per-slot advice. It returns
// the assignment and the step's output vector.
func (p *plan) buildStepAssignment(files map[string]*PreparedFile, zIn []fr.Element, step uint64) (*circuit.StepCircuit, []fr.Element, error) {
	layout := circuit.Layout{Slots: p.shape.Slots}
	if len(zIn) != layout.Arity() {
		return nil, nil, fmt.Errorf("%w: z vector arity %d, want %d",
			ErrCircuit, len(zIn), layout.Arity())
	}

	a := circuit.NewAssignment(p.shape.Slots, p.shape.FileDepth, p.shape.LedgerDepth)
	zOut := make([]fr.Element, layout.Arity())
	copy(zOut, zIn)

	stateIn := zIn[layout.StateIn()]
	state := stateIn

	for f := 0; f < p.shape.Slots; f++ {
		if f >= len(p.sorted) {
			// Inert padding slot: zero advice, state untouched, leaf out 0.
			a.Leaf[f] = fr.Element{}
			for lvl := 0; lvl < p.shape.FileDepth; lvl++ {
				a.FileSiblings[f][lvl] = fr.Element{}
				a.LevelActive[f][lvl] = 0
			}
			for lvl := 0; lvl < p.shape.LedgerDepth; lvl++ {
				a.AggSiblings[f][lvl] = fr.Element{}
			}
			zOut[layout.Leaf(f)] = fr.Element{}
			continue
		}

		ch := &p.sorted[f]
		pf, ok := files[ch.FileMetadata.FileID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, ch.FileMetadata.FileID)
		}

		depth := p.depths[f]
		idx := commit.DeriveIndex(p.seeds[f], stateIn, step, uint(depth))

		leaf, err := pf.tree.Leaf(idx)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMerkleTree, err)
		}
		siblings, err := pf.tree.PaddedPath(idx, p.shape.FileDepth)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMerkleTree, err)
		}

		a.Leaf[f] = leaf
		for lvl := 0; lvl < p.shape.FileDepth; lvl++ {
			a.FileSiblings[f][lvl] = siblings[lvl]
			if uint64(lvl) < depth {
				a.LevelActive[f][lvl] = 1
			} else {
				a.LevelActive[f][lvl] = 0
			}
		}

		if p.shape.LedgerDepth > 0 {
			aggSiblings, err := p.ledger.AggregationPath(ch.FileMetadata.FileID)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s", ErrFileNotInLedger, ch.FileMetadata.FileID)
			}
			if len(aggSiblings) != p.shape.LedgerDepth {
				return nil, nil, fmt.Errorf("%w: aggregation path depth %d, want %d",
					ErrCircuit, len(aggSiblings), p.shape.LedgerDepth)
			}
			for lvl := 0; lvl < p.shape.LedgerDepth; lvl++ {
				a.AggSiblings[f][lvl] = aggSiblings[lvl]
			}
		}

		state = commit.NextState(state, leaf)
		zOut[layout.Leaf(f)] = leaf
	}

	zOut[layout.StateIn()] = state

	assignPublic(a, zIn, zOut, step)
	return a, zOut, nil
}

// buildPublicAssignment produces the public-only assignment used by the
// verifier for one step.
func (p *plan) buildPublicAssignment(zIn, zOut []fr.Element, step uint64) *circuit.StepCircuit {
	a := circuit.NewAssignment(p.shape.Slots, p.shape.FileDepth, p.shape.LedgerDepth)
	assignPublic(a, zIn, zOut, step)
	return a
}

// assignPublic copies the public vectors into an assignment.
func assignPublic(a *circuit.StepCircuit, zIn, zOut []fr.Element, step uint64) {
	for i := range zIn {
		a.ZIn[i] = zIn[i]
	}
	for i := range zOut {
		a.ZOut[i] = zOut[i]
	}
	a.Step = field.FromUint64(step)
}
