// plan.go canonicalizes a challenge batch into the preprocessing plan
// shared by Prove and Verify: validation, canonical ordering, shape
// derivation, and the initial public IO vector. Keeping this in one place
// is what guarantees the two sides compute identical statements.
package por

import (
	"fmt"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/keepernet/keepernet/pkg/circuit"
	"github.com/keepernet/keepernet/pkg/field"
	"github.com/keepernet/keepernet/pkg/ledger"
	"github.com/keepernet/keepernet/pkg/params"
)

// plan is the canonical preprocessing result for one batch.
type plan struct {
	shape         params.Shape
	numChallenges int

	// sorted holds the challenges in canonical order (ascending file id).
	sorted []Challenge

	// aggregatedRoot is the verifier-owned public root: the ledger's
	// aggregated root for multi-slot shapes, the file's ledger root for the
	// single-slot shape.
	aggregatedRoot fr.Element

	// Per-slot public values, padded with zeros to shape.Slots.
	ledgerIndices []uint64
	depths        []uint64
	seeds         []fr.Element

	// ledger is the frozen view the plan was built against.
	ledger *ledger.FileLedger
}

// makePlan validates the batch against the ledger and builds the plan.
// The ledger must stay logically immutable while the plan is in use;
// Verify passes a snapshot.
func makePlan(challenges []Challenge, led *ledger.FileLedger) (*plan, error) {
	if len(challenges) == 0 {
		return nil, fmt.Errorf("%w: empty challenge batch", ErrInvalidInput)
	}
	if len(challenges) > MaxFilesPerProof {
		return nil, fmt.Errorf("%w: %d files exceeds maximum %d",
			ErrInvalidInput, len(challenges), MaxFilesPerProof)
	}
	if led == nil || led.Len() == 0 {
		return nil, fmt.Errorf("%w: empty ledger", ErrInvalidInput)
	}

	numChallenges := challenges[0].NumChallenges
	if numChallenges < 1 || numChallenges > MaxNumChallenges {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChallengeCount, numChallenges)
	}
	for i := range challenges {
		if challenges[i].NumChallenges != numChallenges {
			return nil, fmt.Errorf("%w: num_challenges differs at batch index %d",
				ErrChallengeMismatch, i)
		}
	}

	// Canonical order and duplicate rejection.
	sorted := make([]Challenge, len(challenges))
	copy(sorted, challenges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].FileMetadata.FileID < sorted[j].FileMetadata.FileID
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].FileMetadata.FileID == sorted[i-1].FileMetadata.FileID {
			return nil, fmt.Errorf("%w: duplicate file id %s",
				ErrInvalidInput, sorted[i].FileMetadata.FileID)
		}
	}

	// Ledger membership and metadata binding.
	maxDepth := 0
	for i := range sorted {
		meta := &sorted[i].FileMetadata
		entry, err := led.Get(meta.FileID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotInLedger, meta.FileID)
		}
		if !entry.Root.Equal(&meta.Root) || entry.Depth != uint64(meta.Depth()) {
			return nil, fmt.Errorf("%w: ledger entry for %s disagrees with challenge metadata",
				ErrMetadataMismatch, meta.FileID)
		}
		if d := meta.Depth(); d > maxDepth {
			maxDepth = d
		}
	}

	slots := len(sorted)
	ledgerDepth := 0
	if field.NextPow2(slots) > 1 {
		d, err := led.Depth()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		ledgerDepth = d
	}
	shape := params.DeriveShape(slots, maxDepth, ledgerDepth)

	var aggregatedRoot fr.Element
	if shape.Slots > 1 {
		root, err := led.AggregatedRoot()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		aggregatedRoot = root
	} else {
		// Single-file shape: the public root is the file root held by the
		// verifier's own ledger, never a prover-supplied value.
		entry, err := led.Get(sorted[0].FileMetadata.FileID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotInLedger, sorted[0].FileMetadata.FileID)
		}
		aggregatedRoot = entry.Root
	}

	ledgerIndices := make([]uint64, shape.Slots)
	depths := make([]uint64, shape.Slots)
	seeds := make([]fr.Element, shape.Slots)
	for i := range sorted {
		idx, err := led.IndexOf(sorted[i].FileMetadata.FileID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotInLedger, sorted[i].FileMetadata.FileID)
		}
		ledgerIndices[i] = uint64(idx)
		depths[i] = uint64(sorted[i].FileMetadata.Depth())
		seeds[i] = sorted[i].Seed
	}

	return &plan{
		shape:          shape,
		numChallenges:  numChallenges,
		sorted:         sorted,
		aggregatedRoot: aggregatedRoot,
		ledgerIndices:  ledgerIndices,
		depths:         depths,
		seeds:          seeds,
		ledger:         led,
	}, nil
}

// buildZ0 assembles the initial public IO vector: state and leaves zero,
// every other section filled from the plan.
func (p *plan) buildZ0() []fr.Element {
	layout := circuit.Layout{Slots: p.shape.Slots}
	z0 := make([]fr.Element, layout.Arity())

	z0[layout.AggRoot()] = p.aggregatedRoot
	// z0[1] (state) and the leaf section stay zero.
	for f := 0; f < p.shape.Slots; f++ {
		z0[layout.LedgerIndex(f)].SetUint64(p.ledgerIndices[f])
		z0[layout.Depth(f)].SetUint64(p.depths[f])
		z0[layout.Seed(f)] = p.seeds[f]
	}
	return z0
}

// challengeIDs returns the IDs of the sorted challenge set, in order.
func (p *plan) challengeIDs() []ChallengeID {
	ids := make([]ChallengeID, len(p.sorted))
	for i := range p.sorted {
		ids[i] = p.sorted[i].ID()
	}
	return ids
}
