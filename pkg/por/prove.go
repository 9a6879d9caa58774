// prove.go drives the recursive stepper. Construction synthesizes and
// proves step 0; the first subsequent advance is a deliberate no-op counter
// bump, so a driver that issues exactly numChallenges advances ends with
// exactly numChallenges synthesized steps. Compression serializes the step
// chain and binds the ordered challenge IDs.
package por

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"

	"github.com/keepernet/keepernet/pkg/ledger"
	"github.com/keepernet/keepernet/pkg/log"
	"github.com/keepernet/keepernet/pkg/metrics"
	"github.com/keepernet/keepernet/pkg/params"
)

var (
	proveHist    = metrics.NewHistogram("por.prove_ms")
	proveCounter = metrics.NewCounter("por.proofs_generated")
	proveLogger  = log.Default().Module("prover")
)

// stepper is the recursive proving driver for one plan.
type stepper struct {
	pl    *plan
	par   *params.Params
	files map[string]*PreparedFile

	z        []fr.Element
	advances int

	zs     [][]fr.Element
	proofs [][]byte
}

// newStepper proves step 0 at construction time; the caller still issues
// numChallenges advances, the first of which only bumps the counter.
func newStepper(pl *plan, par *params.Params, files map[string]*PreparedFile) (*stepper, error) {
	s := &stepper{
		pl:    pl,
		par:   par,
		files: files,
		z:     pl.buildZ0(),
	}
	if err := s.proveCurrent(0); err != nil {
		return nil, err
	}
	return s, nil
}

// ProveStep advances the recursion by one step. The first call after
// construction is a no-op bump because step 0 was synthesized by the
// constructor.
func (s *stepper) ProveStep() error {
	if s.advances == 0 {
		s.advances = 1
		return nil
	}
	if err := s.proveCurrent(uint64(s.advances)); err != nil {
		return err
	}
	s.advances++
	return nil
}

// proveCurrent synthesizes and proves the step with the given counter,
// then rolls the public vector forward.
func (s *stepper) proveCurrent(step uint64) error {
	assignment, zOut, err := s.pl.buildStepAssignment(s.files, s.z, step)
	if err != nil {
		return err
	}

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("%w: witness for step %d: %v", ErrCircuit, step, err)
	}

	proof, err := plonk.Prove(s.par.CCS, s.par.PK, witness)
	if err != nil {
		return fmt.Errorf("%w: step %d: %v", ErrSnark, step, err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return fmt.Errorf("%w: step %d proof: %v", ErrSerialization, step, err)
	}

	s.zs = append(s.zs, zOut)
	s.proofs = append(s.proofs, buf.Bytes())
	s.z = zOut
	return nil
}

// Compress finalizes the chain. numSteps must equal both the advances
// issued and the steps synthesized; an off-by-one here is a driver bug.
func (s *stepper) Compress(numSteps int) ([]byte, error) {
	if numSteps != s.advances || numSteps != len(s.proofs) {
		return nil, fmt.Errorf("%w: %d advances, %d synthesized steps, %d requested",
			ErrSnark, s.advances, len(s.proofs), numSteps)
	}
	return encodeStepChain(s.pl.shape.Arity(), s.zs, s.proofs)
}

// Prove generates one succinct proof covering the challenge batch. files
// must hold a PreparedFile for every challenged file id; the ledger must be
// the prover's current view and stay immutable for the duration of the
// call.
func Prove(files []*PreparedFile, challenges []Challenge, led *ledger.FileLedger) (*Proof, error) {
	timer := metrics.NewTimer(proveHist)

	byID := make(map[string]*PreparedFile, len(files))
	for _, f := range files {
		if f == nil {
			return nil, fmt.Errorf("%w: nil prepared file", ErrInvalidInput)
		}
		byID[f.FileID] = f
	}

	pl, err := makePlan(challenges, led)
	if err != nil {
		return nil, err
	}

	// The prover must hold every challenged file, with a tree that matches
	// the challenged metadata.
	for i := range pl.sorted {
		meta := &pl.sorted[i].FileMetadata
		pf, ok := byID[meta.FileID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, meta.FileID)
		}
		if !pf.Root.Equal(&meta.Root) {
			return nil, fmt.Errorf("%w: prepared root for %s disagrees with challenge",
				ErrMetadataMismatch, meta.FileID)
		}
	}

	par, err := params.Get(pl.shape)
	if err != nil {
		return nil, err
	}

	proveLogger.Info("proving batch",
		"files", len(pl.sorted),
		"steps", pl.numChallenges,
		"shape", pl.shape.String())

	s, err := newStepper(pl, par, byID)
	if err != nil {
		return nil, err
	}
	for i := 0; i < pl.numChallenges; i++ {
		if err := s.ProveStep(); err != nil {
			return nil, err
		}
	}

	blob, err := s.Compress(pl.numChallenges)
	if err != nil {
		return nil, err
	}

	d := timer.Stop()
	proveCounter.Inc()
	proveLogger.Info("proof generated",
		"bytes", len(blob),
		"elapsed_ms", d.Milliseconds())

	return &Proof{
		snark:        blob,
		ChallengeIDs: pl.challengeIDs(),
	}, nil
}
