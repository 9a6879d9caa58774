// verify.go replays the step chain against a locally recomputed statement.
// The verifier never consumes a prover-supplied aggregated root or ledger
// index: the plan — and with it z0 — is rebuilt from the verifier's own
// ledger snapshot, and each step proof is checked against the chained
// public IO with the step counter bound as a public input.
package por

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"

	"github.com/keepernet/keepernet/pkg/ledger"
	"github.com/keepernet/keepernet/pkg/log"
	"github.com/keepernet/keepernet/pkg/metrics"
	"github.com/keepernet/keepernet/pkg/params"
)

var (
	verifyHist     = metrics.NewHistogram("por.verify_ms")
	verifyAccepted = metrics.NewCounter("por.proofs_accepted")
	verifyRejected = metrics.NewCounter("por.proofs_rejected")
	verifyLogger   = log.Default().Module("verifier")
)

// Verify checks a proof against a challenge batch and the verifier's own
// ledger. It returns (true, nil) for a valid proof, (false, nil) for a
// cryptographically invalid one, and a typed error for malformed input.
func Verify(proof *Proof, challenges []Challenge, led *ledger.FileLedger) (bool, error) {
	timer := metrics.NewTimer(verifyHist)
	defer timer.Stop()

	if proof == nil {
		return false, fmt.Errorf("%w: nil proof", ErrInvalidInput)
	}
	if led == nil {
		return false, fmt.Errorf("%w: nil ledger", ErrInvalidInput)
	}

	// Freeze the ledger view for the whole call.
	snapshot := led.Snapshot()

	pl, err := makePlan(challenges, snapshot)
	if err != nil {
		return false, err
	}

	// The covered challenge set must match the recomputed one exactly,
	// element-wise and in order. A mismatch is a wrong proof, not a
	// malformed one.
	ids := pl.challengeIDs()
	if len(proof.ChallengeIDs) != len(ids) {
		verifyRejected.Inc()
		return false, nil
	}
	for i := range ids {
		if proof.ChallengeIDs[i] != ids[i] {
			verifyRejected.Inc()
			return false, nil
		}
	}

	// Anything wrong inside the opaque snark blob — including mangled
	// bytes — is a wrong proof for this statement, not malformed input:
	// the outer wire format was already validated by ProofFromBytes.
	chain, err := decodeStepChain(proof.snark)
	if err != nil {
		verifyRejected.Inc()
		verifyLogger.Debug("step chain rejected", "err", err.Error())
		return false, nil
	}

	// The chain must carry exactly numChallenges synthesized steps of the
	// plan's arity; anything else is a statement mismatch.
	if chain.arity != pl.shape.Arity() || len(chain.steps) != pl.numChallenges {
		verifyRejected.Inc()
		return false, nil
	}

	par, err := params.Get(pl.shape)
	if err != nil {
		return false, err
	}

	z := pl.buildZ0()
	for t := 0; t < pl.numChallenges; t++ {
		zNext := chain.zs[t]

		stepProof := plonk.NewProof(ecc.BN254)
		if _, err := stepProof.ReadFrom(bytes.NewReader(chain.steps[t])); err != nil {
			verifyRejected.Inc()
			verifyLogger.Debug("step proof rejected", "step", t, "err", err.Error())
			return false, nil
		}

		assignment := pl.buildPublicAssignment(z, zNext, uint64(t))
		pubWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
		if err != nil {
			return false, fmt.Errorf("%w: step %d public witness: %v", ErrCircuit, t, err)
		}

		if err := plonk.Verify(stepProof, par.VK, pubWitness); err != nil {
			verifyRejected.Inc()
			verifyLogger.Debug("step verification failed", "step", t, "err", err.Error())
			return false, nil
		}

		z = zNext
	}

	verifyAccepted.Inc()
	return true, nil
}
