// errors.go defines the error taxonomy surfaced by the engine façade.
// Validation failures return typed errors before any cryptographic work;
// cryptographic invalidity during verification is reported as a false
// boolean, never as an error.
package por

import (
	"errors"

	"github.com/keepernet/keepernet/pkg/ledger"
)

var (
	// ErrInvalidInput reports structurally invalid input (empty data,
	// empty batch, duplicate file ids, out-of-range sizes).
	ErrInvalidInput = errors.New("por: invalid input")

	// ErrInvalidChallengeCount reports a num_challenges outside [1, max].
	ErrInvalidChallengeCount = errors.New("por: invalid challenge count")

	// ErrChallengeMismatch reports a batch whose challenges disagree on a
	// field that must be uniform.
	ErrChallengeMismatch = errors.New("por: challenge mismatch")

	// ErrMetadataMismatch reports challenge metadata that contradicts the
	// ledger or the prepared file.
	ErrMetadataMismatch = errors.New("por: metadata mismatch")

	// ErrFileNotFound reports a challenged file the prover does not hold.
	ErrFileNotFound = errors.New("por: file not found")

	// ErrFileNotInLedger reports a challenged file absent from the ledger.
	ErrFileNotInLedger = errors.New("por: file not in ledger")

	// ErrDuplicateFile reports a ledger insert for an existing file id.
	ErrDuplicateFile = ledger.ErrDuplicateFile

	// ErrMerkleTree reports a Merkle tree construction or lookup failure.
	ErrMerkleTree = errors.New("por: merkle tree failure")

	// ErrCircuit reports a circuit synthesis or witness failure.
	ErrCircuit = errors.New("por: circuit failure")

	// ErrSnark reports a SNARK backend failure.
	ErrSnark = errors.New("por: snark failure")

	// ErrSerialization reports malformed or inconsistent wire bytes.
	ErrSerialization = errors.New("por: serialization failure")

	// ErrIO reports an I/O failure from a collaborator stream.
	ErrIO = errors.New("por: io failure")
)

const (
	// MaxFilesPerProof bounds the batch size of a single proof.
	MaxFilesPerProof = 1024

	// MaxNumChallenges bounds the recursive step count per proof.
	MaxNumChallenges = 10_000
)
