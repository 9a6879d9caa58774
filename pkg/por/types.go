// types.go holds the public data structures of the façade: file metadata,
// the prover-side prepared file, challenges, and challenge identifiers.
package por

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/keepernet/keepernet/pkg/commit"
	"github.com/keepernet/keepernet/pkg/erasure"
	"github.com/keepernet/keepernet/pkg/field"
	"github.com/keepernet/keepernet/pkg/merkle"
)

// FileMetadata is the public commitment to a file, shared with verifiers.
type FileMetadata struct {
	// Root is the Merkle root over all symbols (data + parity).
	Root fr.Element
	// FileID is the hex SHA-256 of the original file bytes.
	FileID string
	// PaddedLen is the Merkle leaf count (power of two).
	PaddedLen int
	// OriginalSize is the original file size in bytes.
	OriginalSize int
	// Filename is a display name for operator UX.
	Filename string
}

// NumDataSymbols returns the count of 31-byte symbols cut from the file.
func (m *FileMetadata) NumDataSymbols() int {
	return (m.OriginalSize + field.SymbolSize - 1) / field.SymbolSize
}

// NumCodewords returns the Reed-Solomon codeword count.
func (m *FileMetadata) NumCodewords() int {
	return erasure.NumCodewords(m.OriginalSize)
}

// TotalSymbols returns the encoded symbol count including parity.
func (m *FileMetadata) TotalSymbols() int {
	return m.NumCodewords() * erasure.TotalShards
}

// Depth returns the Merkle tree depth, log2(PaddedLen).
func (m *FileMetadata) Depth() int {
	return field.Depth(m.PaddedLen)
}

// PreparedFile is the prover's private representation: the full Merkle
// tree plus every encoded symbol. Created by PrepareFile, consumed by
// Prove.
type PreparedFile struct {
	// FileID is the hex SHA-256 of the original file bytes.
	FileID string
	// Root is the Merkle root, for quick access.
	Root fr.Element

	tree    *merkle.Tree
	symbols [][]byte
}

// Tree returns the file's Merkle tree.
func (p *PreparedFile) Tree() *merkle.Tree { return p.tree }

// Symbols returns the encoded symbols in tree order (shared backing array;
// callers must not mutate).
func (p *PreparedFile) Symbols() [][]byte { return p.symbols }

// ChallengeID is the deterministic 32-byte identity of a challenge.
type ChallengeID [32]byte

// Challenge is a verifier's request to prove possession of pseudo-randomly
// selected symbols of one file.
type Challenge struct {
	// FileMetadata is the public metadata of the challenged file.
	FileMetadata FileMetadata
	// BlockHeight is the oracle height the challenge was derived at.
	BlockHeight uint64
	// NumChallenges is the recursive step count requested; it must be
	// uniform across a batch.
	NumChallenges int
	// Seed is the oracle-derived challenge seed. Seeds may differ between
	// files in one batch (cross-block aggregation).
	Seed fr.Element
	// ProverID identifies the storage node being challenged.
	ProverID string
}

// ID computes the challenge's deterministic identifier.
func (c *Challenge) ID() ChallengeID {
	return commit.ChallengeID(
		c.BlockHeight,
		c.Seed,
		c.FileMetadata.FileID,
		c.FileMetadata.Root,
		uint64(c.FileMetadata.Depth()),
		uint64(c.NumChallenges),
		c.ProverID,
	)
}

// FileIDFor returns the deterministic file id of raw content.
func FileIDFor(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
