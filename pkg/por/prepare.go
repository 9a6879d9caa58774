// prepare.go implements file ingestion: erasure-encode the raw bytes into
// 31-byte symbols, commit them into a Poseidon Merkle tree, and emit the
// public metadata. The inverse direction reconstructs original bytes from
// a partial symbol set.
package por

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/keepernet/keepernet/pkg/erasure"
	"github.com/keepernet/keepernet/pkg/field"
	"github.com/keepernet/keepernet/pkg/merkle"
)

// PrepareFile encodes data with Reed-Solomon redundancy, builds the Merkle
// commitment, and returns the prover-side PreparedFile plus the public
// FileMetadata.
func PrepareFile(data []byte, filename string) (*PreparedFile, *FileMetadata, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	symbols, err := erasure.EncodeFile(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	leaves := make([]fr.Element, len(symbols))
	for i, sym := range symbols {
		leaf, err := field.SymbolToElement(sym)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: symbol %d: %v", ErrInvalidInput, i, err)
		}
		leaves[i] = leaf
	}

	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMerkleTree, err)
	}

	fileID := FileIDFor(data)
	meta := &FileMetadata{
		Root:         tree.Root(),
		FileID:       fileID,
		PaddedLen:    tree.LeafCount(),
		OriginalSize: len(data),
		Filename:     filename,
	}
	prepared := &PreparedFile{
		FileID:  fileID,
		Root:    tree.Root(),
		tree:    tree,
		symbols: symbols,
	}

	return prepared, meta, nil
}

// ReconstructFile recovers the original bytes from a partial symbol set.
// symbols must hold meta.TotalSymbols() entries in encode order with nil
// marking missing symbols; at least 231 of each codeword's 255 symbols must
// be present.
func ReconstructFile(symbols [][]byte, meta *FileMetadata) ([]byte, error) {
	if meta == nil {
		return nil, fmt.Errorf("%w: nil metadata", ErrInvalidInput)
	}
	data, err := erasure.ReconstructFile(symbols, meta.NumCodewords(), meta.OriginalSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return data, nil
}
