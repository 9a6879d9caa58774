// proof.go defines the proof object and its wire format.
//
// Outer layout, all integers little-endian:
//
//	magic(4)="KPOR" | version(2) | snarkLen(4) | snarkBytes |
//	nIDs(4) | id_0(32) | ... | id_{n-1}(32)
//
// The snark blob is the compressed step chain: numSteps(4) | arity(4),
// then per step the output vector (arity canonical 32-byte LE elements)
// followed by a length-prefixed PLONK proof. Verifiers treat the blob as
// opaque outside this package.
package por

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/keepernet/keepernet/pkg/field"
)

const (
	// ProofFormatVersion is the current wire format version.
	ProofFormatVersion uint16 = 1

	// maxProofBytes bounds a serialized proof a parser accepts (64 MiB).
	maxProofBytes = 64 << 20

	// maxStepProofBytes bounds one serialized PLONK step proof.
	maxStepProofBytes = 1 << 20
)

var proofMagic = [4]byte{'K', 'P', 'O', 'R'}

// Proof is the succinct proof object: the opaque SNARK bytes plus the
// ordered challenge IDs it covers.
type Proof struct {
	snark        []byte
	ChallengeIDs []ChallengeID
}

// ToBytes serializes the proof into the versioned wire format.
func (p *Proof) ToBytes() ([]byte, error) {
	if len(p.snark) == 0 {
		return nil, fmt.Errorf("%w: empty snark blob", ErrSerialization)
	}
	if len(p.ChallengeIDs) == 0 {
		return nil, fmt.Errorf("%w: no challenge ids", ErrSerialization)
	}

	var buf bytes.Buffer
	buf.Write(proofMagic[:])

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], ProofFormatVersion)
	buf.Write(u16[:])

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(p.snark)))
	buf.Write(u32[:])
	buf.Write(p.snark)

	binary.LittleEndian.PutUint32(u32[:], uint32(len(p.ChallengeIDs)))
	buf.Write(u32[:])
	for _, id := range p.ChallengeIDs {
		buf.Write(id[:])
	}

	return buf.Bytes(), nil
}

// ProofFromBytes parses the versioned wire format, rejecting wrong magic,
// unknown versions, oversized lengths, a zero ID count, and trailing bytes.
func ProofFromBytes(b []byte) (*Proof, error) {
	if len(b) > maxProofBytes {
		return nil, fmt.Errorf("%w: proof of %d bytes exceeds limit", ErrSerialization, len(b))
	}
	if len(b) < 10 {
		return nil, fmt.Errorf("%w: truncated header", ErrSerialization)
	}
	if [4]byte(b[:4]) != proofMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrSerialization)
	}
	if v := binary.LittleEndian.Uint16(b[4:6]); v != ProofFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSerialization, v)
	}

	snarkLen := int(binary.LittleEndian.Uint32(b[6:10]))
	off := 10
	if snarkLen <= 0 || snarkLen > maxProofBytes || off+snarkLen+4 > len(b) {
		return nil, fmt.Errorf("%w: bad snark length %d", ErrSerialization, snarkLen)
	}
	snark := make([]byte, snarkLen)
	copy(snark, b[off:off+snarkLen])
	off += snarkLen

	nIDs := int(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	if nIDs == 0 {
		return nil, fmt.Errorf("%w: zero challenge ids", ErrSerialization)
	}
	if nIDs > MaxFilesPerProof || off+nIDs*32 > len(b) {
		return nil, fmt.Errorf("%w: bad id count %d", ErrSerialization, nIDs)
	}
	ids := make([]ChallengeID, nIDs)
	for i := range ids {
		copy(ids[i][:], b[off:off+32])
		off += 32
	}

	if off != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerialization, len(b)-off)
	}

	return &Proof{snark: snark, ChallengeIDs: ids}, nil
}

// stepChain is the decoded inner snark blob: each step's output vector and
// its PLONK proof bytes.
type stepChain struct {
	arity int
	zs    [][]fr.Element
	steps [][]byte
}

// encodeStepChain serializes the chain into the inner blob.
func encodeStepChain(arity int, zs [][]fr.Element, steps [][]byte) ([]byte, error) {
	if len(zs) != len(steps) || len(steps) == 0 {
		return nil, fmt.Errorf("%w: inconsistent step chain", ErrSerialization)
	}

	var buf bytes.Buffer
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(steps)))
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], uint32(arity))
	buf.Write(u32[:])

	for t := range steps {
		if len(zs[t]) != arity {
			return nil, fmt.Errorf("%w: step %d arity %d, want %d",
				ErrSerialization, t, len(zs[t]), arity)
		}
		for _, e := range zs[t] {
			le := field.ToBytesLE(e)
			buf.Write(le[:])
		}
		binary.LittleEndian.PutUint32(u32[:], uint32(len(steps[t])))
		buf.Write(u32[:])
		buf.Write(steps[t])
	}

	return buf.Bytes(), nil
}

// decodeStepChain parses the inner blob with full bounds checking.
func decodeStepChain(b []byte) (*stepChain, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("%w: truncated step chain", ErrSerialization)
	}
	numSteps := int(binary.LittleEndian.Uint32(b[:4]))
	arity := int(binary.LittleEndian.Uint32(b[4:8]))
	off := 8

	if numSteps <= 0 || numSteps > MaxNumChallenges {
		return nil, fmt.Errorf("%w: step count %d", ErrSerialization, numSteps)
	}
	if arity < 2 || arity > 2+4*MaxFilesPerProof {
		return nil, fmt.Errorf("%w: arity %d", ErrSerialization, arity)
	}

	chain := &stepChain{
		arity: arity,
		zs:    make([][]fr.Element, numSteps),
		steps: make([][]byte, numSteps),
	}
	for t := 0; t < numSteps; t++ {
		if off+arity*field.ElementSize > len(b) {
			return nil, fmt.Errorf("%w: truncated z vector at step %d", ErrSerialization, t)
		}
		z := make([]fr.Element, arity)
		for i := 0; i < arity; i++ {
			e, err := field.FromBytesLE(b[off : off+field.ElementSize])
			if err != nil {
				return nil, fmt.Errorf("%w: step %d element %d: %v", ErrSerialization, t, i, err)
			}
			z[i] = e
			off += field.ElementSize
		}
		chain.zs[t] = z

		if off+4 > len(b) {
			return nil, fmt.Errorf("%w: truncated proof length at step %d", ErrSerialization, t)
		}
		n := int(binary.LittleEndian.Uint32(b[off : off+4]))
		off += 4
		if n <= 0 || n > maxStepProofBytes || off+n > len(b) {
			return nil, fmt.Errorf("%w: bad proof length %d at step %d", ErrSerialization, n, t)
		}
		chain.steps[t] = b[off : off+n]
		off += n
	}

	if off != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes in step chain", ErrSerialization, len(b)-off)
	}

	return chain, nil
}
