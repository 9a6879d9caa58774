// Package erasure implements the multi-codeword Reed-Solomon symbol codec
// used to add retrievability redundancy to files before Merkle commitment.
//
// Files are cut into 31-byte symbols. Every 231 data symbols form one
// codeword extended with 24 parity symbols (255 total, the GF(2^8) limit).
// The code is systematic and MDS: the 255 symbols of a codeword are, per
// byte position, evaluations of the unique degree-<231 polynomial through
// the data values at the first 231 evaluation points, so any 231 of the 255
// symbols reconstruct the codeword exactly.
package erasure

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// SymbolSize is the fixed symbol width in bytes.
	SymbolSize = 31

	// DataShards is the number of data symbols per codeword.
	DataShards = 231

	// ParityShards is the number of parity symbols per codeword.
	ParityShards = 24

	// TotalShards is the codeword length: DataShards + ParityShards.
	TotalShards = 255
)

var (
	ErrEmptyInput    = errors.New("erasure: empty input data")
	ErrSymbolSize    = errors.New("erasure: symbol is not 31 bytes")
	ErrShardCount    = errors.New("erasure: symbol count mismatch")
	ErrTooFewShards  = errors.New("erasure: insufficient symbols for reconstruction")
	ErrCodewordCount = errors.New("erasure: invalid codeword count")
	ErrOriginalSize  = errors.New("erasure: original size inconsistent with symbol count")
)

// Evaluation points and the systematic generator matrix, built once.
// evalPoints[i] = g^i for i in [0, 255); the first 231 are the data points.
// parityMatrix[j][i] is the Lagrange basis polynomial of data point i
// evaluated at parity point 231+j, so parity_j = sum_i parityMatrix[j][i]*d_i.
var (
	evalPoints   [TotalShards]GF256
	parityMatrix [ParityShards][DataShards]GF256
	codecOnce    sync.Once
)

func initCodec() {
	codecOnce.Do(func() {
		initGF256Tables()
		for i := 0; i < TotalShards; i++ {
			evalPoints[i] = GF256Exp(i)
		}

		// Barycentric weights over the data points:
		// w[i] = prod_{j != i} (x_i - x_j).
		var w [DataShards]GF256
		for i := 0; i < DataShards; i++ {
			w[i] = 1
			for j := 0; j < DataShards; j++ {
				if j != i {
					w[i] = GF256Mul(w[i], GF256Sub(evalPoints[i], evalPoints[j]))
				}
			}
		}

		for p := 0; p < ParityShards; p++ {
			xp := evalPoints[DataShards+p]
			// m = prod_j (x_p - x_j) over all data points.
			m := GF256(1)
			for j := 0; j < DataShards; j++ {
				m = GF256Mul(m, GF256Sub(xp, evalPoints[j]))
			}
			for i := 0; i < DataShards; i++ {
				denom := GF256Mul(GF256Sub(xp, evalPoints[i]), w[i])
				parityMatrix[p][i] = GF256Div(m, denom)
			}
		}
	})
}

// NumCodewords returns the codeword count for a file of the given size.
func NumCodewords(originalSize int) int {
	if originalSize <= 0 {
		return 0
	}
	dataSymbols := (originalSize + SymbolSize - 1) / SymbolSize
	return (dataSymbols + DataShards - 1) / DataShards
}

// EncodeFile cuts data into 31-byte symbols, zero-pads to a whole number of
// codewords, and extends each codeword with its parity symbols. The result
// holds NumCodewords(len(data)) * 255 symbols in codeword order: codeword
// 0's 231 data symbols, then its 24 parity symbols, then codeword 1's, etc.
func EncodeFile(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	initCodec()

	numCW := NumCodewords(len(data))
	out := make([][]byte, 0, numCW*TotalShards)

	for cw := 0; cw < numCW; cw++ {
		// Materialize the 231 data symbols of this codeword, zero-padded.
		dataSyms := make([][]byte, DataShards)
		for i := 0; i < DataShards; i++ {
			sym := make([]byte, SymbolSize)
			start := (cw*DataShards + i) * SymbolSize
			if start < len(data) {
				end := start + SymbolSize
				if end > len(data) {
					end = len(data)
				}
				copy(sym, data[start:end])
			}
			dataSyms[i] = sym
		}

		parity := encodeParity(dataSyms)
		out = append(out, dataSyms...)
		out = append(out, parity...)
	}

	return out, nil
}

// encodeParity computes the 24 parity symbols for one codeword of 231 data
// symbols via the precomputed generator matrix, per byte position.
func encodeParity(dataSyms [][]byte) [][]byte {
	parity := make([][]byte, ParityShards)
	for p := 0; p < ParityShards; p++ {
		parity[p] = make([]byte, SymbolSize)
	}
	for b := 0; b < SymbolSize; b++ {
		for p := 0; p < ParityShards; p++ {
			var acc GF256
			for i := 0; i < DataShards; i++ {
				acc = GF256Add(acc, GF256Mul(parityMatrix[p][i], GF256(dataSyms[i][b])))
			}
			parity[p][b] = byte(acc)
		}
	}
	return parity
}

// ReconstructFile recovers the original file bytes from a partial symbol
// set. symbols must hold numCodewords*255 entries in encode order, with nil
// marking a missing symbol; every present symbol must be exactly 31 bytes.
// Each codeword needs at least 231 present symbols. The result is truncated
// to originalSize.
func ReconstructFile(symbols [][]byte, numCodewords, originalSize int) ([]byte, error) {
	if numCodewords <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrCodewordCount, numCodewords)
	}
	if len(symbols) != numCodewords*TotalShards {
		return nil, fmt.Errorf("%w: got %d symbols, want %d",
			ErrShardCount, len(symbols), numCodewords*TotalShards)
	}
	if originalSize <= 0 || NumCodewords(originalSize) != numCodewords {
		return nil, fmt.Errorf("%w: size %d, codewords %d",
			ErrOriginalSize, originalSize, numCodewords)
	}
	initCodec()

	out := make([]byte, 0, numCodewords*DataShards*SymbolSize)
	for cw := 0; cw < numCodewords; cw++ {
		dataSyms, err := reconstructCodeword(symbols[cw*TotalShards : (cw+1)*TotalShards])
		if err != nil {
			return nil, fmt.Errorf("codeword %d: %w", cw, err)
		}
		for _, sym := range dataSyms {
			out = append(out, sym...)
		}
	}

	return out[:originalSize], nil
}

// reconstructCodeword recovers the 231 data symbols of one codeword from
// any 231 of its 255 positions.
func reconstructCodeword(shards [][]byte) ([][]byte, error) {
	var avail []int
	for i, s := range shards {
		if s == nil {
			continue
		}
		if len(s) != SymbolSize {
			return nil, fmt.Errorf("%w: position %d has %d bytes", ErrSymbolSize, i, len(s))
		}
		avail = append(avail, i)
		if len(avail) == DataShards {
			break
		}
	}
	if len(avail) < DataShards {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooFewShards, len(avail), DataShards)
	}

	data := make([][]byte, DataShards)
	missing := make([]int, 0, ParityShards)
	for i := 0; i < DataShards; i++ {
		if shards[i] != nil {
			data[i] = shards[i]
		} else {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return data, nil
	}

	// Interpolation basis: the 231 available positions.
	xs := make([]GF256, DataShards)
	for i, idx := range avail {
		xs[i] = evalPoints[idx]
	}

	// Barycentric weights for the basis: w[i] = prod_{j != i} (xs_i - xs_j).
	w := make([]GF256, DataShards)
	for i := 0; i < DataShards; i++ {
		w[i] = 1
		for j := 0; j < DataShards; j++ {
			if j != i {
				w[i] = GF256Mul(w[i], GF256Sub(xs[i], xs[j]))
			}
		}
	}

	// Lagrange coefficients for each missing position, then one pass over
	// the byte positions per recovered symbol.
	for _, m := range missing {
		xm := evalPoints[m]
		prod := GF256(1)
		for j := 0; j < DataShards; j++ {
			prod = GF256Mul(prod, GF256Sub(xm, xs[j]))
		}
		coeffs := make([]GF256, DataShards)
		for i := 0; i < DataShards; i++ {
			denom := GF256Mul(GF256Sub(xm, xs[i]), w[i])
			coeffs[i] = GF256Div(prod, denom)
		}

		sym := make([]byte, SymbolSize)
		for b := 0; b < SymbolSize; b++ {
			var acc GF256
			for i, idx := range avail {
				acc = GF256Add(acc, GF256Mul(coeffs[i], GF256(shards[idx][b])))
			}
			sym[b] = byte(acc)
		}
		data[m] = sym
	}

	return data, nil
}
