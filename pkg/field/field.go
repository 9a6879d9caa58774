// Package field provides the symbol layer of the PoR engine: the mapping
// between 31-byte storage symbols and BN254 scalar field elements, plus the
// canonical 32-byte little-endian wire encoding for field elements.
//
// A symbol is exactly 31 bytes, the largest size that embeds injectively
// into the 254-bit field. Nothing in this package ever reduces a value
// silently; out-of-range encodings are rejected.
package field

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// SymbolSize is the fixed symbol width in bytes. 31 bytes always fit below
// the BN254 scalar modulus, so the embedding is injective.
const SymbolSize = 31

// ElementSize is the canonical serialized width of a field element.
const ElementSize = fr.Bytes

var (
	ErrSymbolTooLarge = errors.New("field: symbol exceeds 31 bytes")
	ErrNonCanonical   = errors.New("field: non-canonical field element encoding")
	ErrElementTooWide = errors.New("field: element does not fit in a symbol")
	ErrShortEncoding  = errors.New("field: encoding is not 32 bytes")
)

// SymbolToElement embeds up to 31 little-endian bytes into a field element.
// The bytes occupy the least-significant positions; the top byte stays zero.
func SymbolToElement(sym []byte) (fr.Element, error) {
	var e fr.Element
	if len(sym) > SymbolSize {
		return e, fmt.Errorf("%w: got %d bytes", ErrSymbolTooLarge, len(sym))
	}
	var be [ElementSize]byte
	for i, b := range sym {
		be[ElementSize-1-i] = b
	}
	// 31 bytes are always below the modulus; SetBytes cannot reduce here.
	e.SetBytes(be[:])
	return e, nil
}

// ElementToSymbol recovers the 31 little-endian bytes of an element produced
// by SymbolToElement. Elements with a non-zero top byte do not fit.
func ElementToSymbol(e fr.Element) ([SymbolSize]byte, error) {
	var sym [SymbolSize]byte
	be := e.Bytes()
	if be[0] != 0 {
		return sym, ErrElementTooWide
	}
	for i := 0; i < SymbolSize; i++ {
		sym[i] = be[ElementSize-1-i]
	}
	return sym, nil
}

// ToBytesLE returns the canonical 32-byte little-endian encoding.
func ToBytesLE(e fr.Element) [ElementSize]byte {
	be := e.Bytes()
	var le [ElementSize]byte
	for i := 0; i < ElementSize; i++ {
		le[i] = be[ElementSize-1-i]
	}
	return le
}

// FromBytesLE decodes a canonical 32-byte little-endian encoding. Values at
// or above the field modulus are rejected rather than reduced.
func FromBytesLE(b []byte) (fr.Element, error) {
	var e fr.Element
	if len(b) != ElementSize {
		return e, fmt.Errorf("%w: got %d bytes", ErrShortEncoding, len(b))
	}
	var be [ElementSize]byte
	for i := 0; i < ElementSize; i++ {
		be[i] = b[ElementSize-1-i]
	}
	if err := e.SetBytesCanonical(be[:]); err != nil {
		return e, fmt.Errorf("%w: %v", ErrNonCanonical, err)
	}
	return e, nil
}

// FromUint64 lifts a machine integer into the field.
func FromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// Split partitions data into 31-byte symbols, zero-padding the final one.
// Empty input yields no symbols.
func Split(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	n := (len(data) + SymbolSize - 1) / SymbolSize
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		sym := make([]byte, SymbolSize)
		start := i * SymbolSize
		end := start + SymbolSize
		if end > len(data) {
			end = len(data)
		}
		copy(sym, data[start:end])
		out[i] = sym
	}
	return out
}

// NextPow2 returns the smallest power of two >= n, with NextPow2(0) == 1.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Depth returns log2 of a power-of-two leaf count.
func Depth(paddedLen int) int {
	if paddedLen <= 1 {
		return 0
	}
	return bits.TrailingZeros(uint(paddedLen))
}
