package field

import (
	"bytes"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func TestSymbolRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		sym  []byte
	}{
		{"zeros", make([]byte, SymbolSize)},
		{"ascending", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31}},
		{"all ff", bytes.Repeat([]byte{0xff}, SymbolSize)},
		{"short", []byte("hello")},
	}
	for _, tt := range tests {
		e, err := SymbolToElement(tt.sym)
		if err != nil {
			t.Fatalf("%s: SymbolToElement: %v", tt.name, err)
		}
		back, err := ElementToSymbol(e)
		if err != nil {
			t.Fatalf("%s: ElementToSymbol: %v", tt.name, err)
		}
		want := make([]byte, SymbolSize)
		copy(want, tt.sym)
		if !bytes.Equal(back[:], want) {
			t.Fatalf("%s: round trip mismatch: got %x want %x", tt.name, back, want)
		}
	}
}

func TestSymbolTooLarge(t *testing.T) {
	if _, err := SymbolToElement(make([]byte, SymbolSize+1)); err == nil {
		t.Fatal("expected error for 32-byte symbol")
	}
}

func TestSymbolInjective(t *testing.T) {
	a := make([]byte, SymbolSize)
	b := make([]byte, SymbolSize)
	b[30] = 1
	ea, _ := SymbolToElement(a)
	eb, _ := SymbolToElement(b)
	if ea.Equal(&eb) {
		t.Fatal("distinct symbols mapped to the same element")
	}
}

func TestBytesLERoundTrip(t *testing.T) {
	var e fr.Element
	e.SetUint64(0xdeadbeef)
	le := ToBytesLE(e)
	back, err := FromBytesLE(le[:])
	if err != nil {
		t.Fatalf("FromBytesLE: %v", err)
	}
	if !back.Equal(&e) {
		t.Fatal("LE round trip mismatch")
	}
	// Low byte first.
	if le[0] != 0xef {
		t.Fatalf("expected little-endian layout, got first byte %#x", le[0])
	}
}

func TestFromBytesLERejectsNonCanonical(t *testing.T) {
	// The modulus itself is not a canonical encoding.
	mod := fr.Modulus().Bytes() // big-endian
	le := make([]byte, ElementSize)
	for i, b := range mod {
		le[len(mod)-1-i] = b
	}
	if _, err := FromBytesLE(le); err == nil {
		t.Fatal("expected rejection of modulus encoding")
	}

	all := bytes.Repeat([]byte{0xff}, ElementSize)
	if _, err := FromBytesLE(all); err == nil {
		t.Fatal("expected rejection of all-ones encoding")
	}
}

func TestFromBytesLEWrongLength(t *testing.T) {
	if _, err := FromBytesLE(make([]byte, 31)); err == nil {
		t.Fatal("expected rejection of short encoding")
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		symbols  int
		lastByte byte
	}{
		{"one byte", 1, 1, 0},
		{"exactly one symbol", SymbolSize, 1, 0},
		{"one over", SymbolSize + 1, 2, 0},
		{"several", 100, 4, 0},
	}
	for _, tt := range tests {
		data := bytes.Repeat([]byte{0xab}, tt.size)
		syms := Split(data)
		if len(syms) != tt.symbols {
			t.Fatalf("%s: got %d symbols, want %d", tt.name, len(syms), tt.symbols)
		}
		for i, s := range syms {
			if len(s) != SymbolSize {
				t.Fatalf("%s: symbol %d has %d bytes", tt.name, i, len(s))
			}
		}
	}
	if Split(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestNextPow2(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {255, 256}, {256, 256}, {257, 512},
	}
	for _, tt := range tests {
		if got := NextPow2(tt.in); got != tt.want {
			t.Fatalf("NextPow2(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDepth(t *testing.T) {
	tests := []struct{ in, want int }{
		{1, 0}, {2, 1}, {4, 2}, {256, 8}, {1024, 10},
	}
	for _, tt := range tests {
		if got := Depth(tt.in); got != tt.want {
			t.Fatalf("Depth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
