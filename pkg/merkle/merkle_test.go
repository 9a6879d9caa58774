package merkle

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func elems(vals ...uint64) []fr.Element {
	out := make([]fr.Element, len(vals))
	for i, v := range vals {
		out[i].SetUint64(v)
	}
	return out
}

func TestBuildPadsToPowerOfTwo(t *testing.T) {
	tests := []struct {
		leaves int
		count  int
		depth  int
	}{
		{1, 1, 0},
		{2, 2, 1},
		{3, 4, 2},
		{5, 8, 3},
		{255, 256, 8},
	}
	for _, tt := range tests {
		leaves := make([]fr.Element, tt.leaves)
		for i := range leaves {
			leaves[i].SetUint64(uint64(i + 1))
		}
		tree, err := Build(leaves)
		if err != nil {
			t.Fatalf("Build(%d): %v", tt.leaves, err)
		}
		if tree.LeafCount() != tt.count {
			t.Fatalf("LeafCount = %d, want %d", tree.LeafCount(), tt.count)
		}
		if tree.Depth() != tt.depth {
			t.Fatalf("Depth = %d, want %d", tree.Depth(), tt.depth)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	if _, err := Build(nil); err == nil {
		t.Fatal("expected error for empty leaves")
	}
}

func TestPathVerifies(t *testing.T) {
	leaves := elems(10, 20, 30, 40, 50)
	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := uint64(0); i < uint64(tree.LeafCount()); i++ {
		leaf, err := tree.Leaf(i)
		if err != nil {
			t.Fatalf("Leaf(%d): %v", i, err)
		}
		path, err := tree.Path(i)
		if err != nil {
			t.Fatalf("Path(%d): %v", i, err)
		}
		if len(path) != tree.Depth() {
			t.Fatalf("path length %d, want %d", len(path), tree.Depth())
		}
		if !VerifyPath(tree.Root(), leaf, i, path) {
			t.Fatalf("valid path for leaf %d rejected", i)
		}
	}
}

func TestTamperedLeafFails(t *testing.T) {
	leaves := elems(1, 2, 3, 4)
	tree, _ := Build(leaves)
	path, _ := tree.Path(2)

	var wrong fr.Element
	wrong.SetUint64(99)
	if VerifyPath(tree.Root(), wrong, 2, path) {
		t.Fatal("tampered leaf accepted")
	}
}

func TestTamperedSiblingFails(t *testing.T) {
	leaves := elems(1, 2, 3, 4, 5, 6, 7, 8)
	tree, _ := Build(leaves)

	for level := 0; level < tree.Depth(); level++ {
		leaf, _ := tree.Leaf(5)
		path, _ := tree.Path(5)
		var one fr.Element
		one.SetOne()
		path[level].Add(&path[level], &one)
		if VerifyPath(tree.Root(), leaf, 5, path) {
			t.Fatalf("tampered sibling at level %d accepted", level)
		}
	}
}

func TestWrongIndexFails(t *testing.T) {
	leaves := elems(1, 2, 3, 4)
	tree, _ := Build(leaves)
	leaf, _ := tree.Leaf(1)
	path, _ := tree.Path(1)
	if VerifyPath(tree.Root(), leaf, 2, path) {
		t.Fatal("path accepted at the wrong index")
	}
}

func TestIndexOutOfRange(t *testing.T) {
	tree, _ := Build(elems(1, 2))
	if _, err := tree.Path(2); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if _, err := tree.Leaf(7); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if VerifyPath(tree.Root(), fr.Element{}, 4, make([]fr.Element, 1)) {
		t.Fatal("index beyond depth accepted")
	}
}

func TestPaddedPath(t *testing.T) {
	tree, _ := Build(elems(1, 2, 3, 4)) // depth 2
	path, err := tree.PaddedPath(1, 5)
	if err != nil {
		t.Fatalf("PaddedPath: %v", err)
	}
	if len(path) != 5 {
		t.Fatalf("padded path length %d, want 5", len(path))
	}
	for i := 2; i < 5; i++ {
		if !path[i].IsZero() {
			t.Fatalf("padding sibling %d not zero", i)
		}
	}
	if _, err := tree.PaddedPath(1, 1); err == nil {
		t.Fatal("expected error for pad depth below tree depth")
	}
}

func TestDeterministicRoot(t *testing.T) {
	a, _ := Build(elems(9, 8, 7))
	b, _ := Build(elems(9, 8, 7))
	ra, rb := a.Root(), b.Root()
	if !ra.Equal(&rb) {
		t.Fatal("same leaves produced different roots")
	}
}
