// Package ledger maintains the canonical registry of committed files: an
// ordered mapping file_id -> (root, depth) with an aggregated Poseidon
// Merkle tree over the root commitments rc_i = H(TagRC, root_i, depth_i).
//
// Entry order is ascending file_id, which makes the aggregated root a pure
// function of the entry set regardless of insertion order. The tree is
// rebuilt on every mutation; verifiers freeze a Snapshot for the duration
// of a proof.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/keepernet/keepernet/pkg/merkle"
	"github.com/keepernet/keepernet/pkg/poseidon"
)

var (
	ErrDuplicateFile = errors.New("ledger: duplicate file")
	ErrEmptyFileID   = errors.New("ledger: empty file id")
	ErrFileNotFound  = errors.New("ledger: file not in ledger")
	ErrEmptyLedger   = errors.New("ledger: no entries")
)

// Entry is one committed file.
type Entry struct {
	FileID string
	Root   fr.Element
	Depth  uint64
}

// FileLedger is the ordered file registry. Not safe for concurrent
// mutation; callers hold it immutable for the duration of a prove or
// verify call (or use Snapshot).
type FileLedger struct {
	entries []Entry // ascending FileID
	tree    *merkle.Tree
}

// New returns an empty ledger.
func New() *FileLedger {
	return &FileLedger{}
}

// Len returns the number of entries.
func (l *FileLedger) Len() int { return len(l.entries) }

// Add inserts (fileID, root, depth) keeping canonical order. Duplicate IDs
// are rejected.
func (l *FileLedger) Add(fileID string, root fr.Element, depth uint64) error {
	if fileID == "" {
		return ErrEmptyFileID
	}
	pos := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].FileID >= fileID
	})
	if pos < len(l.entries) && l.entries[pos].FileID == fileID {
		return fmt.Errorf("%w: %s", ErrDuplicateFile, fileID)
	}

	l.entries = append(l.entries, Entry{})
	copy(l.entries[pos+1:], l.entries[pos:])
	l.entries[pos] = Entry{FileID: fileID, Root: root, Depth: depth}

	return l.rebuild()
}

// rebuild recomputes the aggregated tree over the rc leaves.
func (l *FileLedger) rebuild() error {
	leaves := make([]fr.Element, len(l.entries))
	for i, e := range l.entries {
		leaves[i] = poseidon.RootCommitment(e.Root, e.Depth)
	}
	t, err := merkle.Build(leaves)
	if err != nil {
		return fmt.Errorf("ledger: aggregated tree: %w", err)
	}
	l.tree = t
	return nil
}

// IndexOf returns the canonical position of fileID.
func (l *FileLedger) IndexOf(fileID string) (int, error) {
	pos := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].FileID >= fileID
	})
	if pos == len(l.entries) || l.entries[pos].FileID != fileID {
		return 0, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}
	return pos, nil
}

// Get returns the entry for fileID.
func (l *FileLedger) Get(fileID string) (Entry, error) {
	pos, err := l.IndexOf(fileID)
	if err != nil {
		return Entry{}, err
	}
	return l.entries[pos], nil
}

// At returns the entry at canonical position i.
func (l *FileLedger) At(i int) (Entry, error) {
	if i < 0 || i >= len(l.entries) {
		return Entry{}, fmt.Errorf("ledger: index %d out of range", i)
	}
	return l.entries[i], nil
}

// RCAt returns the root commitment leaf at canonical position i.
func (l *FileLedger) RCAt(i int) (fr.Element, error) {
	e, err := l.At(i)
	if err != nil {
		return fr.Element{}, err
	}
	return poseidon.RootCommitment(e.Root, e.Depth), nil
}

// AggregatedRoot returns the root of the aggregated tree.
func (l *FileLedger) AggregatedRoot() (fr.Element, error) {
	if l.tree == nil {
		return fr.Element{}, ErrEmptyLedger
	}
	return l.tree.Root(), nil
}

// Depth returns the aggregated tree depth: ceil(log2(entries)), 0 for a
// single entry.
func (l *FileLedger) Depth() (int, error) {
	if l.tree == nil {
		return 0, ErrEmptyLedger
	}
	return l.tree.Depth(), nil
}

// AggregationPath returns the aggregated-tree siblings for fileID's rc leaf.
func (l *FileLedger) AggregationPath(fileID string) ([]fr.Element, error) {
	pos, err := l.IndexOf(fileID)
	if err != nil {
		return nil, err
	}
	return l.tree.Path(uint64(pos))
}

// Snapshot returns a deep copy that stays stable while the original mutates.
func (l *FileLedger) Snapshot() *FileLedger {
	cp := &FileLedger{entries: make([]Entry, len(l.entries))}
	copy(cp.entries, l.entries)
	if len(cp.entries) > 0 {
		// Entries are already canonical; rebuild cannot fail.
		if err := cp.rebuild(); err != nil {
			panic("ledger: snapshot rebuild: " + err.Error())
		}
	}
	return cp
}

// Entries returns the entries in canonical order (shared backing array;
// callers must not mutate).
func (l *FileLedger) Entries() []Entry { return l.entries }
