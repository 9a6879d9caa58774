// wire.go implements the persisted ledger format: a versioned,
// length-prefixed entry list terminated by the aggregated-root digest.
// On load, the aggregated tree is recomputed and must match the stored
// digest.
//
// Layout, all integers little-endian:
//
//	magic(4)="KLDG" | version(2) | count(4) |
//	{ idLen(2) | id | root(32, canonical LE) | depth(4) } * count |
//	aggregatedRoot(32, canonical LE)
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/keepernet/keepernet/pkg/field"
)

const (
	// FormatVersion is the current on-disk ledger format version.
	FormatVersion uint16 = 1

	// maxEntries bounds the entry count a loader accepts.
	maxEntries = 1 << 20

	// maxFileIDLen bounds a single file-id.
	maxFileIDLen = 1024
)

var ledgerMagic = [4]byte{'K', 'L', 'D', 'G'}

var (
	ErrBadMagic       = errors.New("ledger: bad magic")
	ErrBadVersion     = errors.New("ledger: unsupported format version")
	ErrCorruptLedger  = errors.New("ledger: corrupt ledger stream")
	ErrDigestMismatch = errors.New("ledger: aggregated root digest mismatch")
)

// Save writes the ledger to w in the versioned wire format.
func (l *FileLedger) Save(w io.Writer) error {
	if l.tree == nil {
		return ErrEmptyLedger
	}

	var hdr [10]byte
	copy(hdr[:4], ledgerMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], FormatVersion)
	binary.LittleEndian.PutUint32(hdr[6:10], uint32(len(l.entries)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("ledger: write header: %w", err)
	}

	for _, e := range l.entries {
		var idLen [2]byte
		binary.LittleEndian.PutUint16(idLen[:], uint16(len(e.FileID)))
		if _, err := w.Write(idLen[:]); err != nil {
			return fmt.Errorf("ledger: write entry: %w", err)
		}
		if _, err := io.WriteString(w, e.FileID); err != nil {
			return fmt.Errorf("ledger: write entry: %w", err)
		}
		root := field.ToBytesLE(e.Root)
		if _, err := w.Write(root[:]); err != nil {
			return fmt.Errorf("ledger: write entry: %w", err)
		}
		var depth [4]byte
		binary.LittleEndian.PutUint32(depth[:], uint32(e.Depth))
		if _, err := w.Write(depth[:]); err != nil {
			return fmt.Errorf("ledger: write entry: %w", err)
		}
	}

	digest := field.ToBytesLE(l.tree.Root())
	if _, err := w.Write(digest[:]); err != nil {
		return fmt.Errorf("ledger: write digest: %w", err)
	}
	return nil
}

// Load reads a ledger from r, recomputes the aggregated tree, and verifies
// the stored digest.
func Load(r io.Reader) (*FileLedger, error) {
	var hdr [10]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorruptLedger, err)
	}
	if [4]byte(hdr[:4]) != ledgerMagic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	count := binary.LittleEndian.Uint32(hdr[6:10])
	if count == 0 || count > maxEntries {
		return nil, fmt.Errorf("%w: entry count %d", ErrCorruptLedger, count)
	}

	l := New()
	for i := uint32(0); i < count; i++ {
		var idLen [2]byte
		if _, err := io.ReadFull(r, idLen[:]); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptLedger, i, err)
		}
		n := binary.LittleEndian.Uint16(idLen[:])
		if n == 0 || n > maxFileIDLen {
			return nil, fmt.Errorf("%w: entry %d id length %d", ErrCorruptLedger, i, n)
		}
		id := make([]byte, n)
		if _, err := io.ReadFull(r, id); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptLedger, i, err)
		}
		var rootBuf [field.ElementSize]byte
		if _, err := io.ReadFull(r, rootBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptLedger, i, err)
		}
		root, err := field.FromBytesLE(rootBuf[:])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d root: %v", ErrCorruptLedger, i, err)
		}
		var depthBuf [4]byte
		if _, err := io.ReadFull(r, depthBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptLedger, i, err)
		}
		depth := binary.LittleEndian.Uint32(depthBuf[:])

		if err := l.Add(string(id), root, uint64(depth)); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptLedger, i, err)
		}
	}

	var digestBuf [field.ElementSize]byte
	if _, err := io.ReadFull(r, digestBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: digest: %v", ErrCorruptLedger, err)
	}
	stored, err := field.FromBytesLE(digestBuf[:])
	if err != nil {
		return nil, fmt.Errorf("%w: digest: %v", ErrCorruptLedger, err)
	}
	root, err := l.AggregatedRoot()
	if err != nil {
		return nil, err
	}
	if !root.Equal(&stored) {
		return nil, ErrDigestMismatch
	}

	// Reject trailing bytes.
	var one [1]byte
	if n, _ := r.Read(one[:]); n != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrCorruptLedger)
	}

	return l, nil
}
