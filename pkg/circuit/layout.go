// layout.go centralizes the public-IO vector layout of the step circuit so
// index arithmetic lives in exactly one place.
//
// Layout of z (arity 2 + 4F):
//
//	[0]                     aggregated root (file root when single-file)
//	[1]                     state_in
//	[2        .. 2+F-1]     ledger indices
//	[2+F      .. 2+2F-1]    public depths (0 marks a padding slot)
//	[2+2F     .. 2+3F-1]    seeds
//	[2+3F     .. 2+4F-1]    challenged leaves (0 in z0, filled per step)
package circuit

// Layout resolves offsets into the public IO vector for F file slots.
type Layout struct {
	Slots int
}

// Arity returns the public vector length 2 + 4F.
func (l Layout) Arity() int { return 2 + 4*l.Slots }

// AggRoot returns the aggregated-root offset.
func (l Layout) AggRoot() int { return 0 }

// StateIn returns the state offset.
func (l Layout) StateIn() int { return 1 }

// LedgerIndex returns the offset of slot f's ledger index.
func (l Layout) LedgerIndex(f int) int { return 2 + f }

// Depth returns the offset of slot f's public depth.
func (l Layout) Depth(f int) int { return 2 + l.Slots + f }

// Seed returns the offset of slot f's seed.
func (l Layout) Seed(f int) int { return 2 + 2*l.Slots + f }

// Leaf returns the offset of slot f's challenged leaf.
func (l Layout) Leaf(f int) int { return 2 + 3*l.Slots + f }
