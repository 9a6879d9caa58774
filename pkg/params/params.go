// Package params derives and caches the SNARK parameters for each circuit
// shape. Parameters are a pure function of the shape key (slots, file
// depth, ledger depth): the circuit compiles deterministically and the KZG
// SRS secret is derived from the shape key, so independent provers and
// verifiers obtain identical proving and verifying keys with no ceremony.
package params

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/blake2b"

	"github.com/keepernet/keepernet/pkg/circuit"
	"github.com/keepernet/keepernet/pkg/field"
	"github.com/keepernet/keepernet/pkg/log"
	"github.com/keepernet/keepernet/pkg/metrics"
)

// MaxCacheEntries bounds the process-wide parameter cache.
const MaxCacheEntries = 50

// srsLabel is the fixed domain label for SRS secret derivation.
const srsLabel = "keepernet/por/srs/v1"

// Shape is the circuit shape key (F, D_f, D_a).
type Shape struct {
	Slots       int
	FileDepth   int
	LedgerDepth int
}

func (s Shape) String() string {
	return fmt.Sprintf("F=%d/Df=%d/Da=%d", s.Slots, s.FileDepth, s.LedgerDepth)
}

// Arity returns the public vector length for this shape.
func (s Shape) Arity() int {
	return circuit.Layout{Slots: s.Slots}.Arity()
}

// DeriveShape computes the shape dimensions from a batch: F is the next
// power of two of the file count, the file depth is the maximum challenged
// depth (at least 1 so the circuit always folds one level).
func DeriveShape(numFiles, maxFileDepth, ledgerDepth int) Shape {
	fd := maxFileDepth
	if fd < 1 {
		fd = 1
	}
	return Shape{
		Slots:       field.NextPow2(numFiles),
		FileDepth:   fd,
		LedgerDepth: ledgerDepth,
	}
}

// Params holds everything needed to prove and verify one circuit shape.
type Params struct {
	Shape Shape
	CCS   constraint.ConstraintSystem
	PK    plonk.ProvingKey
	VK    plonk.VerifyingKey
}

var (
	cacheMu   sync.Mutex
	cacheOnce sync.Once
	cache     *lru.Cache

	genHist = metrics.NewHistogram("params.generate_ms")
	logger  = log.Default().Module("params")
)

// Get returns the parameters for shape, generating and caching them on the
// first request. Lookup and generation share one critical section so
// concurrent callers never generate the same shape twice.
func Get(shape Shape) (*Params, error) {
	cacheOnce.Do(func() {
		c, err := lru.New(MaxCacheEntries)
		if err != nil {
			// lru.New only fails for non-positive sizes.
			panic("params: cache init: " + err.Error())
		}
		cache = c
	})

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if v, ok := cache.Get(shape); ok {
		return v.(*Params), nil
	}

	p, err := Generate(shape)
	if err != nil {
		return nil, err
	}
	cache.Add(shape, p)
	return p, nil
}

// Generate compiles the shape's step circuit and runs the deterministic
// PLONK setup over the shape-derived SRS.
func Generate(shape Shape) (*Params, error) {
	timer := metrics.NewTimer(genHist)
	logger.Info("generating parameters", "shape", shape.String())

	placeholder := circuit.New(shape.Slots, shape.FileDepth, shape.LedgerDepth)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, placeholder)
	if err != nil {
		return nil, fmt.Errorf("params: compile %s: %w", shape, err)
	}

	srs, srsLagrange, err := deriveSRS(shape, ccs)
	if err != nil {
		return nil, err
	}

	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return nil, fmt.Errorf("params: setup %s: %w", shape, err)
	}

	d := timer.Stop()
	logger.Info("parameters ready",
		"shape", shape.String(),
		"constraints", ccs.GetNbConstraints(),
		"elapsed_ms", d.Milliseconds())

	return &Params{Shape: shape, CCS: ccs, PK: pk, VK: vk}, nil
}

// deriveSRS builds the canonical and Lagrange KZG SRS for the constraint
// system, with the secret derived from the shape key. The derived secret is
// public by construction; soundness of the scheme rests on the recursive
// statement, not on SRS secrecy, which is what "no trusted setup" means
// here.
func deriveSRS(shape Shape, ccs constraint.ConstraintSystem) (*kzg.SRS, *kzg.SRS, error) {
	sizeSystem := ccs.GetNbConstraints() + ccs.GetNbPublicVariables()
	sizeLagrange := field.NextPow2(sizeSystem)
	sizeCanonical := sizeLagrange + 3

	tau := deriveTau(shape)
	srs, err := kzg.NewSRS(uint64(sizeCanonical), tau)
	if err != nil {
		return nil, nil, fmt.Errorf("params: srs %s: %w", shape, err)
	}

	lagrangeG1, err := kzg.ToLagrangeG1(srs.Pk.G1[:sizeLagrange])
	if err != nil {
		return nil, nil, fmt.Errorf("params: lagrange srs %s: %w", shape, err)
	}
	srsLagrange := &kzg.SRS{
		Pk: kzg.ProvingKey{G1: lagrangeG1},
		Vk: srs.Vk,
	}

	return srs, srsLagrange, nil
}

// deriveTau maps the shape key into a field scalar, excluding 0 and 1.
func deriveTau(shape Shape) *big.Int {
	seed := fmt.Sprintf("%s|slots=%d|fileDepth=%d|ledgerDepth=%d",
		srsLabel, shape.Slots, shape.FileDepth, shape.LedgerDepth)
	digest := blake2b.Sum256([]byte(seed))

	tau := new(big.Int).SetBytes(digest[:])
	rMinusTwo := new(big.Int).Sub(fr.Modulus(), big.NewInt(2))
	tau.Mod(tau, rMinusTwo)
	tau.Add(tau, big.NewInt(2))
	return tau
}

// CacheLen reports the number of cached parameter sets.
func CacheLen() int {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cache == nil {
		return 0
	}
	return cache.Len()
}
