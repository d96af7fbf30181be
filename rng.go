package netsim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey uniquely identifies a reproducible simulation run. Two
// simulations with the same SimulationKey and identical configuration MUST
// produce bit-for-bit identical results (§5: "all shuffles must use the
// engine RNG and never wall-clock time").
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Subsystem name constants. Each names an independent RNG stream so that,
// e.g., adding a new allocator iteration does not perturb routing tie-breaks.
const (
	SubsystemArbitration = "arbitration"
	SubsystemRouting     = "routing"
	SubsystemAllocator   = "allocator"
	SubsystemReception   = "reception"
)

// PartitionedRNG provides deterministic, isolated RNG instances per
// subsystem.
//
// Derivation formula:
//   - For SubsystemArbitration: uses masterSeed directly (it is the
//     historically primary stream, kept for seed-stability).
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. The engine is single-threaded (§5); no
// lock discipline is required or provided.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same subsystem name always returns the same *rand.Rand
// instance (cached). Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemArbitration {
		derivedSeed = int64(p.key)
	} else {
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// ShufflePermutation returns a uniform-at-random permutation of [0,n) drawn
// from rng. Used by arbitration (§4.F step 4) and any policy requiring a
// random tie-break; never uses wall-clock time.
func ShufflePermutation(rng *rand.Rand, n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	return perm
}
