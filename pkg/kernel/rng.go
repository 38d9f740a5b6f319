package kernel

import "math/rand"

// NewStepRNG derives a deterministic, step-seeded PRNG from a run seed and
// step number (spec.md §5: "the PRNG is a single step-seeded sequence from
// (run_seed, t) for bit-reproducible replays"). Distinct steps never share
// a seed, and the same (runSeed, t) pair always reproduces the same draws.
func NewStepRNG(runSeed int64, t int) *rand.Rand {
	seed := runSeed*1_000_003 + int64(t)
	return rand.New(rand.NewSource(seed))
}
