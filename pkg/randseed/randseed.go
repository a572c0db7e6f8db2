// Package randseed derives deterministic per-unit random seeds from a
// single caller-supplied seed, so a surrogate ensemble, a seasonal
// orchestration, or a power-analysis run is fully reproducible while
// still giving each season/surrogate/replicate an independent stream.
package randseed

import (
	"hash/fnv"
	"math/rand"
	"strconv"
)

// Derive combines a caller seed with an integer unit index (a surrogate
// index, a season index, a replicate index) into a new deterministic
// seed via FNV-1a over their decimal text, so derivation is stable
// across platforms and Go versions.
func Derive(callerSeed int64, unit int) int64 {
	h := fnv.New64a()
	h.Write([]byte(strconv.FormatInt(callerSeed, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(unit)))
	return int64(h.Sum64())
}

// DeriveRNG is a convenience wrapper returning a *rand.Rand seeded with
// Derive(callerSeed, unit).
func DeriveRNG(callerSeed int64, unit int) *rand.Rand {
	return rand.New(rand.NewSource(Derive(callerSeed, unit)))
}

// DeriveNested combines a caller seed with two indices (e.g. slope then
// simulation), used by the power analysis's per-slope, per-simulation
// seeds.
func DeriveNested(callerSeed int64, outer, inner int) int64 {
	return Derive(Derive(callerSeed, outer), inner)
}
