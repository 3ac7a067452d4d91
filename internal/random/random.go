// Package random derives reproducible generators from a textual root seed so
// every subsystem draws from its own stream.
package random

import (
	"hash/fnv"
	"math"
	"math/rand"
)

const DefaultSeed = "colony"

// SeedValue hashes the root seed and a subsystem label into a non-zero seed.
func SeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func New(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(SeedValue(rootSeed, label)))
}

func Float(rng *rand.Rand) float64 {
	if rng == nil {
		return New(DefaultSeed, "fallback").Float64()
	}
	return rng.Float64()
}

func Angle(rng *rand.Rand) float64 {
	return Float(rng) * 2 * math.Pi
}

// Range returns a value in [min, max). A collapsed range yields min.
func Range(rng *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + Float(rng)*(max-min)
}

// IntRange returns an integer in [min, max].
func IntRange(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	if rng == nil {
		rng = New(DefaultSeed, "fallback")
	}
	return min + rng.Intn(max-min+1)
}
