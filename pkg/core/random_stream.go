package core

import (
	"math/rand/v2"
)

// RandomStream is a seedable, splittable source of uniform samples.
// It satisfies Sampler and is owned by exactly one goroutine at a time.
type RandomStream struct {
	pcg    *rand.PCG
	random *rand.Rand
}

// NewRandomStream creates a stream from a 64-bit seed
func NewRandomStream(seed uint64) *RandomStream {
	pcg := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &RandomStream{pcg: pcg, random: rand.New(pcg)}
}

// Seed rewinds the stream to the state derived from seed
func (r *RandomStream) Seed(seed uint64) {
	r.pcg.Seed(seed, seed^0x9e3779b97f4a7c15)
}

// Split draws a fresh seed from this stream and returns an independent stream
func (r *RandomStream) Split() *RandomStream {
	return NewRandomStream(r.random.Uint64())
}

// Uint64 returns a raw 64-bit value, mostly used to derive child seeds
func (r *RandomStream) Uint64() uint64 {
	return r.random.Uint64()
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomStream) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomStream) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// Get3D returns three random float64 values in [0, 1)
func (r *RandomStream) Get3D() Vec3 {
	return NewVec3(r.random.Float64(), r.random.Float64(), r.random.Float64())
}

// MixSeed combines a master seed with an index into a well-distributed seed (splitmix64)
func MixSeed(seed uint64, index uint64) uint64 {
	z := seed + (index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
