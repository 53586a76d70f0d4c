// Package seed provides the deterministic seed source consumed once per
// sketch family, so repeated runs with the same master seed reproduce the
// same signatures while different families draw independent seeds.
package seed

import (
	"math/rand/v2"
	"sync"
)

// DefaultMaster is used when no master seed is configured.
const DefaultMaster uint64 = 1

const streamMix = 0xda942042e4dd58b5

// Generator hands out seeds in a fixed order. It is safe for concurrent use,
// but callers that need reproducibility must draw seeds in a fixed order.
type Generator struct {
	mu     sync.Mutex
	master uint64
	drawn  int
	rng    *rand.Rand
}

// NewGenerator returns a generator for master.
func NewGenerator(master uint64) *Generator {
	return &Generator{
		master: master,
		rng:    rand.New(rand.NewPCG(master, master^streamMix)),
	}
}

// Next returns the next seed.
func (g *Generator) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drawn++
	return g.rng.Uint64()
}

// Take returns the next n seeds.
func (g *Generator) Take(n int) []uint64 {
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = g.Next()
	}
	return seeds
}

// Master returns the master seed.
func (g *Generator) Master() uint64 { return g.master }

// Drawn reports how many seeds have been handed out.
func (g *Generator) Drawn() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drawn
}
