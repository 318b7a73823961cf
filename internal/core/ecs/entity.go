package ecs

import "math/rand"

// EntityID is a random 32-bit handle. Entities carry no data themselves,
// they are keys into the sorted component arrays.
type EntityID uint32

// InvalidEntityID is never handed out by an IDGenerator.
const InvalidEntityID EntityID = 0

// IDGenerator produces random entity ids that do not collide with a given
// sorted set of live ids.
type IDGenerator struct {
	rnd *rand.Rand
}

func NewIDGenerator(seed int64) *IDGenerator {
	return &IDGenerator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate returns n distinct non-zero ids, none of which is present in
// live (sorted ascending). The result is sorted ascending.
func (g *IDGenerator) Generate(live []EntityID, n int) []EntityID {
	out := make([]EntityID, 0, n)
	for len(out) < n {
		id := EntityID(g.rnd.Uint32())
		if id == InvalidEntityID || Contains(live, id) {
			continue
		}
		pos := UpperBound(out, id)
		if pos > 0 && out[pos-1] == id {
			continue // collision inside the batch, regenerate
		}
		out = InsertAt(out, pos, id)
	}
	return out
}
