package component

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/dxengine/engine/internal/core/ecs"
)

type BoundingType uint32

const (
	BoundingSphere BoundingType = iota
	BoundingAABB
)

// Bounding stores a bounding volume per entity. For spheres only
// Extents[i].X() is meaningful (the radius).
type Bounding struct {
	IDs     []ecs.EntityID
	Types   []BoundingType
	Centers []mgl32.Vec3
	Extents []mgl32.Vec3
}
