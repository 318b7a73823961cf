package component

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/dxengine/engine/internal/core/ecs"
)

// Transform stores position, uniform scale and orientation.
// Pure data, all mutations happen in the transform system.
type Transform struct {
	IDs                []ecs.EntityID
	PosAndUniformScale []mgl32.Vec4 // xyz = position, w = uniform scale
	DirQuats           []mgl32.Quat // unit length
}

// WorldMatrix stores the composed scale, rotation, translation matrix.
type WorldMatrix struct {
	IDs    []ecs.EntityID
	Worlds []mgl32.Mat4
}

// Movement stores per-entity motion applied every frame.
type Movement struct {
	IDs                     []ecs.EntityID
	TranslationAndUniScales []mgl32.Vec4 // xyz = translation per second, w = scale factor per second
	RotationQuats           []mgl32.Quat // rotation delta per frame, unit length
}
