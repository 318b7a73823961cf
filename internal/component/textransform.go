package component

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/dxengine/engine/internal/core/ecs"
)

type TexTransformType uint32

const (
	TexTransformStatic TexTransformType = iota
	TexTransformAtlasAnimation
	TexTransformRotationAroundCoord
)

func (t TexTransformType) String() string {
	switch t {
	case TexTransformStatic:
		return "static"
	case TexTransformAtlasAnimation:
		return "atlas"
	case TexTransformRotationAroundCoord:
		return "rotation"
	}
	return "unknown"
}

// TexStaticTransforms scroll the texture by the translation of Updates,
// applied per second.
type TexStaticTransforms struct {
	IDs     []ecs.EntityID
	Updates []mgl32.Mat4
}

// AtlasAnimationData describes a rows x columns sprite sheet.
type AtlasAnimationData struct {
	CurrFrame   uint32
	FramesCount uint32
	Columns     uint32
	Rows        uint32
	CellWidth   float32 // 1 / Columns
	CellHeight  float32 // 1 / Rows
}

type TexAtlasAnimations struct {
	IDs            []ecs.EntityID
	FrameDurations []float32 // seconds per frame
	CurrFrameTimes []float32 // time spent in the current frame
	Data           []AtlasAnimationData
}

type TexRotations struct {
	IDs     []ecs.EntityID
	Centers []mgl32.Vec2 // pivot in texture space
	Speeds  []float32    // radians per second
}

// TextureTransform holds the current texture-space matrix of every entity
// plus one backing store per transform kind.
type TextureTransform struct {
	IDs        []ecs.EntityID
	Types      []TexTransformType
	Transforms []mgl32.Mat4

	Static    TexStaticTransforms
	Atlas     TexAtlasAnimations
	Rotations TexRotations
}

// TexTransformParams is the closed set of texture transform initializers.
type TexTransformParams interface {
	TransformType() TexTransformType
	Len() int
	texTransformParams()
}

type StaticTexTransformParams struct {
	InitTransforms   []mgl32.Mat4
	UpdateTransforms []mgl32.Mat4 // per second
}

type AtlasAnimParams struct {
	TexRows        []uint32
	TexColumns     []uint32
	FrameDurations []float32
}

type RotationAroundCoordParams struct {
	Centers []mgl32.Vec2
	Speeds  []float32
}

func (StaticTexTransformParams) TransformType() TexTransformType  { return TexTransformStatic }
func (AtlasAnimParams) TransformType() TexTransformType           { return TexTransformAtlasAnimation }
func (RotationAroundCoordParams) TransformType() TexTransformType { return TexTransformRotationAroundCoord }

func (p StaticTexTransformParams) Len() int  { return len(p.InitTransforms) }
func (p AtlasAnimParams) Len() int           { return len(p.TexRows) }
func (p RotationAroundCoordParams) Len() int { return len(p.Centers) }

func (StaticTexTransformParams) texTransformParams()  {}
func (AtlasAnimParams) texTransformParams()           {}
func (RotationAroundCoordParams) texTransformParams() {}
