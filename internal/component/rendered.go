package component

import "github.com/dxengine/engine/internal/core/ecs"

// ShaderType selects one of the renderer's shader families.
type ShaderType uint32

const (
	ShaderColor ShaderType = iota
	ShaderTexture
	ShaderLight
)

func (s ShaderType) String() string {
	switch s {
	case ShaderColor:
		return "color"
	case ShaderTexture:
		return "texture"
	case ShaderLight:
		return "light"
	}
	return "unknown"
}

// PrimitiveTopology uses the Direct3D numeric values.
type PrimitiveTopology uint32

const (
	TopologyUndefined     PrimitiveTopology = 0
	TopologyPointList     PrimitiveTopology = 1
	TopologyLineList      PrimitiveTopology = 2
	TopologyLineStrip     PrimitiveTopology = 3
	TopologyTriangleList  PrimitiveTopology = 4
	TopologyTriangleStrip PrimitiveTopology = 5
)

// Rendered marks entities the renderer should draw. VisibleIDs is rebuilt
// every frame by the culling pass.
type Rendered struct {
	IDs         []ecs.EntityID
	ShaderTypes []ShaderType
	Topologies  []PrimitiveTopology
	VisibleIDs  []ecs.EntityID
}
