package component

import "github.com/dxengine/engine/internal/core/ecs"

// RenderState is one discrete pipeline state value. Its value is the bit
// index inside a render states hash.
type RenderState uint32

const (
	// fill
	FillSolid RenderState = iota
	FillWireframe

	// cull
	CullBack
	CullFront
	CullNone

	// front face winding
	FrontClockwise
	FrontCounterClockwise

	// blending
	NoColorWrite
	NoBlending
	AlphaEnable
	Adding
	Subtracting
	Multiplying
	Transparency

	// alpha clipping
	NoAlphaClipping
	AlphaClipping

	NumRenderStates
)

var renderStateNames = [...]string{
	FillSolid:             "fill_solid",
	FillWireframe:         "fill_wireframe",
	CullBack:              "cull_back",
	CullFront:             "cull_front",
	CullNone:              "cull_none",
	FrontClockwise:        "front_clockwise",
	FrontCounterClockwise: "front_counter_clockwise",
	NoColorWrite:          "no_color_write",
	NoBlending:            "no_blending",
	AlphaEnable:           "alpha_enable",
	Adding:                "adding",
	Subtracting:           "subtracting",
	Multiplying:           "multiplying",
	Transparency:          "transparency",
	NoAlphaClipping:       "no_alpha_clipping",
	AlphaClipping:         "alpha_clipping",
}

func (s RenderState) String() string {
	if s < NumRenderStates {
		return renderStateNames[s]
	}
	return "unknown"
}

// ParseRenderState maps a name produced by String back to its state.
func ParseRenderState(name string) (RenderState, bool) {
	for i, n := range renderStateNames {
		if n == name {
			return RenderState(i), true
		}
	}
	return 0, false
}

// RenderStates stores one packed hash per entity, one bit per RenderState.
type RenderStates struct {
	IDs    []ecs.EntityID
	Hashes []uint32
}
