package ecs

import "strings"

// ComponentType is both the bit index inside ComponentFlags and the block
// marker used by the scene file for that component.
type ComponentType uint8

const (
	TransformComponent ComponentType = iota
	NameComponent
	MoveComponent
	MeshComponent
	RenderedComponent
	WorldMatrixComponent
	TexturedComponent
	TextureTransformComponent
	LightComponent
	RenderStatesComponent
	BoundingComponent

	numComponentTypes
)

// MaxComponentTypes is the capacity of ComponentFlags.
const MaxComponentTypes = 64

// NumComponentTypes is the number of component kinds currently defined.
const NumComponentTypes = int(numComponentTypes)

var componentNames = [...]string{
	TransformComponent:        "Transform",
	NameComponent:             "Name",
	MoveComponent:             "Move",
	MeshComponent:             "Mesh",
	RenderedComponent:         "Rendered",
	WorldMatrixComponent:      "WorldMatrix",
	TexturedComponent:         "Textured",
	TextureTransformComponent: "TextureTransform",
	LightComponent:            "Light",
	RenderStatesComponent:     "RenderStates",
	BoundingComponent:         "Bounding",
}

func (ct ComponentType) String() string {
	if ct.Valid() {
		return componentNames[ct]
	}
	return "Unknown"
}

func (ct ComponentType) Valid() bool { return ct < numComponentTypes }

// Bit returns the single-bit flag of ct.
func (ct ComponentType) Bit() ComponentFlags { return ComponentFlags(1) << ct }

// ComponentFlags records which components an entity has, one bit per type.
type ComponentFlags uint64

// FlagsOf builds the AND-mask for a set of component types.
func FlagsOf(types ...ComponentType) ComponentFlags {
	var f ComponentFlags
	for _, ct := range types {
		f |= ct.Bit()
	}
	return f
}

func (f ComponentFlags) Has(ct ComponentType) bool { return f&ct.Bit() != 0 }

// HasAll reports whether every bit of mask is set in f.
func (f ComponentFlags) HasAll(mask ComponentFlags) bool { return f&mask == mask }

func (f ComponentFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for ct := ComponentType(0); ct < numComponentTypes; ct++ {
		if f.Has(ct) {
			parts = append(parts, ct.String())
		}
	}
	return strings.Join(parts, "|")
}
