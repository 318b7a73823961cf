package component

import "github.com/dxengine/engine/internal/core/ecs"

// TexID is an opaque handle into the renderer's texture storage.
type TexID uint32

// TexTypesCount is the number of texture slots per entity (diffuse,
// specular, normals and so on, in the renderer's fixed order).
const TexTypesCount = 22

// Textured holds entities that override the textures of their meshes.
type Textured struct {
	IDs      []ecs.EntityID
	TexIDs   [][TexTypesCount]TexID
	TexPaths [][TexTypesCount]string
}
