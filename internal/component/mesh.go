package component

import "github.com/dxengine/engine/internal/core/ecs"

// MeshID is an opaque handle into the renderer's mesh storage.
type MeshID uint32

// Mesh is a bidirectional index between entities and meshes. Every value
// slice is sorted ascending without duplicates.
type Mesh struct {
	EntityToMeshes map[ecs.EntityID][]MeshID
	MeshToEntities map[MeshID][]ecs.EntityID
}

func NewMesh() *Mesh {
	return &Mesh{
		EntityToMeshes: make(map[ecs.EntityID][]MeshID, 64),
		MeshToEntities: make(map[MeshID][]ecs.EntityID, 16),
	}
}
