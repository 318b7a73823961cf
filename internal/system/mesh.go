package system

import (
	"maps"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/scenefile"
)

// MeshSystem maintains the entity/mesh bidirectional index. Every insert
// and removal updates both sides.
type MeshSystem struct {
	mesh *component.Mesh
	log  *zap.Logger
}

func NewMeshSystem(m *component.Mesh, log *zap.Logger) *MeshSystem {
	return &MeshSystem{mesh: m, log: log}
}

func (s *MeshSystem) Len() int { return len(s.mesh.EntityToMeshes) }

// AddRecords relates every mesh to every entity.
func (s *MeshSystem) AddRecords(ids []ecs.EntityID, meshIDs []component.MeshID) {
	m := s.mesh
	for _, id := range ids {
		list := m.EntityToMeshes[id]
		for _, meshID := range meshIDs {
			list = ecs.InsertUnique(list, meshID)
			m.MeshToEntities[meshID] = ecs.InsertUnique(m.MeshToEntities[meshID], id)
		}
		m.EntityToMeshes[id] = list
	}
}

// GetMeshesIDsRelatedToEntts groups ids by the meshes they use. The result
// has one group per mesh, meshes ascending and entities ascending inside
// a group; instancesPerMesh[i] is the size of group i. An entity that uses
// several meshes appears in each of their groups.
func (s *MeshSystem) GetMeshesIDsRelatedToEntts(ids []ecs.EntityID) (
	meshIDs []component.MeshID,
	enttsSortedByMeshes []ecs.EntityID,
	instancesPerMesh []int,
	err error,
) {
	groups := make(map[component.MeshID][]ecs.EntityID)
	for _, id := range ecs.SortedUnique(ids) {
		list, ok := s.mesh.EntityToMeshes[id]
		if !ok {
			return nil, nil, nil, eris.Wrapf(ecs.ErrNotFound, "mesh record of entity %d", id)
		}
		for _, meshID := range list {
			groups[meshID] = append(groups[meshID], id)
		}
	}

	meshIDs = slices.Sorted(maps.Keys(groups))
	instancesPerMesh = make([]int, len(meshIDs))
	for i, meshID := range meshIDs {
		enttsSortedByMeshes = append(enttsSortedByMeshes, groups[meshID]...)
		instancesPerMesh[i] = len(groups[meshID])
	}
	return meshIDs, enttsSortedByMeshes, instancesPerMesh, nil
}

// GetMeshesOfEntt returns the sorted meshes of one entity.
func (s *MeshSystem) GetMeshesOfEntt(id ecs.EntityID) ([]component.MeshID, error) {
	list, ok := s.mesh.EntityToMeshes[id]
	if !ok {
		return nil, eris.Wrapf(ecs.ErrNotFound, "mesh record of entity %d", id)
	}
	return slices.Clone(list), nil
}

// GetEnttsByMesh returns the sorted entities using meshID.
func (s *MeshSystem) GetEnttsByMesh(meshID component.MeshID) []ecs.EntityID {
	return slices.Clone(s.mesh.MeshToEntities[meshID])
}

// GetAllMeshesIDs returns every mesh with at least one entity, ascending.
func (s *MeshSystem) GetAllMeshesIDs() []component.MeshID {
	return slices.Sorted(maps.Keys(s.mesh.MeshToEntities))
}

// GetEnttsIDsFromMeshComponent returns every entity with a mesh record, ascending.
func (s *MeshSystem) GetEnttsIDsFromMeshComponent() []ecs.EntityID {
	return slices.Sorted(maps.Keys(s.mesh.EntityToMeshes))
}

// RemoveRecords unlinks the entities from all their meshes. Meshes left
// without entities are dropped from the index.
func (s *MeshSystem) RemoveRecords(ids []ecs.EntityID) {
	m := s.mesh
	for _, id := range ids {
		list, ok := m.EntityToMeshes[id]
		if !ok {
			continue
		}
		for _, meshID := range list {
			entts := ecs.RemoveSorted(m.MeshToEntities[meshID], id)
			if len(entts) == 0 {
				delete(m.MeshToEntities, meshID)
			} else {
				m.MeshToEntities[meshID] = entts
			}
		}
		delete(m.EntityToMeshes, id)
	}
}

// Serialize writes [marker][count] then per entity, ascending,
// [id][meshes count][mesh ids]. The reverse index is rebuilt on load.
func (s *MeshSystem) Serialize(w *scenefile.Writer) {
	scenefile.MarkBlock(w, ecs.MeshComponent)
	ids := s.GetEnttsIDsFromMeshComponent()
	w.WriteCount(len(ids))
	for _, id := range ids {
		list := s.mesh.EntityToMeshes[id]
		w.WriteU32(uint32(id))
		w.WriteCount(len(list))
		for _, meshID := range list {
			w.WriteU32(uint32(meshID))
		}
	}
}

func (s *MeshSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.MeshComponent); err != nil {
		return err
	}
	n := r.ReadCount(8)
	fresh := component.NewMesh()
	loaded := &MeshSystem{mesh: fresh, log: s.log}
	for i := 0; i < n; i++ {
		id := ecs.EntityID(r.ReadU32())
		k := r.ReadCount(4)
		meshIDs := make([]component.MeshID, k)
		for j := range meshIDs {
			meshIDs[j] = component.MeshID(r.ReadU32())
		}
		if r.Err() != nil {
			break
		}
		loaded.AddRecords([]ecs.EntityID{id}, meshIDs)
	}
	if err := r.Err(); err != nil {
		return eris.Wrap(err, "mesh block")
	}
	*s.mesh = *fresh
	return nil
}
