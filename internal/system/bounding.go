package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/scenefile"
)

// BoundingSystem stores local-space bounding volumes used by culling.
type BoundingSystem struct {
	bounding *component.Bounding
	log      *zap.Logger
}

func NewBoundingSystem(b *component.Bounding, log *zap.Logger) *BoundingSystem {
	return &BoundingSystem{bounding: b, log: log}
}

func (s *BoundingSystem) Len() int { return len(s.bounding.IDs) }

// IDs returns the sorted ids. The slice must not be modified.
func (s *BoundingSystem) IDs() []ecs.EntityID { return s.bounding.IDs }

func (s *BoundingSystem) AddRecords(ids []ecs.EntityID, types []component.BoundingType, centers, extents []mgl32.Vec3) {
	b := s.bounding
	for i, id := range ids {
		var pos int
		b.IDs, pos = ecs.InsertSorted(b.IDs, id)
		b.Types = ecs.InsertAt(b.Types, pos, types[i])
		b.Centers = ecs.InsertAt(b.Centers, pos, centers[i])
		b.Extents = ecs.InsertAt(b.Extents, pos, extents[i])
	}
}

func (s *BoundingSystem) GetBoundingData(ids []ecs.EntityID) ([]component.BoundingType, []mgl32.Vec3, []mgl32.Vec3, error) {
	idxs, err := ecs.DataIdxs(s.bounding.IDs, ids)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "bounding data")
	}
	b := s.bounding
	return ecs.Gather(b.Types, idxs), ecs.Gather(b.Centers, idxs), ecs.Gather(b.Extents, idxs), nil
}

// RemoveRecords deletes the rows of the given ids keeping the order.
func (s *BoundingSystem) RemoveRecords(ids []ecs.EntityID) {
	b := s.bounding
	for _, id := range ids {
		idx := ecs.IndexOf(b.IDs, id)
		if idx < 0 {
			continue
		}
		b.IDs = ecs.RemoveAt(b.IDs, idx)
		b.Types = ecs.RemoveAt(b.Types, idx)
		b.Centers = ecs.RemoveAt(b.Centers, idx)
		b.Extents = ecs.RemoveAt(b.Extents, idx)
	}
}

// Serialize writes [marker][count][ids][types][centers][extents].
func (s *BoundingSystem) Serialize(w *scenefile.Writer) {
	b := s.bounding
	scenefile.MarkBlock(w, ecs.BoundingComponent)
	writeIDs(w, b.IDs)
	for _, t := range b.Types {
		w.WriteU32(uint32(t))
	}
	for _, c := range b.Centers {
		w.WriteVec3(c)
	}
	for _, e := range b.Extents {
		w.WriteVec3(e)
	}
}

func (s *BoundingSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.BoundingComponent); err != nil {
		return err
	}
	n := r.ReadCount(32)
	ids := readIDs(r, n)
	types := make([]component.BoundingType, n)
	for i := range types {
		types[i] = component.BoundingType(r.ReadU32())
	}
	centers := make([]mgl32.Vec3, n)
	for i := range centers {
		centers[i] = r.ReadVec3()
	}
	extents := make([]mgl32.Vec3, n)
	for i := range extents {
		extents[i] = r.ReadVec3()
	}
	if err := r.Err(); err != nil {
		return eris.Wrap(err, "bounding block")
	}
	if err := checkIDs(ids, "bounding"); err != nil {
		return err
	}
	*s.bounding = component.Bounding{IDs: ids, Types: types, Centers: centers, Extents: extents}
	return nil
}
