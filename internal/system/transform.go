package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/scenefile"
)

// ComposeWorld builds the world matrix applying scale, then rotation, then
// translation to a point.
func ComposeWorld(pos mgl32.Vec3, q mgl32.Quat, scale float32) mgl32.Mat4 {
	return mgl32.Translate3D(pos[0], pos[1], pos[2]).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}

// TransformSystem owns the Transform and WorldMatrix components. Both
// components always hold the same ids, so a data index is valid for both.
type TransformSystem struct {
	transform *component.Transform
	world     *component.WorldMatrix
	log       *zap.Logger
}

func NewTransformSystem(t *component.Transform, w *component.WorldMatrix, log *zap.Logger) *TransformSystem {
	return &TransformSystem{transform: t, world: w, log: log}
}

func (s *TransformSystem) Len() int { return len(s.transform.IDs) }

// IDs returns the sorted ids. The slice must not be modified.
func (s *TransformSystem) IDs() []ecs.EntityID { return s.transform.IDs }

func (s *TransformSystem) Has(id ecs.EntityID) bool { return ecs.Contains(s.transform.IDs, id) }

// DataIdxs resolves ids to data indices.
func (s *TransformSystem) DataIdxs(ids []ecs.EntityID) ([]int, error) {
	return ecs.DataIdxs(s.transform.IDs, ids)
}

// AddRecords inserts one row per id at its sorted position. Quaternions are
// normalized before storing; the initial world matrix is built from the
// same data. Ids must not have a record yet.
func (s *TransformSystem) AddRecords(ids []ecs.EntityID, positions []mgl32.Vec3, dirQuats []mgl32.Quat, scales []float32) {
	t, w := s.transform, s.world
	for i, id := range ids {
		q := dirQuats[i].Normalize()
		p := positions[i]

		var pos int
		t.IDs, pos = ecs.InsertSorted(t.IDs, id)
		t.PosAndUniformScale = ecs.InsertAt(t.PosAndUniformScale, pos, p.Vec4(scales[i]))
		t.DirQuats = ecs.InsertAt(t.DirQuats, pos, q)

		w.IDs = ecs.InsertAt(w.IDs, pos, id)
		w.Worlds = ecs.InsertAt(w.Worlds, pos, ComposeWorld(p, q, scales[i]))
	}
}

// GetTransformDataOfEntts returns position, orientation and scale of each id.
func (s *TransformSystem) GetTransformDataOfEntts(ids []ecs.EntityID) ([]mgl32.Vec3, []mgl32.Quat, []float32, error) {
	idxs, err := s.DataIdxs(ids)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "transform data")
	}
	pos, dirs, scales := s.GetTransformDataByDataIdxs(idxs)
	return pos, dirs, scales, nil
}

func (s *TransformSystem) GetTransformDataByDataIdxs(idxs []int) ([]mgl32.Vec3, []mgl32.Quat, []float32) {
	pos := make([]mgl32.Vec3, len(idxs))
	dirs := make([]mgl32.Quat, len(idxs))
	scales := make([]float32, len(idxs))
	for i, idx := range idxs {
		ps := s.transform.PosAndUniformScale[idx]
		pos[i] = ps.Vec3()
		scales[i] = ps[3]
		dirs[i] = s.transform.DirQuats[idx]
	}
	return pos, dirs, scales
}

// SetTransformDataByIDs overwrites the transform of existing ids and
// rebuilds their world matrices.
func (s *TransformSystem) SetTransformDataByIDs(ids []ecs.EntityID, positions []mgl32.Vec3, dirQuats []mgl32.Quat, scales []float32) error {
	idxs, err := s.DataIdxs(ids)
	if err != nil {
		return eris.Wrap(err, "set transform data")
	}
	s.SetTransformDataByDataIdxs(idxs, positions, dirQuats, scales)
	return nil
}

func (s *TransformSystem) SetTransformDataByDataIdxs(idxs []int, positions []mgl32.Vec3, dirQuats []mgl32.Quat, scales []float32) {
	for i, idx := range idxs {
		s.setByIdx(idx, positions[i], dirQuats[i], scales[i])
	}
}

func (s *TransformSystem) setByIdx(idx int, p mgl32.Vec3, q mgl32.Quat, scale float32) {
	q = q.Normalize()
	s.transform.PosAndUniformScale[idx] = p.Vec4(scale)
	s.transform.DirQuats[idx] = q
	s.world.Worlds[idx] = ComposeWorld(p, q, scale)
}

func (s *TransformSystem) GetWorldMatrixOfEntt(id ecs.EntityID) (mgl32.Mat4, error) {
	idx := ecs.IndexOf(s.world.IDs, id)
	if idx < 0 {
		return mgl32.Mat4{}, eris.Wrapf(ecs.ErrNotFound, "world matrix of entity %d", id)
	}
	return s.world.Worlds[idx], nil
}

func (s *TransformSystem) GetWorldMatricesOfEntts(ids []ecs.EntityID) ([]mgl32.Mat4, error) {
	idxs, err := ecs.DataIdxs(s.world.IDs, ids)
	if err != nil {
		return nil, eris.Wrap(err, "world matrices")
	}
	return s.GetWorldMatricesByDataIdxs(idxs), nil
}

func (s *TransformSystem) GetWorldMatricesByDataIdxs(idxs []int) []mgl32.Mat4 {
	return ecs.Gather(s.world.Worlds, idxs)
}

// SetWorldMatricesByIDs overwrites world matrices without touching the
// transform. The next SetTransformData or movement update rebuilds them.
func (s *TransformSystem) SetWorldMatricesByIDs(ids []ecs.EntityID, worlds []mgl32.Mat4) error {
	idxs, err := ecs.DataIdxs(s.world.IDs, ids)
	if err != nil {
		return eris.Wrap(err, "set world matrices")
	}
	for i, idx := range idxs {
		s.world.Worlds[idx] = worlds[i]
	}
	return nil
}

// RemoveRecords deletes the rows of the given ids keeping the order.
func (s *TransformSystem) RemoveRecords(ids []ecs.EntityID) {
	t, w := s.transform, s.world
	for _, id := range ids {
		idx := ecs.IndexOf(t.IDs, id)
		if idx < 0 {
			continue
		}
		t.IDs = ecs.RemoveAt(t.IDs, idx)
		t.PosAndUniformScale = ecs.RemoveAt(t.PosAndUniformScale, idx)
		t.DirQuats = ecs.RemoveAt(t.DirQuats, idx)
		w.IDs = ecs.RemoveAt(w.IDs, idx)
		w.Worlds = ecs.RemoveAt(w.Worlds, idx)
	}
}

// Serialize writes [marker][count][ids][posAndScale][quats]. World
// matrices are not stored; Deserialize rebuilds them.
func (s *TransformSystem) Serialize(w *scenefile.Writer) {
	t := s.transform
	scenefile.MarkBlock(w, ecs.TransformComponent)
	writeIDs(w, t.IDs)
	for _, v := range t.PosAndUniformScale {
		w.WriteVec4(v)
	}
	for _, q := range t.DirQuats {
		w.WriteQuat(q)
	}
}

func (s *TransformSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.TransformComponent); err != nil {
		return err
	}
	n := r.ReadCount(36)
	ids := readIDs(r, n)
	ps := make([]mgl32.Vec4, n)
	for i := range ps {
		ps[i] = r.ReadVec4()
	}
	qs := make([]mgl32.Quat, n)
	for i := range qs {
		qs[i] = r.ReadQuat()
	}
	if err := r.Err(); err != nil {
		return eris.Wrap(err, "transform block")
	}
	if err := checkIDs(ids, "transform"); err != nil {
		return err
	}

	worlds := make([]mgl32.Mat4, n)
	for i := range worlds {
		worlds[i] = ComposeWorld(ps[i].Vec3(), qs[i], ps[i][3])
	}
	*s.transform = component.Transform{IDs: ids, PosAndUniformScale: ps, DirQuats: qs}
	*s.world = component.WorldMatrix{IDs: append([]ecs.EntityID(nil), ids...), Worlds: worlds}
	s.log.Debug("transform block loaded", zap.Int("count", n))
	return nil
}

// readIDs reads n entity ids.
func readIDs(r *scenefile.Reader, n int) []ecs.EntityID {
	ids := make([]ecs.EntityID, n)
	for i := range ids {
		ids[i] = ecs.EntityID(r.ReadU32())
	}
	return ids
}

func writeIDs(w *scenefile.Writer, ids []ecs.EntityID) {
	w.WriteCount(len(ids))
	for _, id := range ids {
		w.WriteU32(uint32(id))
	}
}

func checkIDs(ids []ecs.EntityID, block string) error {
	if !ecs.IsStrictlySorted(ids) {
		return eris.Wrapf(ecs.ErrCorruptData, "%s block: ids are not strictly ascending", block)
	}
	return nil
}
