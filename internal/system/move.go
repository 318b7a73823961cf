package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/scenefile"
	coresys "github.com/dxengine/engine/internal/core/system"
)

// MoveSystem applies Movement to the transforms of moving entities.
// Phase 1 (Move).
type MoveSystem struct {
	movement   *component.Movement
	transforms *TransformSystem
	log        *zap.Logger
}

func NewMoveSystem(m *component.Movement, transforms *TransformSystem, log *zap.Logger) *MoveSystem {
	return &MoveSystem{movement: m, transforms: transforms, log: log}
}

func (s *MoveSystem) Phase() coresys.Phase { return coresys.PhaseMove }

func (s *MoveSystem) Update(_, deltaTime float32) {
	s.UpdateAllMoves(deltaTime)
}

func (s *MoveSystem) Len() int { return len(s.movement.IDs) }

// IDs returns the sorted ids. The slice must not be modified.
func (s *MoveSystem) IDs() []ecs.EntityID { return s.movement.IDs }

// AddRecords inserts movement rows. Rotation deltas are normalized.
func (s *MoveSystem) AddRecords(ids []ecs.EntityID, translations []mgl32.Vec3, rotationQuats []mgl32.Quat, scaleFactors []float32) {
	m := s.movement
	for i, id := range ids {
		var pos int
		m.IDs, pos = ecs.InsertSorted(m.IDs, id)
		m.TranslationAndUniScales = ecs.InsertAt(m.TranslationAndUniScales, pos, translations[i].Vec4(scaleFactors[i]))
		m.RotationQuats = ecs.InsertAt(m.RotationQuats, pos, rotationQuats[i].Normalize())
	}
}

func (s *MoveSystem) GetMoveDataOfEntts(ids []ecs.EntityID) ([]mgl32.Vec3, []mgl32.Quat, []float32, error) {
	idxs, err := ecs.DataIdxs(s.movement.IDs, ids)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "move data")
	}
	translations := make([]mgl32.Vec3, len(idxs))
	rots := make([]mgl32.Quat, len(idxs))
	factors := make([]float32, len(idxs))
	for i, idx := range idxs {
		ts := s.movement.TranslationAndUniScales[idx]
		translations[i] = ts.Vec3()
		factors[i] = ts[3]
		rots[i] = s.movement.RotationQuats[idx]
	}
	return translations, rots, factors, nil
}

// UpdateAllMoves advances every moving entity by deltaTime seconds.
// Translation and scale factor are per second; the rotation delta is
// applied once per frame. The world matrix is rebuilt from the resulting
// absolute state, so no error accumulates in it.
func (s *MoveSystem) UpdateAllMoves(deltaTime float32) {
	m := s.movement
	if len(m.IDs) == 0 {
		return
	}
	idxs, err := s.transforms.DataIdxs(m.IDs)
	if err != nil {
		s.log.Error("moving entity without transform", zap.Error(err))
		return
	}

	t := s.transforms.transform
	for i, idx := range idxs {
		ts := m.TranslationAndUniScales[i]
		ps := t.PosAndUniformScale[idx]

		pos := ps.Vec3().Add(ts.Vec3().Mul(deltaTime))
		scale := ps[3] * (1 + (ts[3]-1)*deltaTime)
		q := m.RotationQuats[i].Mul(t.DirQuats[idx])

		s.transforms.setByIdx(idx, pos, q, scale)
	}
}

// RemoveRecords deletes the rows of the given ids keeping the order.
func (s *MoveSystem) RemoveRecords(ids []ecs.EntityID) {
	m := s.movement
	for _, id := range ids {
		idx := ecs.IndexOf(m.IDs, id)
		if idx < 0 {
			continue
		}
		m.IDs = ecs.RemoveAt(m.IDs, idx)
		m.TranslationAndUniScales = ecs.RemoveAt(m.TranslationAndUniScales, idx)
		m.RotationQuats = ecs.RemoveAt(m.RotationQuats, idx)
	}
}

// Serialize writes [marker][count][ids][translationAndScale][rotations].
func (s *MoveSystem) Serialize(w *scenefile.Writer) {
	m := s.movement
	scenefile.MarkBlock(w, ecs.MoveComponent)
	writeIDs(w, m.IDs)
	for _, v := range m.TranslationAndUniScales {
		w.WriteVec4(v)
	}
	for _, q := range m.RotationQuats {
		w.WriteQuat(q)
	}
}

func (s *MoveSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.MoveComponent); err != nil {
		return err
	}
	n := r.ReadCount(36)
	ids := readIDs(r, n)
	ts := make([]mgl32.Vec4, n)
	for i := range ts {
		ts[i] = r.ReadVec4()
	}
	qs := make([]mgl32.Quat, n)
	for i := range qs {
		qs[i] = r.ReadQuat()
	}
	if err := r.Err(); err != nil {
		return eris.Wrap(err, "move block")
	}
	if err := checkIDs(ids, "move"); err != nil {
		return err
	}
	*s.movement = component.Movement{IDs: ids, TranslationAndUniScales: ts, RotationQuats: qs}
	return nil
}
