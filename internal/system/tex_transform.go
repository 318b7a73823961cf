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

// TextureTransformSystem animates texture-space matrices. Each entity has
// exactly one transform kind, kept in the matching sub-store.
// Phase 3 (Texture).
type TextureTransformSystem struct {
	tt  *component.TextureTransform
	log *zap.Logger
}

func NewTextureTransformSystem(tt *component.TextureTransform, log *zap.Logger) *TextureTransformSystem {
	return &TextureTransformSystem{tt: tt, log: log}
}

func (s *TextureTransformSystem) Phase() coresys.Phase { return coresys.PhaseTexture }

func (s *TextureTransformSystem) Update(totalTime, deltaTime float32) {
	s.UpdateAllTextureAnimations(totalTime, deltaTime)
}

func (s *TextureTransformSystem) Len() int { return len(s.tt.IDs) }

// IDs returns the sorted ids. The slice must not be modified.
func (s *TextureTransformSystem) IDs() []ecs.EntityID { return s.tt.IDs }

// ValidateTexTransformParams checks the per-kind arrays against n ids.
func ValidateTexTransformParams(n int, params component.TexTransformParams) error {
	if params == nil {
		return eris.Wrap(ecs.ErrPrecondition, "nil texture transform params")
	}
	if err := ecs.CheckLen("texture transform params", params.Len(), n); err != nil {
		return err
	}
	switch p := params.(type) {
	case component.StaticTexTransformParams:
		return ecs.CheckLen("static update transforms", len(p.UpdateTransforms), n)
	case component.AtlasAnimParams:
		if err := ecs.CheckLen("atlas columns", len(p.TexColumns), n); err != nil {
			return err
		}
		if err := ecs.CheckLen("atlas frame durations", len(p.FrameDurations), n); err != nil {
			return err
		}
		for i := range p.TexRows {
			if p.TexRows[i] == 0 || p.TexColumns[i] == 0 {
				return eris.Wrapf(ecs.ErrPrecondition, "atlas %d has an empty grid %dx%d", i, p.TexRows[i], p.TexColumns[i])
			}
			if p.FrameDurations[i] <= 0 {
				return eris.Wrapf(ecs.ErrPrecondition, "atlas %d frame duration must be > 0", i)
			}
		}
		return nil
	case component.RotationAroundCoordParams:
		return ecs.CheckLen("rotation speeds", len(p.Speeds), n)
	}
	return eris.Wrapf(ecs.ErrPrecondition, "unknown texture transform params %T", params)
}

// AddRecords inserts ids with the given transform kind. Ids must not have
// a texture transform yet and params must have passed validation.
func (s *TextureTransformSystem) AddRecords(ids []ecs.EntityID, params component.TexTransformParams) {
	switch p := params.(type) {
	case component.StaticTexTransformParams:
		st := &s.tt.Static
		for i, id := range ids {
			s.addCommon(id, component.TexTransformStatic, p.InitTransforms[i])
			var pos int
			st.IDs, pos = ecs.InsertSorted(st.IDs, id)
			st.Updates = ecs.InsertAt(st.Updates, pos, p.UpdateTransforms[i])
		}

	case component.AtlasAnimParams:
		at := &s.tt.Atlas
		for i, id := range ids {
			cols, rows := p.TexColumns[i], p.TexRows[i]
			data := component.AtlasAnimationData{
				FramesCount: rows * cols,
				Columns:     cols,
				Rows:        rows,
				CellWidth:   1 / float32(cols),
				CellHeight:  1 / float32(rows),
			}
			s.addCommon(id, component.TexTransformAtlasAnimation, atlasFrameMatrix(data))
			var pos int
			at.IDs, pos = ecs.InsertSorted(at.IDs, id)
			at.FrameDurations = ecs.InsertAt(at.FrameDurations, pos, p.FrameDurations[i])
			at.CurrFrameTimes = ecs.InsertAt(at.CurrFrameTimes, pos, 0)
			at.Data = ecs.InsertAt(at.Data, pos, data)
		}

	case component.RotationAroundCoordParams:
		rt := &s.tt.Rotations
		for i, id := range ids {
			s.addCommon(id, component.TexTransformRotationAroundCoord, mgl32.Ident4())
			var pos int
			rt.IDs, pos = ecs.InsertSorted(rt.IDs, id)
			rt.Centers = ecs.InsertAt(rt.Centers, pos, p.Centers[i])
			rt.Speeds = ecs.InsertAt(rt.Speeds, pos, p.Speeds[i])
		}
	}
}

func (s *TextureTransformSystem) addCommon(id ecs.EntityID, typ component.TexTransformType, m mgl32.Mat4) {
	var pos int
	s.tt.IDs, pos = ecs.InsertSorted(s.tt.IDs, id)
	s.tt.Types = ecs.InsertAt(s.tt.Types, pos, typ)
	s.tt.Transforms = ecs.InsertAt(s.tt.Transforms, pos, m)
}

// GetTexTransformsForEntts returns the current matrix of each id, or the
// identity for ids without a texture transform.
func (s *TextureTransformSystem) GetTexTransformsForEntts(ids []ecs.EntityID) []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(ids))
	for i, id := range ids {
		if idx := ecs.IndexOf(s.tt.IDs, id); idx >= 0 {
			out[i] = s.tt.Transforms[idx]
		} else {
			out[i] = mgl32.Ident4()
		}
	}
	return out
}

func (s *TextureTransformSystem) GetTransformType(id ecs.EntityID) (component.TexTransformType, error) {
	idx := ecs.IndexOf(s.tt.IDs, id)
	if idx < 0 {
		return 0, eris.Wrapf(ecs.ErrNotFound, "texture transform of entity %d", id)
	}
	return s.tt.Types[idx], nil
}

// GetAtlasFrame returns the current atlas frame of id.
func (s *TextureTransformSystem) GetAtlasFrame(id ecs.EntityID) (uint32, error) {
	idx := ecs.IndexOf(s.tt.Atlas.IDs, id)
	if idx < 0 {
		return 0, eris.Wrapf(ecs.ErrNotFound, "atlas animation of entity %d", id)
	}
	return s.tt.Atlas.Data[idx].CurrFrame, nil
}

// UpdateAllTextureAnimations advances every animated texture transform.
// Static and atlas transforms step by deltaTime; rotations are recomputed
// from totalTime so pausing and resuming gives the same result.
func (s *TextureTransformSystem) UpdateAllTextureAnimations(totalTime, deltaTime float32) {
	s.updateStatic(deltaTime)
	s.updateAtlas(deltaTime)
	s.updateRotations(totalTime)
}

func (s *TextureTransformSystem) updateStatic(deltaTime float32) {
	st := &s.tt.Static
	for i, id := range st.IDs {
		idx := ecs.IndexOf(s.tt.IDs, id)
		u := st.Updates[i]
		m := &s.tt.Transforms[idx]
		m[12] += u[12] * deltaTime
		m[13] += u[13] * deltaTime
		m[14] += u[14] * deltaTime
	}
}

func (s *TextureTransformSystem) updateAtlas(deltaTime float32) {
	at := &s.tt.Atlas
	for i, id := range at.IDs {
		dur := at.FrameDurations[i]
		t := at.CurrFrameTimes[i] + deltaTime
		if t < dur {
			at.CurrFrameTimes[i] = t
			continue
		}
		steps := uint32(t / dur)
		at.CurrFrameTimes[i] = t - float32(steps)*dur

		data := &at.Data[i]
		data.CurrFrame = (data.CurrFrame + steps) % data.FramesCount
		s.tt.Transforms[ecs.IndexOf(s.tt.IDs, id)] = atlasFrameMatrix(*data)
	}
}

func (s *TextureTransformSystem) updateRotations(totalTime float32) {
	rt := &s.tt.Rotations
	for i, id := range rt.IDs {
		s.tt.Transforms[ecs.IndexOf(s.tt.IDs, id)] = rotationAroundCoord(rt.Centers[i], rt.Speeds[i]*totalTime)
	}
}

// atlasFrameMatrix scales texture space to one cell and moves it to the
// cell of the current frame. Frames run left to right, top to bottom.
func atlasFrameMatrix(d component.AtlasAnimationData) mgl32.Mat4 {
	col := d.CurrFrame % d.Columns
	row := d.CurrFrame / d.Columns
	m := mgl32.Scale3D(d.CellWidth, d.CellHeight, 1)
	m[12] = d.CellWidth * float32(col)
	m[13] = d.CellHeight * float32(row)
	return m
}

// rotationAroundCoord rotates texture space by angle around center.
func rotationAroundCoord(center mgl32.Vec2, angle float32) mgl32.Mat4 {
	return mgl32.Translate3D(center[0], center[1], 0).
		Mul4(mgl32.HomogRotate3DZ(angle)).
		Mul4(mgl32.Translate3D(-center[0], -center[1], 0))
}

// RemoveRecords deletes the rows of the given ids from the common store
// and from their kind's store, keeping the order.
func (s *TextureTransformSystem) RemoveRecords(ids []ecs.EntityID) {
	tt := s.tt
	for _, id := range ids {
		idx := ecs.IndexOf(tt.IDs, id)
		if idx < 0 {
			continue
		}
		switch tt.Types[idx] {
		case component.TexTransformStatic:
			if j := ecs.IndexOf(tt.Static.IDs, id); j >= 0 {
				tt.Static.IDs = ecs.RemoveAt(tt.Static.IDs, j)
				tt.Static.Updates = ecs.RemoveAt(tt.Static.Updates, j)
			}
		case component.TexTransformAtlasAnimation:
			if j := ecs.IndexOf(tt.Atlas.IDs, id); j >= 0 {
				tt.Atlas.IDs = ecs.RemoveAt(tt.Atlas.IDs, j)
				tt.Atlas.FrameDurations = ecs.RemoveAt(tt.Atlas.FrameDurations, j)
				tt.Atlas.CurrFrameTimes = ecs.RemoveAt(tt.Atlas.CurrFrameTimes, j)
				tt.Atlas.Data = ecs.RemoveAt(tt.Atlas.Data, j)
			}
		case component.TexTransformRotationAroundCoord:
			if j := ecs.IndexOf(tt.Rotations.IDs, id); j >= 0 {
				tt.Rotations.IDs = ecs.RemoveAt(tt.Rotations.IDs, j)
				tt.Rotations.Centers = ecs.RemoveAt(tt.Rotations.Centers, j)
				tt.Rotations.Speeds = ecs.RemoveAt(tt.Rotations.Speeds, j)
			}
		}
		tt.IDs = ecs.RemoveAt(tt.IDs, idx)
		tt.Types = ecs.RemoveAt(tt.Types, idx)
		tt.Transforms = ecs.RemoveAt(tt.Transforms, idx)
	}
}

// Serialize writes the common arrays followed by the three sub-stores,
// each prefixed by its count.
func (s *TextureTransformSystem) Serialize(w *scenefile.Writer) {
	tt := s.tt
	scenefile.MarkBlock(w, ecs.TextureTransformComponent)
	writeIDs(w, tt.IDs)
	for _, t := range tt.Types {
		w.WriteU32(uint32(t))
	}
	for _, m := range tt.Transforms {
		w.WriteMat4(m)
	}

	writeIDs(w, tt.Static.IDs)
	for _, m := range tt.Static.Updates {
		w.WriteMat4(m)
	}

	writeIDs(w, tt.Atlas.IDs)
	for i := range tt.Atlas.IDs {
		d := tt.Atlas.Data[i]
		w.WriteF32(tt.Atlas.FrameDurations[i])
		w.WriteF32(tt.Atlas.CurrFrameTimes[i])
		w.WriteU32(d.CurrFrame)
		w.WriteU32(d.FramesCount)
		w.WriteU32(d.Columns)
		w.WriteU32(d.Rows)
		w.WriteF32(d.CellWidth)
		w.WriteF32(d.CellHeight)
	}

	writeIDs(w, tt.Rotations.IDs)
	for i := range tt.Rotations.IDs {
		w.WriteVec2(tt.Rotations.Centers[i])
		w.WriteF32(tt.Rotations.Speeds[i])
	}
}

func (s *TextureTransformSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.TextureTransformComponent); err != nil {
		return err
	}
	var tt component.TextureTransform

	n := r.ReadCount(72)
	tt.IDs = readIDs(r, n)
	tt.Types = make([]component.TexTransformType, n)
	for i := range tt.Types {
		tt.Types[i] = component.TexTransformType(r.ReadU32())
	}
	tt.Transforms = make([]mgl32.Mat4, n)
	for i := range tt.Transforms {
		tt.Transforms[i] = r.ReadMat4()
	}

	n = r.ReadCount(68)
	tt.Static.IDs = readIDs(r, n)
	tt.Static.Updates = make([]mgl32.Mat4, n)
	for i := range tt.Static.Updates {
		tt.Static.Updates[i] = r.ReadMat4()
	}

	n = r.ReadCount(36)
	tt.Atlas.IDs = readIDs(r, n)
	tt.Atlas.FrameDurations = make([]float32, n)
	tt.Atlas.CurrFrameTimes = make([]float32, n)
	tt.Atlas.Data = make([]component.AtlasAnimationData, n)
	for i := 0; i < n; i++ {
		tt.Atlas.FrameDurations[i] = r.ReadF32()
		tt.Atlas.CurrFrameTimes[i] = r.ReadF32()
		tt.Atlas.Data[i] = component.AtlasAnimationData{
			CurrFrame:   r.ReadU32(),
			FramesCount: r.ReadU32(),
			Columns:     r.ReadU32(),
			Rows:        r.ReadU32(),
			CellWidth:   r.ReadF32(),
			CellHeight:  r.ReadF32(),
		}
	}

	n = r.ReadCount(16)
	tt.Rotations.IDs = readIDs(r, n)
	tt.Rotations.Centers = make([]mgl32.Vec2, n)
	tt.Rotations.Speeds = make([]float32, n)
	for i := 0; i < n; i++ {
		tt.Rotations.Centers[i] = r.ReadVec2()
		tt.Rotations.Speeds[i] = r.ReadF32()
	}

	if err := r.Err(); err != nil {
		return eris.Wrap(err, "texture transform block")
	}
	for _, ids := range [][]ecs.EntityID{tt.IDs, tt.Static.IDs, tt.Atlas.IDs, tt.Rotations.IDs} {
		if err := checkIDs(ids, "texture transform"); err != nil {
			return err
		}
	}
	if len(tt.Static.IDs)+len(tt.Atlas.IDs)+len(tt.Rotations.IDs) != len(tt.IDs) {
		return eris.Wrap(ecs.ErrCorruptData, "texture transform block: sub-stores do not add up")
	}
	for i, typ := range tt.Types {
		if typ > component.TexTransformRotationAroundCoord {
			return eris.Wrapf(ecs.ErrCorruptData, "texture transform block: entity %d has unknown kind %d", tt.IDs[i], typ)
		}
	}
	if err := checkSubStore(&tt, tt.Static.IDs, component.TexTransformStatic); err != nil {
		return err
	}
	if err := checkSubStore(&tt, tt.Atlas.IDs, component.TexTransformAtlasAnimation); err != nil {
		return err
	}
	if err := checkSubStore(&tt, tt.Rotations.IDs, component.TexTransformRotationAroundCoord); err != nil {
		return err
	}
	for i, d := range tt.Atlas.Data {
		if d.Columns == 0 || d.FramesCount == 0 {
			return eris.Wrap(ecs.ErrCorruptData, "texture transform block: empty atlas grid")
		}
		if tt.Atlas.FrameDurations[i] <= 0 {
			return eris.Wrapf(ecs.ErrCorruptData, "texture transform block: atlas of entity %d has frame duration %v",
				tt.Atlas.IDs[i], tt.Atlas.FrameDurations[i])
		}
	}
	*s.tt = tt
	return nil
}

// checkSubStore requires every id of a kind's sub-store to own a row of
// that kind in the main store.
func checkSubStore(tt *component.TextureTransform, ids []ecs.EntityID, kind component.TexTransformType) error {
	for _, id := range ids {
		idx := ecs.IndexOf(tt.IDs, id)
		if idx < 0 {
			return eris.Wrapf(ecs.ErrCorruptData, "texture transform block: %s row of entity %d has no main row", kind, id)
		}
		if tt.Types[idx] != kind {
			return eris.Wrapf(ecs.ErrCorruptData, "texture transform block: entity %d is %s but stored as %s", id, tt.Types[idx], kind)
		}
	}
	return nil
}
