package world

import (
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/event"
	"github.com/dxengine/engine/internal/core/scenefile"
)

// blockCodec is implemented by every component system stored in a scene file.
type blockCodec interface {
	Serialize(w *scenefile.Writer)
	Deserialize(r *scenefile.Reader, h scenefile.Header) error
}

type block struct {
	ct    ecs.ComponentType
	codec blockCodec
}

// blocks lists the stored components in file order. WorldMatrix is not
// stored; the transform block rebuilds it.
func (st *state) blocks() []block {
	return []block{
		{ecs.TransformComponent, st.transform},
		{ecs.NameComponent, st.name},
		{ecs.MoveComponent, st.move},
		{ecs.MeshComponent, st.mesh},
		{ecs.RenderedComponent, st.render},
		{ecs.TexturedComponent, st.textures},
		{ecs.TextureTransformComponent, st.texTransform},
		{ecs.LightComponent, st.light},
		{ecs.RenderStatesComponent, st.renderStates},
		{ecs.BoundingComponent, st.bounding},
	}
}

// MarshalBinary encodes the whole scene: header, entity table, then one
// block per stored component.
func (m *EntityManager) MarshalBinary() ([]byte, error) {
	w := scenefile.NewWriter()
	scenefile.ReserveHeader(w)

	world := m.st.world
	w.WriteU32(scenefile.EntityBlockMarker)
	w.WriteCount(world.Len())
	for _, id := range world.IDs() {
		w.WriteU32(uint32(id))
	}
	for _, f := range world.Flags() {
		w.WriteU64(uint64(f))
	}

	for _, b := range m.st.blocks() {
		b.codec.Serialize(w)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary replaces the manager state with the decoded scene. On
// error the current state is left untouched.
func (m *EntityManager) UnmarshalBinary(data []byte) error {
	st, err := m.decode(data)
	if err != nil {
		return m.fail("load scene", err)
	}
	for _, s := range m.extra {
		st.runner.Register(s)
	}
	m.st = st
	event.Emit(m.bus, event.SceneLoaded{Entities: st.world.Len()})
	m.log.Info("scene loaded", zap.Int("entities", st.world.Len()))
	return nil
}

func (m *EntityManager) decode(data []byte) (*state, error) {
	r := scenefile.NewReader(data)
	h, err := scenefile.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	st := m.newState()

	if err := scenefile.ExpectMarker(r, scenefile.EntityBlockMarker, "entity"); err != nil {
		return nil, err
	}
	n := r.ReadCount(12)
	ids := make([]ecs.EntityID, n)
	for i := range ids {
		ids[i] = ecs.EntityID(r.ReadU32())
	}
	flags := make([]ecs.ComponentFlags, n)
	for i := range flags {
		flags[i] = ecs.ComponentFlags(r.ReadU64())
	}
	if err := r.Err(); err != nil {
		return nil, eris.Wrap(err, "entity block")
	}
	if err := st.world.Restore(ids, flags); err != nil {
		return nil, err
	}

	for _, b := range st.blocks() {
		if !h.Has(b.ct) {
			continue
		}
		if err := b.codec.Deserialize(r, h); err != nil {
			return nil, err
		}
	}
	if err := st.checkFlags(); err != nil {
		return nil, err
	}
	return st, nil
}

// checkFlags verifies that each entity has a component bit set exactly
// when the component stores a row for it, and that moving entities have
// a transform.
func (st *state) checkFlags() error {
	ids, flags := st.world.IDs(), st.world.Flags()
	for i, f := range flags {
		if f.Has(ecs.MoveComponent) && !f.Has(ecs.TransformComponent) {
			return eris.Wrapf(ecs.ErrCorruptData, "entity %d moves without a transform", ids[i])
		}
		if f>>ecs.NumComponentTypes != 0 {
			return eris.Wrapf(ecs.ErrCorruptData, "entity %d has unknown component bits %b", ids[i], uint64(f))
		}
	}
	for ct := ecs.ComponentType(0); int(ct) < ecs.NumComponentTypes; ct++ {
		owners, _ := st.componentIDs(ct)
		want := make([]ecs.EntityID, 0, len(owners))
		for i, f := range flags {
			if f.Has(ct) {
				want = append(want, ids[i])
			}
		}
		if !slices.Equal(owners, want) {
			return eris.Wrapf(ecs.ErrCorruptData, "%s: %d rows but %d entities flagged", ct, len(owners), len(want))
		}
	}
	return nil
}

// Serialize writes the scene to path.
func (m *EntityManager) Serialize(path string) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return m.fail("save scene", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return m.fail("save scene", eris.Wrapf(err, "write scene file %s", path))
	}
	m.log.Info("scene saved", zap.String("path", path), zap.Int("bytes", len(data)), zap.Int("entities", m.Len()))
	return nil
}

// Deserialize loads the scene stored at path, replacing the current one.
func (m *EntityManager) Deserialize(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return m.fail("load scene", eris.Wrapf(err, "read scene file %s", path))
	}
	return m.UnmarshalBinary(data)
}
