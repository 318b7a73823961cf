package system

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/scenefile"
)

// RenderSystem owns the Rendered component: what shader and topology each
// drawable entity uses and which entities survived culling this frame.
type RenderSystem struct {
	rendered *component.Rendered
	log      *zap.Logger
}

func NewRenderSystem(r *component.Rendered, log *zap.Logger) *RenderSystem {
	return &RenderSystem{rendered: r, log: log}
}

func (s *RenderSystem) Len() int { return len(s.rendered.IDs) }

// IDs returns the sorted ids. The slice must not be modified.
func (s *RenderSystem) IDs() []ecs.EntityID { return s.rendered.IDs }

// AddRecords inserts rows for new ids. Ids that already have a row keep it.
func (s *RenderSystem) AddRecords(ids []ecs.EntityID, shaderTypes []component.ShaderType, topologies []component.PrimitiveTopology) {
	r := s.rendered
	for i, id := range ids {
		pos := ecs.UpperBound(r.IDs, id)
		if pos > 0 && r.IDs[pos-1] == id {
			continue
		}
		r.IDs = ecs.InsertAt(r.IDs, pos, id)
		r.ShaderTypes = ecs.InsertAt(r.ShaderTypes, pos, shaderTypes[i])
		r.Topologies = ecs.InsertAt(r.Topologies, pos, topologies[i])
	}
}

func (s *RenderSystem) GetShaderTypesOfEntts(ids []ecs.EntityID) ([]component.ShaderType, error) {
	idxs, err := ecs.DataIdxs(s.rendered.IDs, ids)
	if err != nil {
		return nil, eris.Wrap(err, "shader types")
	}
	return ecs.Gather(s.rendered.ShaderTypes, idxs), nil
}

func (s *RenderSystem) GetTopologiesOfEntts(ids []ecs.EntityID) ([]component.PrimitiveTopology, error) {
	idxs, err := ecs.DataIdxs(s.rendered.IDs, ids)
	if err != nil {
		return nil, eris.Wrap(err, "primitive topologies")
	}
	return ecs.Gather(s.rendered.Topologies, idxs), nil
}

// SetVisibleEntts stores the culling result. Ids without a Rendered row
// are dropped.
func (s *RenderSystem) SetVisibleEntts(ids []ecs.EntityID) {
	visible := s.rendered.VisibleIDs[:0]
	for _, id := range ecs.SortedUnique(ids) {
		if ecs.Contains(s.rendered.IDs, id) {
			visible = append(visible, id)
		}
	}
	s.rendered.VisibleIDs = visible
}

// VisibleEntts returns the ids set by the last culling pass, ascending.
func (s *RenderSystem) VisibleEntts() []ecs.EntityID { return s.rendered.VisibleIDs }

func (s *RenderSystem) ClearVisibleEntts() { s.rendered.VisibleIDs = s.rendered.VisibleIDs[:0] }

// RemoveRecords deletes the rows of the given ids keeping the order.
func (s *RenderSystem) RemoveRecords(ids []ecs.EntityID) {
	r := s.rendered
	for _, id := range ids {
		r.VisibleIDs = ecs.RemoveSorted(r.VisibleIDs, id)
		idx := ecs.IndexOf(r.IDs, id)
		if idx < 0 {
			continue
		}
		r.IDs = ecs.RemoveAt(r.IDs, idx)
		r.ShaderTypes = ecs.RemoveAt(r.ShaderTypes, idx)
		r.Topologies = ecs.RemoveAt(r.Topologies, idx)
	}
}

// Serialize writes [marker][count][ids][shader types][topologies].
// The visible list is transient and not stored.
func (s *RenderSystem) Serialize(w *scenefile.Writer) {
	r := s.rendered
	scenefile.MarkBlock(w, ecs.RenderedComponent)
	writeIDs(w, r.IDs)
	for _, st := range r.ShaderTypes {
		w.WriteU32(uint32(st))
	}
	for _, t := range r.Topologies {
		w.WriteU32(uint32(t))
	}
}

func (s *RenderSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.RenderedComponent); err != nil {
		return err
	}
	n := r.ReadCount(12)
	ids := readIDs(r, n)
	shaders := make([]component.ShaderType, n)
	for i := range shaders {
		shaders[i] = component.ShaderType(r.ReadU32())
	}
	topologies := make([]component.PrimitiveTopology, n)
	for i := range topologies {
		topologies[i] = component.PrimitiveTopology(r.ReadU32())
	}
	if err := r.Err(); err != nil {
		return eris.Wrap(err, "rendered block")
	}
	if err := checkIDs(ids, "rendered"); err != nil {
		return err
	}
	*s.rendered = component.Rendered{IDs: ids, ShaderTypes: shaders, Topologies: topologies}
	return nil
}
