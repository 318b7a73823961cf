package system

import (
	"math/bits"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/scenefile"
)

func stateBit(s component.RenderState) uint32 { return 1 << s }

func statesMask(states ...component.RenderState) uint32 {
	var m uint32
	for _, s := range states {
		m |= stateBit(s)
	}
	return m
}

// Category masks. Setting a state first clears every bit of its category,
// so at most one value per category is active.
var (
	fillMask      = statesMask(component.FillSolid, component.FillWireframe)
	cullMask      = statesMask(component.CullBack, component.CullFront, component.CullNone)
	frontFaceMask = statesMask(component.FrontClockwise, component.FrontCounterClockwise)
	blendingMask  = statesMask(
		component.NoColorWrite, component.NoBlending, component.AlphaEnable,
		component.Adding, component.Subtracting, component.Multiplying, component.Transparency,
	)
	alphaClipMask = statesMask(component.NoAlphaClipping, component.AlphaClipping)

	// DefaultStatesHash is the hash of a freshly rendered entity.
	DefaultStatesHash = statesMask(component.FillSolid, component.CullBack, component.NoBlending, component.NoAlphaClipping)

	alphaClippingHash = statesMask(component.FillSolid, component.CullNone, component.NoBlending, component.AlphaClipping)
)

func categoryMask(s component.RenderState) uint32 {
	switch b := stateBit(s); {
	case b&fillMask != 0:
		return fillMask
	case b&cullMask != 0:
		return cullMask
	case b&frontFaceMask != 0:
		return frontFaceMask
	case b&blendingMask != 0:
		return blendingMask
	default:
		return alphaClipMask
	}
}

// ApplyState returns hash with s set and the rest of its category cleared.
func ApplyState(hash uint32, s component.RenderState) uint32 {
	return hash&^categoryMask(s) | stateBit(s)
}

// BlendState returns the active blending state of hash.
func BlendState(hash uint32) component.RenderState {
	b := hash & blendingMask
	if b == 0 {
		return component.NoBlending
	}
	return component.RenderState(bits.TrailingZeros32(b))
}

// StatesOfHash lists the states set in hash, ascending.
func StatesOfHash(hash uint32) []component.RenderState {
	var out []component.RenderState
	for s := component.RenderState(0); s < component.NumRenderStates; s++ {
		if hash&stateBit(s) != 0 {
			out = append(out, s)
		}
	}
	return out
}

// RenderStatesData groups entities by the pipeline state they need.
// Blended entities are ordered by blend state ascending;
// InstancesPerBlendingState[i] entities use BlendingStates[i].
type RenderStatesData struct {
	EnttsDefault              []ecs.EntityID
	EnttsAlphaClipping        []ecs.EntityID
	EnttsBlended              []ecs.EntityID
	InstancesPerBlendingState []int
	BlendingStates            []component.RenderState
}

// RenderStatesSystem stores one packed state hash per entity.
type RenderStatesSystem struct {
	states *component.RenderStates
	log    *zap.Logger
}

func NewRenderStatesSystem(rs *component.RenderStates, log *zap.Logger) *RenderStatesSystem {
	return &RenderStatesSystem{states: rs, log: log}
}

func (s *RenderStatesSystem) Len() int { return len(s.states.IDs) }

// IDs returns the sorted ids. The slice must not be modified.
func (s *RenderStatesSystem) IDs() []ecs.EntityID { return s.states.IDs }

// AddOrUpdate inserts new ids with the default hash and applies states on
// top; existing ids only get states applied. states may be shorter than
// ids, missing entries mean "no change".
func (s *RenderStatesSystem) AddOrUpdate(ids []ecs.EntityID, states [][]component.RenderState) {
	rs := s.states
	for i, id := range ids {
		pos := ecs.UpperBound(rs.IDs, id)
		if pos == 0 || rs.IDs[pos-1] != id {
			rs.IDs = ecs.InsertAt(rs.IDs, pos, id)
			rs.Hashes = ecs.InsertAt(rs.Hashes, pos, DefaultStatesHash)
			pos++
		}
		if i >= len(states) {
			continue
		}
		idx := pos - 1
		for _, st := range states[i] {
			rs.Hashes[idx] = ApplyState(rs.Hashes[idx], st)
		}
	}
}

// AddWithDefaultStates inserts the default hash for ids that have no row.
func (s *RenderStatesSystem) AddWithDefaultStates(ids []ecs.EntityID) {
	s.AddOrUpdate(ids, nil)
}

func (s *RenderStatesSystem) GetStatesHash(id ecs.EntityID) (uint32, error) {
	idx := ecs.IndexOf(s.states.IDs, id)
	if idx < 0 {
		return 0, eris.Wrapf(ecs.ErrNotFound, "render states of entity %d", id)
	}
	return s.states.Hashes[idx], nil
}

// GetRenderStates splits ids into default, alpha clipped and blended
// batches. Blended batches are grouped by blend state.
func (s *RenderStatesSystem) GetRenderStates(ids []ecs.EntityID) (RenderStatesData, error) {
	var out RenderStatesData
	sorted := ecs.SortedUnique(ids)
	idxs, err := ecs.DataIdxs(s.states.IDs, sorted)
	if err != nil {
		return out, eris.Wrap(err, "render states")
	}
	hashes := ecs.Gather(s.states.Hashes, idxs)

	// bucket 0: default, bucket 1: specific
	var buckets [2][]int
	for i, h := range hashes {
		specific := h&^DefaultStatesHash != 0
		buckets[b2i(specific)] = append(buckets[b2i(specific)], i)
	}
	for _, i := range buckets[0] {
		out.EnttsDefault = append(out.EnttsDefault, sorted[i])
	}

	var byBlend [component.NumRenderStates][]ecs.EntityID
	for _, i := range buckets[1] {
		if hashes[i] == alphaClippingHash {
			out.EnttsAlphaClipping = append(out.EnttsAlphaClipping, sorted[i])
			continue
		}
		bs := BlendState(hashes[i])
		byBlend[bs] = append(byBlend[bs], sorted[i])
	}
	for st, entts := range byBlend {
		if len(entts) == 0 {
			continue
		}
		out.EnttsBlended = append(out.EnttsBlended, entts...)
		out.InstancesPerBlendingState = append(out.InstancesPerBlendingState, len(entts))
		out.BlendingStates = append(out.BlendingStates, component.RenderState(st))
	}
	return out, nil
}

// RemoveRecords deletes the rows of the given ids keeping the order.
func (s *RenderStatesSystem) RemoveRecords(ids []ecs.EntityID) {
	rs := s.states
	for _, id := range ids {
		idx := ecs.IndexOf(rs.IDs, id)
		if idx < 0 {
			continue
		}
		rs.IDs = ecs.RemoveAt(rs.IDs, idx)
		rs.Hashes = ecs.RemoveAt(rs.Hashes, idx)
	}
}

// Serialize writes [marker][count][ids][hashes].
func (s *RenderStatesSystem) Serialize(w *scenefile.Writer) {
	scenefile.MarkBlock(w, ecs.RenderStatesComponent)
	writeIDs(w, s.states.IDs)
	for _, h := range s.states.Hashes {
		w.WriteU32(h)
	}
}

func (s *RenderStatesSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.RenderStatesComponent); err != nil {
		return err
	}
	n := r.ReadCount(8)
	ids := readIDs(r, n)
	hashes := make([]uint32, n)
	for i := range hashes {
		hashes[i] = r.ReadU32()
	}
	if err := r.Err(); err != nil {
		return eris.Wrap(err, "render states block")
	}
	if err := checkIDs(ids, "render states"); err != nil {
		return err
	}
	*s.states = component.RenderStates{IDs: ids, Hashes: hashes}
	return nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
