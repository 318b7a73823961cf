package system

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/scenefile"
)

// TexturesSystem stores per-entity texture overrides, one id and one
// source path per texture slot.
type TexturesSystem struct {
	textured *component.Textured
	log      *zap.Logger
}

func NewTexturesSystem(t *component.Textured, log *zap.Logger) *TexturesSystem {
	return &TexturesSystem{textured: t, log: log}
}

func (s *TexturesSystem) Len() int { return len(s.textured.IDs) }

// IDs returns the sorted ids. The slice must not be modified.
func (s *TexturesSystem) IDs() []ecs.EntityID { return s.textured.IDs }

// AddRecords inserts rows for new ids and replaces the textures of ids
// that already have a row.
func (s *TexturesSystem) AddRecords(ids []ecs.EntityID, texIDs [][component.TexTypesCount]component.TexID, texPaths [][component.TexTypesCount]string) {
	t := s.textured
	for i, id := range ids {
		pos := ecs.UpperBound(t.IDs, id)
		if pos > 0 && t.IDs[pos-1] == id {
			t.TexIDs[pos-1] = texIDs[i]
			t.TexPaths[pos-1] = texPaths[i]
			continue
		}
		t.IDs = ecs.InsertAt(t.IDs, pos, id)
		t.TexIDs = ecs.InsertAt(t.TexIDs, pos, texIDs[i])
		t.TexPaths = ecs.InsertAt(t.TexPaths, pos, texPaths[i])
	}
}

func (s *TexturesSystem) GetTexIDsByEnttID(id ecs.EntityID) ([component.TexTypesCount]component.TexID, error) {
	idx := ecs.IndexOf(s.textured.IDs, id)
	if idx < 0 {
		return [component.TexTypesCount]component.TexID{}, eris.Wrapf(ecs.ErrNotFound, "textures of entity %d", id)
	}
	return s.textured.TexIDs[idx], nil
}

func (s *TexturesSystem) GetTexIDsByEnttsIDs(ids []ecs.EntityID) ([][component.TexTypesCount]component.TexID, error) {
	idxs, err := ecs.DataIdxs(s.textured.IDs, ids)
	if err != nil {
		return nil, eris.Wrap(err, "textures")
	}
	return ecs.Gather(s.textured.TexIDs, idxs), nil
}

func (s *TexturesSystem) GetTexPathsByEnttID(id ecs.EntityID) ([component.TexTypesCount]string, error) {
	idx := ecs.IndexOf(s.textured.IDs, id)
	if idx < 0 {
		return [component.TexTypesCount]string{}, eris.Wrapf(ecs.ErrNotFound, "texture paths of entity %d", id)
	}
	return s.textured.TexPaths[idx], nil
}

// FilterEnttsWhichHaveOwnTex keeps the ids that have their own textures.
// The result is ascending.
func (s *TexturesSystem) FilterEnttsWhichHaveOwnTex(ids []ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range ecs.SortedUnique(ids) {
		if ecs.Contains(s.textured.IDs, id) {
			out = append(out, id)
		}
	}
	return out
}

// RemoveRecords deletes the rows of the given ids keeping the order.
func (s *TexturesSystem) RemoveRecords(ids []ecs.EntityID) {
	t := s.textured
	for _, id := range ids {
		idx := ecs.IndexOf(t.IDs, id)
		if idx < 0 {
			continue
		}
		t.IDs = ecs.RemoveAt(t.IDs, idx)
		t.TexIDs = ecs.RemoveAt(t.TexIDs, idx)
		t.TexPaths = ecs.RemoveAt(t.TexPaths, idx)
	}
}

// Serialize writes [marker][count][ids][tex ids x 22 per entity][paths x 22 per entity].
func (s *TexturesSystem) Serialize(w *scenefile.Writer) {
	t := s.textured
	scenefile.MarkBlock(w, ecs.TexturedComponent)
	writeIDs(w, t.IDs)
	for _, row := range t.TexIDs {
		for _, id := range row {
			w.WriteU32(uint32(id))
		}
	}
	for _, row := range t.TexPaths {
		for _, p := range row {
			w.WriteString(p)
		}
	}
}

func (s *TexturesSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.TexturedComponent); err != nil {
		return err
	}
	n := r.ReadCount(4 + component.TexTypesCount*8)
	ids := readIDs(r, n)
	texIDs := make([][component.TexTypesCount]component.TexID, n)
	for i := range texIDs {
		for j := range texIDs[i] {
			texIDs[i][j] = component.TexID(r.ReadU32())
		}
	}
	paths := make([][component.TexTypesCount]string, n)
	for i := range paths {
		for j := range paths[i] {
			paths[i][j] = r.ReadString()
		}
	}
	if err := r.Err(); err != nil {
		return eris.Wrap(err, "textured block")
	}
	if err := checkIDs(ids, "textured"); err != nil {
		return err
	}
	*s.textured = component.Textured{IDs: ids, TexIDs: texIDs, TexPaths: paths}
	return nil
}
