package system

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/scenefile"
)

// NormalizeName returns the NFC form of name so that visually equal names
// compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// NameSystem maps entities to unique, non-empty names.
type NameSystem struct {
	names *component.Name
	log   *zap.Logger
}

func NewNameSystem(n *component.Name, log *zap.Logger) *NameSystem {
	return &NameSystem{names: n, log: log}
}

func (s *NameSystem) Len() int { return len(s.names.IDs) }

// IDs returns the sorted ids. The slice must not be modified.
func (s *NameSystem) IDs() []ecs.EntityID { return s.names.IDs }

// Validate checks that every name is non-empty and unique both within
// names and against the stored names.
func (s *NameSystem) Validate(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := NormalizeName(raw)
		if name == "" {
			return eris.Wrap(ecs.ErrPrecondition, "empty entity name")
		}
		if _, dup := seen[name]; dup {
			return eris.Wrapf(ecs.ErrAlreadyExists, "entity name %q repeated in input", name)
		}
		seen[name] = struct{}{}
		if s.GetIDByName(name) != ecs.InvalidEntityID {
			return eris.Wrapf(ecs.ErrAlreadyExists, "entity name %q", name)
		}
	}
	return nil
}

// AddRecords inserts names for ids that have no name yet. Input must have
// passed Validate.
func (s *NameSystem) AddRecords(ids []ecs.EntityID, names []string) {
	n := s.names
	for i, id := range ids {
		var pos int
		n.IDs, pos = ecs.InsertSorted(n.IDs, id)
		n.Names = ecs.InsertAt(n.Names, pos, NormalizeName(names[i]))
	}
}

// GetIDByName returns the entity called name, or InvalidEntityID.
func (s *NameSystem) GetIDByName(name string) ecs.EntityID {
	name = NormalizeName(name)
	for i, n := range s.names.Names {
		if n == name {
			return s.names.IDs[i]
		}
	}
	return ecs.InvalidEntityID
}

func (s *NameSystem) GetNameByID(id ecs.EntityID) (string, error) {
	idx := ecs.IndexOf(s.names.IDs, id)
	if idx < 0 {
		return "", eris.Wrapf(ecs.ErrNotFound, "name of entity %d", id)
	}
	return s.names.Names[idx], nil
}

// AllNames returns the names in id order.
func (s *NameSystem) AllNames() []string {
	return append([]string(nil), s.names.Names...)
}

// LogAllNames dumps the id/name table at debug level.
func (s *NameSystem) LogAllNames() {
	for i, id := range s.names.IDs {
		s.log.Debug("entity name", zap.Uint32("id", uint32(id)), zap.String("name", s.names.Names[i]))
	}
}

// RemoveRecords deletes the rows of the given ids keeping the order.
func (s *NameSystem) RemoveRecords(ids []ecs.EntityID) {
	n := s.names
	for _, id := range ids {
		idx := ecs.IndexOf(n.IDs, id)
		if idx < 0 {
			continue
		}
		n.IDs = ecs.RemoveAt(n.IDs, idx)
		n.Names = ecs.RemoveAt(n.Names, idx)
	}
}

// Serialize writes [marker][count][ids] then one [len][bytes] per name.
func (s *NameSystem) Serialize(w *scenefile.Writer) {
	scenefile.MarkBlock(w, ecs.NameComponent)
	writeIDs(w, s.names.IDs)
	for _, name := range s.names.Names {
		w.WriteString(name)
	}
}

func (s *NameSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.NameComponent); err != nil {
		return err
	}
	n := r.ReadCount(8)
	ids := readIDs(r, n)
	names := make([]string, n)
	for i := range names {
		names[i] = r.ReadString()
	}
	if err := r.Err(); err != nil {
		return eris.Wrap(err, "name block")
	}
	if err := checkIDs(ids, "name"); err != nil {
		return err
	}
	seen := make(map[string]struct{}, n)
	for i, name := range names {
		name = NormalizeName(name)
		if name == "" {
			return eris.Wrapf(ecs.ErrCorruptData, "name block: entity %d has an empty name", ids[i])
		}
		if _, dup := seen[name]; dup {
			return eris.Wrapf(ecs.ErrCorruptData, "name block: name %q repeated", name)
		}
		seen[name] = struct{}{}
		names[i] = name
	}
	*s.names = component.Name{IDs: ids, Names: names}
	return nil
}
