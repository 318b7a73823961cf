package ecs

import (
	"slices"

	"github.com/rotisserie/eris"
)

// World is the entity table: the sorted list of live ids, the parallel
// component bitmask array, the component registry used on destroy and a
// deferred destruction queue flushed at the end of each frame.
type World struct {
	ids          []EntityID
	flags        []ComponentFlags
	gen          *IDGenerator
	registry     *Registry
	destroyQueue []EntityID
}

func NewWorld(seed int64) *World {
	return &World{
		ids:          make([]EntityID, 0, 256),
		flags:        make([]ComponentFlags, 0, 256),
		gen:          NewIDGenerator(seed),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Registry() *Registry { return w.registry }

// IDs returns the live ids, sorted ascending. The slice must not be modified.
func (w *World) IDs() []EntityID { return w.ids }

// Flags returns the bitmasks parallel to IDs. The slice must not be modified.
func (w *World) Flags() []ComponentFlags { return w.flags }

func (w *World) Len() int { return len(w.ids) }

// Create allocates n fresh ids with zeroed flags and returns them sorted.
func (w *World) Create(n int) ([]EntityID, error) {
	if n <= 0 {
		return nil, eris.Wrapf(ErrPrecondition, "entities count must be > 0, got %d", n)
	}
	created := w.gen.Generate(w.ids, n)
	for _, id := range created {
		var pos int
		w.ids, pos = InsertSorted(w.ids, id)
		w.flags = InsertAt(w.flags, pos, 0)
	}
	return created, nil
}

func (w *World) Alive(id EntityID) bool {
	return Contains(w.ids, id)
}

// AllAlive reports whether every id is live.
func (w *World) AllAlive(ids []EntityID) bool {
	for _, id := range ids {
		if !Contains(w.ids, id) {
			return false
		}
	}
	return true
}

// MustExist fails with ErrNotFound naming the first unknown id.
func (w *World) MustExist(ids []EntityID) error {
	for _, id := range ids {
		if !Contains(w.ids, id) {
			return notFound(id)
		}
	}
	return nil
}

// FlagsOf returns the bitmask of one entity.
func (w *World) FlagsOf(id EntityID) (ComponentFlags, bool) {
	i := IndexOf(w.ids, id)
	if i < 0 {
		return 0, false
	}
	return w.flags[i], true
}

// SetComponent sets the bits of the given types on every id. Ids must be live.
func (w *World) SetComponent(ids []EntityID, types ...ComponentType) {
	mask := FlagsOf(types...)
	for _, id := range ids {
		if i := IndexOf(w.ids, id); i >= 0 {
			w.flags[i] |= mask
		}
	}
}

// Restore replaces the whole table. Used when loading a scene.
func (w *World) Restore(ids []EntityID, flags []ComponentFlags) error {
	if err := CheckLen("entity flags", len(flags), len(ids)); err != nil {
		return err
	}
	if !IsStrictlySorted(ids) || slices.Contains(ids, InvalidEntityID) {
		return eris.Wrap(ErrCorruptData, "entity ids are not strictly ascending")
	}
	w.ids = slices.Clone(ids)
	w.flags = slices.Clone(flags)
	w.destroyQueue = w.destroyQueue[:0]
	return nil
}

// Destroy removes the entities from every registered system and from the
// table. Unknown ids are ignored.
func (w *World) Destroy(ids []EntityID) {
	if len(ids) == 0 {
		return
	}
	w.registry.RemoveAll(ids)
	for _, id := range ids {
		if i := IndexOf(w.ids, id); i >= 0 {
			w.ids = RemoveAt(w.ids, i)
			w.flags = RemoveAt(w.flags, i)
		}
	}
}

// MarkForDestruction queues an entity for end-of-frame cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// PendingDestruction returns the number of queued entities.
func (w *World) PendingDestruction() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys all queued entities and returns them.
// Called by the cleanup system at the end of each frame.
func (w *World) FlushDestroyQueue() []EntityID {
	if len(w.destroyQueue) == 0 {
		return nil
	}
	ids := SortedUnique(w.destroyQueue)
	w.Destroy(ids)
	w.destroyQueue = w.destroyQueue[:0]
	return ids
}
