package ecs

import (
	"testing"

	"github.com/rotisserie/eris"
)

// go test -run ^TestUpperBound$ . -count 1
func TestUpperBound(t *testing.T) {
	keys := []EntityID{2, 4, 4, 8}
	cases := []struct {
		k    EntityID
		want int
	}{
		{1, 0}, {2, 1}, {3, 1}, {4, 3}, {7, 3}, {8, 4}, {9, 4},
	}
	for _, c := range cases {
		if got := UpperBound(keys, c.k); got != c.want {
			t.Errorf("UpperBound(%d) = %d, want %d", c.k, got, c.want)
		}
	}
	if IndexOf(keys, 8) != 3 {
		t.Errorf("IndexOf(8) = %d, want 3", IndexOf(keys, 8))
	}
	if IndexOf(keys, 5) != -1 {
		t.Errorf("IndexOf(5) should be -1")
	}
}

// go test -run ^TestInsertAndRemoveSorted$ . -count 1
func TestInsertAndRemoveSorted(t *testing.T) {
	var keys []EntityID
	for _, k := range []EntityID{50, 10, 30, 20, 40} {
		keys, _ = InsertSorted(keys, k)
	}
	if !IsStrictlySorted(keys) || len(keys) != 5 {
		t.Fatalf("keys not sorted after inserts: %v", keys)
	}
	keys = InsertUnique(keys, 30)
	if len(keys) != 5 {
		t.Errorf("InsertUnique added a duplicate: %v", keys)
	}
	keys = RemoveSorted(keys, 30)
	keys = RemoveSorted(keys, 99)
	if len(keys) != 4 || Contains(keys, 30) || !IsStrictlySorted(keys) {
		t.Errorf("RemoveSorted broke the keys: %v", keys)
	}
}

// go test -run ^TestDataIdxs$ . -count 1
func TestDataIdxs(t *testing.T) {
	ids := []EntityID{3, 5, 9}
	idxs, err := DataIdxs(ids, []EntityID{9, 3})
	if err != nil {
		t.Fatalf("DataIdxs: %v", err)
	}
	if idxs[0] != 2 || idxs[1] != 0 {
		t.Errorf("DataIdxs = %v, want [2 0]", idxs)
	}
	if _, err := DataIdxs(ids, []EntityID{4}); !eris.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// go test -run ^TestComponentFlags$ . -count 1
func TestComponentFlags(t *testing.T) {
	f := FlagsOf(TransformComponent, WorldMatrixComponent)
	if !f.Has(TransformComponent) || !f.Has(WorldMatrixComponent) || f.Has(MoveComponent) {
		t.Errorf("unexpected flags %s", f)
	}
	if !f.HasAll(FlagsOf(TransformComponent)) {
		t.Error("HasAll failed for subset")
	}
	if f.HasAll(FlagsOf(TransformComponent, MoveComponent)) {
		t.Error("HasAll passed for superset")
	}
	if got := f.String(); got != "Transform|WorldMatrix" {
		t.Errorf("String() = %q", got)
	}
	if BoundingComponent.Bit() != 1<<10 {
		t.Errorf("Bounding bit = %b", BoundingComponent.Bit())
	}
}

// go test -run ^TestWorldCreate$ . -count 1
func TestWorldCreate(t *testing.T) {
	w := NewWorld(42)

	if _, err := w.Create(0); !eris.Is(err, ErrPrecondition) {
		t.Fatalf("Create(0) should fail with ErrPrecondition, got %v", err)
	}

	a, err := w.Create(100)
	if err != nil {
		t.Fatal(err)
	}
	b, err := w.Create(250)
	if err != nil {
		t.Fatal(err)
	}
	if !IsStrictlySorted(a) || !IsStrictlySorted(b) {
		t.Error("returned ids are not sorted")
	}
	seen := make(map[EntityID]bool)
	for _, id := range append(append([]EntityID{}, a...), b...) {
		if id == InvalidEntityID {
			t.Fatal("zero id generated")
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if w.Len() != 350 || len(w.Flags()) != 350 {
		t.Fatalf("expected 350 entities, got %d ids / %d flags", w.Len(), len(w.Flags()))
	}
	if !IsStrictlySorted(w.IDs()) {
		t.Error("world ids are not strictly ascending")
	}
	for _, f := range w.Flags() {
		if f != 0 {
			t.Fatal("new entities must have zero flags")
		}
	}
}

type recordingStore struct{ removed []EntityID }

func (s *recordingStore) RemoveRecords(ids []EntityID) { s.removed = append(s.removed, ids...) }

// go test -run ^TestWorldDestroy$ . -count 1
func TestWorldDestroy(t *testing.T) {
	w := NewWorld(7)
	store := &recordingStore{}
	w.Registry().Register(store)

	ids, _ := w.Create(5)
	w.SetComponent(ids, TransformComponent)

	t.Run("Immediate", func(t *testing.T) {
		w.Destroy([]EntityID{ids[1]})
		if w.Alive(ids[1]) || w.Len() != 4 {
			t.Fatalf("entity %d still alive", ids[1])
		}
		if len(store.removed) != 1 || store.removed[0] != ids[1] {
			t.Errorf("registry not notified: %v", store.removed)
		}
		if !IsStrictlySorted(w.IDs()) || len(w.Flags()) != w.Len() {
			t.Error("table out of sync after destroy")
		}
	})

	t.Run("Deferred", func(t *testing.T) {
		w.MarkForDestruction(ids[3])
		w.MarkForDestruction(ids[3])
		if !w.Alive(ids[3]) {
			t.Fatal("marked entity destroyed before flush")
		}
		flushed := w.FlushDestroyQueue()
		if len(flushed) != 1 || w.Alive(ids[3]) {
			t.Fatalf("flush did not destroy the entity: %v", flushed)
		}
		if w.PendingDestruction() != 0 {
			t.Error("queue not cleared")
		}
		f, ok := w.FlagsOf(ids[0])
		if !ok || !f.Has(TransformComponent) {
			t.Error("surviving entity lost its flags")
		}
	})
}
