package event

import (
	"testing"

	"github.com/dxengine/engine/internal/core/ecs"
)

// go test -run ^TestBusDoubleBuffer$ . -count 1
func TestBusDoubleBuffer(t *testing.T) {
	b := NewBus()
	var created []ecs.EntityID
	var added int
	Subscribe(b, func(e EntitiesCreated) { created = append(created, e.IDs...) })
	Subscribe(b, func(e ComponentAdded) { added += len(e.IDs) })

	Emit(b, EntitiesCreated{IDs: []ecs.EntityID{1, 2}})
	Emit(b, ComponentAdded{Type: ecs.TransformComponent, IDs: []ecs.EntityID{1}})
	if b.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", b.Pending())
	}

	// Nothing is delivered before the swap.
	b.DispatchAll()
	if len(created) != 0 {
		t.Fatal("event delivered before SwapBuffers")
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(created) != 2 || added != 1 {
		t.Errorf("created=%v added=%d", created, added)
	}

	// A second swap drops the already delivered events.
	b.SwapBuffers()
	b.DispatchAll()
	if len(created) != 2 {
		t.Errorf("events delivered twice: %v", created)
	}
}
