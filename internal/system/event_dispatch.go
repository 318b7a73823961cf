package system

import (
	"github.com/dxengine/engine/internal/core/event"
	coresys "github.com/dxengine/engine/internal/core/system"
)

// EventDispatchSystem makes last frame's events visible and delivers them.
// Phase 0 (Events).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventDispatchSystem) Update(_, _ float32) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
