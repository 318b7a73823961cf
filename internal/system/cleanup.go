package system

import (
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/event"
	coresys "github.com/dxengine/engine/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at frame end.
// Phase 5 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	bus   *event.Bus
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, bus *event.Bus, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: world, bus: bus, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_, _ float32) {
	ids := s.world.FlushDestroyQueue()
	if len(ids) == 0 {
		return
	}
	s.log.Debug("destroyed queued entities", zap.Int("count", len(ids)))
	if s.bus != nil {
		event.Emit(s.bus, event.EntitiesDestroyed{IDs: ids})
	}
}
