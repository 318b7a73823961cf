package scripting

import (
	"go.uber.org/zap"

	coresys "github.com/dxengine/engine/internal/core/system"
)

// ScriptSystem calls the scripts' on_update hook once per frame, after
// movement. A failing hook is logged and the frame goes on.
// Phase 2 (Script).
type ScriptSystem struct {
	engine *Engine
	log    *zap.Logger
}

func NewScriptSystem(engine *Engine, log *zap.Logger) *ScriptSystem {
	return &ScriptSystem{engine: engine, log: log}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseScript }

func (s *ScriptSystem) Update(totalTime, deltaTime float32) {
	if err := s.engine.CallUpdate(totalTime, deltaTime); err != nil {
		s.log.Error("lua on_update error", zap.Error(err))
	}
}
