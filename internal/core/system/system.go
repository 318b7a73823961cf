package system

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseEvents   Phase = iota // 0: dispatch last frame's events
	PhaseMove                  // 1: movement into transforms and world matrices
	PhaseScript                // 2: scripted per-frame hooks
	PhaseTexture               // 3: texture transform animations
	PhaseLight                 // 4: light animation
	PhaseCleanup               // 5: destroy queued entities
)

var phaseNames = [...]string{"events", "move", "script", "texture", "light", "cleanup"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is the interface every frame system implements. Times are seconds.
type System interface {
	Phase() Phase
	Update(totalTime, deltaTime float32)
}
