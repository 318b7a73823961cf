package component

import "github.com/dxengine/engine/internal/core/ecs"

type Name struct {
	IDs   []ecs.EntityID
	Names []string // unique, non-empty
}
