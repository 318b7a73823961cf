package event

import "github.com/dxengine/engine/internal/core/ecs"

// Entity lifecycle notifications emitted by the entity manager.

type EntitiesCreated struct {
	IDs []ecs.EntityID
}

type ComponentAdded struct {
	Type ecs.ComponentType
	IDs  []ecs.EntityID
}

type EntitiesDestroyed struct {
	IDs []ecs.EntityID
}

// SceneLoaded is emitted after a scene file replaced the manager state.
type SceneLoaded struct {
	Entities int
}
