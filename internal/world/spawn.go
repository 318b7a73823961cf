package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/data"
)

var shaderNames = map[string]component.ShaderType{
	"color":   component.ShaderColor,
	"texture": component.ShaderTexture,
	"light":   component.ShaderLight,
}

var topologyNames = map[string]component.PrimitiveTopology{
	"point_list":     component.TopologyPointList,
	"line_list":      component.TopologyLineList,
	"line_strip":     component.TopologyLineStrip,
	"triangle_list":  component.TopologyTriangleList,
	"triangle_strip": component.TopologyTriangleStrip,
}

var boundingNames = map[string]component.BoundingType{
	"sphere": component.BoundingSphere,
	"aabb":   component.BoundingAABB,
}

// SpawnScene creates the entities described by scene and returns how many
// were created. If an entity description is rejected, the entities created
// by this call are destroyed again.
func SpawnScene(m *EntityManager, scene *data.Scene) (int, error) {
	var created []ecs.EntityID
	for i := range scene.Entities {
		ids, err := spawnEntity(m, &scene.Entities[i])
		created = append(created, ids...)
		if err != nil {
			if len(created) > 0 {
				_ = m.DestroyEntities(created)
			}
			return 0, eris.Wrapf(err, "spawn entity %d (%s)", i, scene.Entities[i].Name)
		}
	}
	m.log.Info("scene spawned", zap.Int("entities", len(created)))
	return len(created), nil
}

// spawnEntity returns the ids it created even when a component is rejected.
func spawnEntity(m *EntityManager, d *data.EntityDesc) ([]ecs.EntityID, error) {
	n := d.Count
	ids, err := m.CreateEntities(n)
	if err != nil {
		return nil, err
	}

	if d.Name != "" {
		names := make([]string, n)
		for i := range names {
			names[i] = d.Name
			if n > 1 {
				names[i] = fmt.Sprintf("%s_%d", d.Name, i)
			}
		}
		if err := m.AddNameComponent(ids, names); err != nil {
			return ids, err
		}
	}

	if t := d.Transform; t != nil {
		q := quat(t.Direction)
		if err := m.AddTransformComponent(ids,
			repeat(mgl32.Vec3(t.Position), n), repeat(q, n), repeat(t.Scale, n)); err != nil {
			return ids, err
		}
	}

	if mv := d.Move; mv != nil {
		q := quat(mv.Rotation)
		if err := m.AddMoveComponent(ids,
			repeat(mgl32.Vec3(mv.Translation), n), repeat(q, n), repeat(mv.ScaleFactor, n)); err != nil {
			return ids, err
		}
	}

	if len(d.Meshes) > 0 {
		meshIDs := make([]component.MeshID, len(d.Meshes))
		for i, id := range d.Meshes {
			meshIDs[i] = component.MeshID(id)
		}
		if err := m.AddMeshComponent(ids, meshIDs); err != nil {
			return ids, err
		}
	}

	if r := d.Render; r != nil {
		shader, ok := shaderNames[r.Shader]
		if !ok {
			return ids, eris.Wrapf(ecs.ErrPrecondition, "unknown shader %q", r.Shader)
		}
		topology := component.TopologyTriangleList
		if r.Topology != "" {
			if topology, ok = topologyNames[r.Topology]; !ok {
				return ids, eris.Wrapf(ecs.ErrPrecondition, "unknown topology %q", r.Topology)
			}
		}
		if err := m.AddRenderingComponent(ids, repeat(shader, n), repeat(topology, n)); err != nil {
			return ids, err
		}
	}

	if len(d.RenderStates) > 0 {
		states := make([]component.RenderState, len(d.RenderStates))
		for i, name := range d.RenderStates {
			s, ok := component.ParseRenderState(name)
			if !ok {
				return ids, eris.Wrapf(ecs.ErrPrecondition, "unknown render state %q", name)
			}
			states[i] = s
		}
		if err := m.AddRenderStatesComponent(ids, repeat(states, n)); err != nil {
			return ids, err
		}
	}

	if tx := d.Textures; tx != nil {
		texIDs := make([]component.TexID, len(tx.IDs))
		for i, id := range tx.IDs {
			texIDs[i] = component.TexID(id)
		}
		if err := m.AddTexturedComponent(ids, repeat(texIDs, n), repeat(tx.Paths, n)); err != nil {
			return ids, err
		}
	}

	if tt := d.TexTransform; tt != nil {
		params, err := texTransformParams(tt, n)
		if err != nil {
			return ids, err
		}
		if err := m.AddTextureTransformComponent(ids, params); err != nil {
			return ids, err
		}
	}

	if l := d.Light; l != nil {
		params, err := lightParams(l, n)
		if err != nil {
			return ids, err
		}
		if err := m.AddLightComponent(ids, params); err != nil {
			return ids, err
		}
	}

	if b := d.Bounding; b != nil {
		typ, ok := boundingNames[b.Type]
		if !ok {
			return ids, eris.Wrapf(ecs.ErrPrecondition, "unknown bounding type %q", b.Type)
		}
		if err := m.AddBoundingComponent(ids, repeat(typ, n),
			repeat(mgl32.Vec3(b.Center), n), repeat(mgl32.Vec3(b.Extents), n)); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

func texTransformParams(d *data.TexTransformDesc, n int) (component.TexTransformParams, error) {
	switch d.Type {
	case "static":
		return component.StaticTexTransformParams{
			InitTransforms:   repeat(mgl32.Ident4(), n),
			UpdateTransforms: repeat(mgl32.Translate3D(d.Scroll[0], d.Scroll[1], d.Scroll[2]), n),
		}, nil
	case "atlas":
		return component.AtlasAnimParams{
			TexRows:        repeat(d.Rows, n),
			TexColumns:     repeat(d.Columns, n),
			FrameDurations: repeat(d.FrameDuration, n),
		}, nil
	case "rotation":
		return component.RotationAroundCoordParams{
			Centers: repeat(mgl32.Vec2(d.Center), n),
			Speeds:  repeat(d.Speed, n),
		}, nil
	}
	return nil, eris.Wrapf(ecs.ErrPrecondition, "unknown texture transform type %q", d.Type)
}

func lightParams(d *data.LightDesc, n int) (component.LightParams, error) {
	amb, dif, spec := mgl32.Vec4(d.Ambient), mgl32.Vec4(d.Diffuse), mgl32.Vec4(d.Specular)
	switch d.Type {
	case "directional":
		return component.DirLightParams{
			Ambients:   repeat(amb, n),
			Diffuses:   repeat(dif, n),
			Speculars:  repeat(spec, n),
			Directions: repeat(mgl32.Vec3(d.Direction), n),
		}, nil
	case "point":
		return component.PointLightParams{
			Ambients:     repeat(amb, n),
			Diffuses:     repeat(dif, n),
			Speculars:    repeat(spec, n),
			Positions:    repeat(mgl32.Vec3(d.Position), n),
			Ranges:       repeat(d.Range, n),
			Attenuations: repeat(mgl32.Vec3(d.Attenuation), n),
		}, nil
	case "spot":
		return component.SpotLightParams{
			Ambients:      repeat(amb, n),
			Diffuses:      repeat(dif, n),
			Speculars:     repeat(spec, n),
			Positions:     repeat(mgl32.Vec3(d.Position), n),
			Directions:    repeat(mgl32.Vec3(d.Direction), n),
			Ranges:        repeat(d.Range, n),
			SpotExponents: repeat(d.Spot, n),
			Attenuations:  repeat(mgl32.Vec3(d.Attenuation), n),
		}, nil
	}
	return nil, eris.Wrapf(ecs.ErrPrecondition, "unknown light type %q", d.Type)
}

func quat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

func repeat[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}
