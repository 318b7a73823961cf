package system

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/scenefile"
	coresys "github.com/dxengine/engine/internal/core/system"
)

// orbit of animated lights around the origin
const (
	lightOrbitRadius = 30
	lightOrbitSpeed  = 0.2
	sunHeight        = -0.57735
	pointLightHeight = 3
)

// LightSystem owns directional, point and spot lights.
// Phase 4 (Light).
type LightSystem struct {
	light   *component.Light
	animate bool
	log     *zap.Logger
}

func NewLightSystem(l *component.Light, log *zap.Logger) *LightSystem {
	return &LightSystem{light: l, log: log}
}

// SetAnimated turns the orbiting of directional and point lights on or off.
func (s *LightSystem) SetAnimated(on bool) { s.animate = on }

func (s *LightSystem) Phase() coresys.Phase { return coresys.PhaseLight }

// Update circles the sun direction and every point light around the
// origin, driven by totalTime. No-op unless animation is on.
func (s *LightSystem) Update(totalTime, _ float32) {
	if !s.animate {
		return
	}
	angle := float64(lightOrbitSpeed * totalTime)
	x := float32(lightOrbitRadius * math.Cos(angle))
	z := float32(lightOrbitRadius * math.Sin(angle))

	sun := mgl32.Vec3{x, sunHeight, z}.Normalize()
	for i := range s.light.Dir.Data {
		s.light.Dir.Data[i].Direction = sun
	}
	for i := range s.light.Point.Data {
		s.light.Point.Data[i].Position = mgl32.Vec3{x, pointLightHeight, z}
	}
}

func (s *LightSystem) Len() int { return len(s.light.IDs) }

// IDs returns the sorted ids of entities having any light. The slice must
// not be modified.
func (s *LightSystem) IDs() []ecs.EntityID { return s.light.IDs }

func (s *LightSystem) GetLightsNum(t component.LightType) int {
	switch t {
	case component.LightDirectional:
		return len(s.light.Dir.IDs)
	case component.LightPoint:
		return len(s.light.Point.IDs)
	case component.LightSpot:
		return len(s.light.Spot.IDs)
	}
	return 0
}

// ValidateLightParams checks the per-kind arrays against n ids.
func ValidateLightParams(n int, params component.LightParams) error {
	if params == nil {
		return eris.Wrap(ecs.ErrPrecondition, "nil light params")
	}
	if err := ecs.CheckLen("ambients", params.Len(), n); err != nil {
		return err
	}
	switch p := params.(type) {
	case component.DirLightParams:
		return ecs.FirstErr(
			ecs.CheckLen("diffuses", len(p.Diffuses), n),
			ecs.CheckLen("speculars", len(p.Speculars), n),
			ecs.CheckLen("directions", len(p.Directions), n),
		)
	case component.PointLightParams:
		return ecs.FirstErr(
			ecs.CheckLen("diffuses", len(p.Diffuses), n),
			ecs.CheckLen("speculars", len(p.Speculars), n),
			ecs.CheckLen("positions", len(p.Positions), n),
			ecs.CheckLen("ranges", len(p.Ranges), n),
			ecs.CheckLen("attenuations", len(p.Attenuations), n),
		)
	case component.SpotLightParams:
		return ecs.FirstErr(
			ecs.CheckLen("diffuses", len(p.Diffuses), n),
			ecs.CheckLen("speculars", len(p.Speculars), n),
			ecs.CheckLen("positions", len(p.Positions), n),
			ecs.CheckLen("directions", len(p.Directions), n),
			ecs.CheckLen("ranges", len(p.Ranges), n),
			ecs.CheckLen("spot exponents", len(p.SpotExponents), n),
			ecs.CheckLen("attenuations", len(p.Attenuations), n),
		)
	}
	return eris.Wrapf(ecs.ErrPrecondition, "unknown light params %T", params)
}

// invertAttenuation stores 1/a per channel so shaders multiply instead of
// divide. Zero channels stay zero.
func invertAttenuation(a mgl32.Vec3) mgl32.Vec3 {
	var out mgl32.Vec3
	for i, v := range a {
		if v != 0 {
			out[i] = 1 / v
		}
	}
	return out
}

// AddRecords inserts lights of the params' kind. Ids must not have a light
// yet and params must have passed validation.
func (s *LightSystem) AddRecords(ids []ecs.EntityID, params component.LightParams) {
	l := s.light
	switch p := params.(type) {
	case component.DirLightParams:
		for i, id := range ids {
			var pos int
			l.Dir.IDs, pos = ecs.InsertSorted(l.Dir.IDs, id)
			l.Dir.Data = ecs.InsertAt(l.Dir.Data, pos, component.DirLight{
				Ambient:   p.Ambients[i],
				Diffuse:   p.Diffuses[i],
				Specular:  p.Speculars[i],
				Direction: p.Directions[i].Normalize(),
			})
		}
	case component.PointLightParams:
		for i, id := range ids {
			var pos int
			l.Point.IDs, pos = ecs.InsertSorted(l.Point.IDs, id)
			l.Point.Data = ecs.InsertAt(l.Point.Data, pos, component.PointLight{
				Ambient:  p.Ambients[i],
				Diffuse:  p.Diffuses[i],
				Specular: p.Speculars[i],
				Position: p.Positions[i],
				Range:    p.Ranges[i],
				Att:      invertAttenuation(p.Attenuations[i]),
			})
		}
	case component.SpotLightParams:
		for i, id := range ids {
			var pos int
			l.Spot.IDs, pos = ecs.InsertSorted(l.Spot.IDs, id)
			l.Spot.Data = ecs.InsertAt(l.Spot.Data, pos, component.SpotLight{
				Ambient:   p.Ambients[i],
				Diffuse:   p.Diffuses[i],
				Specular:  p.Speculars[i],
				Position:  p.Positions[i],
				Range:     p.Ranges[i],
				Direction: p.Directions[i].Normalize(),
				Spot:      p.SpotExponents[i],
				Att:       invertAttenuation(p.Attenuations[i]),
			})
		}
	default:
		return
	}
	for _, id := range ids {
		l.IDs = ecs.InsertUnique(l.IDs, id)
	}
}

func (s *LightSystem) GetDirLight(id ecs.EntityID) (component.DirLight, error) {
	idx := ecs.IndexOf(s.light.Dir.IDs, id)
	if idx < 0 {
		return component.DirLight{}, eris.Wrapf(ecs.ErrNotFound, "directional light of entity %d", id)
	}
	return s.light.Dir.Data[idx], nil
}

func (s *LightSystem) GetPointLight(id ecs.EntityID) (component.PointLight, error) {
	idx := ecs.IndexOf(s.light.Point.IDs, id)
	if idx < 0 {
		return component.PointLight{}, eris.Wrapf(ecs.ErrNotFound, "point light of entity %d", id)
	}
	return s.light.Point.Data[idx], nil
}

func (s *LightSystem) GetSpotLight(id ecs.EntityID) (component.SpotLight, error) {
	idx := ecs.IndexOf(s.light.Spot.IDs, id)
	if idx < 0 {
		return component.SpotLight{}, eris.Wrapf(ecs.ErrNotFound, "spot light of entity %d", id)
	}
	return s.light.Spot.Data[idx], nil
}

func badProp(prop component.LightProp, kind component.LightType) error {
	return eris.Wrapf(ecs.ErrPrecondition, "light property %d does not apply to %s lights with this value type", prop, kind)
}

// SetLightVec4 sets a color property (ambient, diffuse, specular) of the
// light owned by id, whatever its kind.
func (s *LightSystem) SetLightVec4(id ecs.EntityID, prop component.LightProp, v mgl32.Vec4) error {
	var amb, diff, spec *mgl32.Vec4
	l := s.light
	switch {
	case ecs.Contains(l.Dir.IDs, id):
		d := &l.Dir.Data[ecs.IndexOf(l.Dir.IDs, id)]
		amb, diff, spec = &d.Ambient, &d.Diffuse, &d.Specular
	case ecs.Contains(l.Point.IDs, id):
		d := &l.Point.Data[ecs.IndexOf(l.Point.IDs, id)]
		amb, diff, spec = &d.Ambient, &d.Diffuse, &d.Specular
	case ecs.Contains(l.Spot.IDs, id):
		d := &l.Spot.Data[ecs.IndexOf(l.Spot.IDs, id)]
		amb, diff, spec = &d.Ambient, &d.Diffuse, &d.Specular
	default:
		return eris.Wrapf(ecs.ErrNotFound, "light of entity %d", id)
	}
	switch prop {
	case component.LightAmbient:
		*amb = v
	case component.LightDiffuse:
		*diff = v
	case component.LightSpecular:
		*spec = v
	default:
		return eris.Wrapf(ecs.ErrPrecondition, "light property %d is not a color", prop)
	}
	return nil
}

// SetLightVec3 sets position, direction or attenuation. Directions are
// normalized and attenuations inverted, as on insert.
func (s *LightSystem) SetLightVec3(id ecs.EntityID, prop component.LightProp, v mgl32.Vec3) error {
	l := s.light
	if idx := ecs.IndexOf(l.Dir.IDs, id); idx >= 0 {
		if prop != component.LightDirection {
			return badProp(prop, component.LightDirectional)
		}
		l.Dir.Data[idx].Direction = v.Normalize()
		return nil
	}
	if idx := ecs.IndexOf(l.Point.IDs, id); idx >= 0 {
		d := &l.Point.Data[idx]
		switch prop {
		case component.LightPosition:
			d.Position = v
		case component.LightAttenuation:
			d.Att = invertAttenuation(v)
		default:
			return badProp(prop, component.LightPoint)
		}
		return nil
	}
	if idx := ecs.IndexOf(l.Spot.IDs, id); idx >= 0 {
		d := &l.Spot.Data[idx]
		switch prop {
		case component.LightPosition:
			d.Position = v
		case component.LightDirection:
			d.Direction = v.Normalize()
		case component.LightAttenuation:
			d.Att = invertAttenuation(v)
		default:
			return badProp(prop, component.LightSpot)
		}
		return nil
	}
	return eris.Wrapf(ecs.ErrNotFound, "light of entity %d", id)
}

// SetLightFloat sets range or spot exponent of a point or spot light.
func (s *LightSystem) SetLightFloat(id ecs.EntityID, prop component.LightProp, v float32) error {
	l := s.light
	if idx := ecs.IndexOf(l.Point.IDs, id); idx >= 0 {
		if prop != component.LightRange {
			return badProp(prop, component.LightPoint)
		}
		l.Point.Data[idx].Range = v
		return nil
	}
	if idx := ecs.IndexOf(l.Spot.IDs, id); idx >= 0 {
		switch prop {
		case component.LightRange:
			l.Spot.Data[idx].Range = v
		case component.LightSpotExp:
			l.Spot.Data[idx].Spot = v
		default:
			return badProp(prop, component.LightSpot)
		}
		return nil
	}
	if ecs.Contains(l.Dir.IDs, id) {
		return badProp(prop, component.LightDirectional)
	}
	return eris.Wrapf(ecs.ErrNotFound, "light of entity %d", id)
}

// AttachFlashlight moves the first spot light to the camera so it acts as
// a flashlight.
func (s *LightSystem) AttachFlashlight(camPos, camDir mgl32.Vec3) {
	if len(s.light.Spot.Data) == 0 {
		return
	}
	s.light.Spot.Data[0].Position = camPos
	s.light.Spot.Data[0].Direction = camDir.Normalize()
}

// RemoveRecords deletes the lights of the given ids keeping the order.
func (s *LightSystem) RemoveRecords(ids []ecs.EntityID) {
	l := s.light
	for _, id := range ids {
		if idx := ecs.IndexOf(l.Dir.IDs, id); idx >= 0 {
			l.Dir.IDs = ecs.RemoveAt(l.Dir.IDs, idx)
			l.Dir.Data = ecs.RemoveAt(l.Dir.Data, idx)
		}
		if idx := ecs.IndexOf(l.Point.IDs, id); idx >= 0 {
			l.Point.IDs = ecs.RemoveAt(l.Point.IDs, idx)
			l.Point.Data = ecs.RemoveAt(l.Point.Data, idx)
		}
		if idx := ecs.IndexOf(l.Spot.IDs, id); idx >= 0 {
			l.Spot.IDs = ecs.RemoveAt(l.Spot.IDs, idx)
			l.Spot.Data = ecs.RemoveAt(l.Spot.Data, idx)
		}
		l.IDs = ecs.RemoveSorted(l.IDs, id)
	}
}

// Serialize writes the three light stores one after another, each as
// [count][ids][data]. The union id list is rebuilt on load.
func (s *LightSystem) Serialize(w *scenefile.Writer) {
	l := s.light
	scenefile.MarkBlock(w, ecs.LightComponent)

	writeIDs(w, l.Dir.IDs)
	for _, d := range l.Dir.Data {
		w.WriteVec4(d.Ambient)
		w.WriteVec4(d.Diffuse)
		w.WriteVec4(d.Specular)
		w.WriteVec3(d.Direction)
	}

	writeIDs(w, l.Point.IDs)
	for _, d := range l.Point.Data {
		w.WriteVec4(d.Ambient)
		w.WriteVec4(d.Diffuse)
		w.WriteVec4(d.Specular)
		w.WriteVec3(d.Position)
		w.WriteF32(d.Range)
		w.WriteVec3(d.Att)
	}

	writeIDs(w, l.Spot.IDs)
	for _, d := range l.Spot.Data {
		w.WriteVec4(d.Ambient)
		w.WriteVec4(d.Diffuse)
		w.WriteVec4(d.Specular)
		w.WriteVec3(d.Position)
		w.WriteF32(d.Range)
		w.WriteVec3(d.Direction)
		w.WriteF32(d.Spot)
		w.WriteVec3(d.Att)
	}
}

func (s *LightSystem) Deserialize(r *scenefile.Reader, h scenefile.Header) error {
	if err := scenefile.OpenBlock(r, h, ecs.LightComponent); err != nil {
		return err
	}
	var l component.Light

	n := r.ReadCount(64)
	l.Dir.IDs = readIDs(r, n)
	l.Dir.Data = make([]component.DirLight, n)
	for i := range l.Dir.Data {
		l.Dir.Data[i] = component.DirLight{
			Ambient:   r.ReadVec4(),
			Diffuse:   r.ReadVec4(),
			Specular:  r.ReadVec4(),
			Direction: r.ReadVec3(),
		}
	}

	n = r.ReadCount(80)
	l.Point.IDs = readIDs(r, n)
	l.Point.Data = make([]component.PointLight, n)
	for i := range l.Point.Data {
		l.Point.Data[i] = component.PointLight{
			Ambient:  r.ReadVec4(),
			Diffuse:  r.ReadVec4(),
			Specular: r.ReadVec4(),
			Position: r.ReadVec3(),
			Range:    r.ReadF32(),
			Att:      r.ReadVec3(),
		}
	}

	n = r.ReadCount(96)
	l.Spot.IDs = readIDs(r, n)
	l.Spot.Data = make([]component.SpotLight, n)
	for i := range l.Spot.Data {
		l.Spot.Data[i] = component.SpotLight{
			Ambient:   r.ReadVec4(),
			Diffuse:   r.ReadVec4(),
			Specular:  r.ReadVec4(),
			Position:  r.ReadVec3(),
			Range:     r.ReadF32(),
			Direction: r.ReadVec3(),
			Spot:      r.ReadF32(),
			Att:       r.ReadVec3(),
		}
	}

	if err := r.Err(); err != nil {
		return eris.Wrap(err, "light block")
	}
	for _, ids := range [][]ecs.EntityID{l.Dir.IDs, l.Point.IDs, l.Spot.IDs} {
		if err := checkIDs(ids, "light"); err != nil {
			return err
		}
		for _, id := range ids {
			l.IDs = ecs.InsertUnique(l.IDs, id)
		}
	}
	*s.light = l
	return nil
}
