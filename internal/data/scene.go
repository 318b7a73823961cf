package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TransformDesc places an entity. Direction is a quaternion (x, y, z, w).
type TransformDesc struct {
	Position  [3]float32 `yaml:"position"`
	Direction [4]float32 `yaml:"direction"`
	Scale     float32    `yaml:"scale"`
}

// MoveDesc is per-second translation and scale factor plus a per-frame
// rotation quaternion (x, y, z, w).
type MoveDesc struct {
	Translation [3]float32 `yaml:"translation"`
	Rotation    [4]float32 `yaml:"rotation"`
	ScaleFactor float32    `yaml:"scale_factor"`
}

type RenderDesc struct {
	Shader   string `yaml:"shader"`   // color, texture, light
	Topology string `yaml:"topology"` // point_list, line_list, line_strip, triangle_list, triangle_strip
}

type TexturesDesc struct {
	IDs   []uint32 `yaml:"ids"`
	Paths []string `yaml:"paths"`
}

// TexTransformDesc selects one texture transform kind by Type:
// static (Scroll per second), atlas (Rows, Columns, FrameDuration) or
// rotation (Center, Speed in radians per second).
type TexTransformDesc struct {
	Type          string     `yaml:"type"`
	Scroll        [3]float32 `yaml:"scroll"`
	Rows          uint32     `yaml:"rows"`
	Columns       uint32     `yaml:"columns"`
	FrameDuration float32    `yaml:"frame_duration"`
	Center        [2]float32 `yaml:"center"`
	Speed         float32    `yaml:"speed"`
}

type LightDesc struct {
	Type        string     `yaml:"type"` // directional, point, spot
	Ambient     [4]float32 `yaml:"ambient"`
	Diffuse     [4]float32 `yaml:"diffuse"`
	Specular    [4]float32 `yaml:"specular"`
	Direction   [3]float32 `yaml:"direction"`
	Position    [3]float32 `yaml:"position"`
	Range       float32    `yaml:"range"`
	Attenuation [3]float32 `yaml:"attenuation"`
	Spot        float32    `yaml:"spot"`
}

type BoundingDesc struct {
	Type    string     `yaml:"type"` // sphere, aabb
	Center  [3]float32 `yaml:"center"`
	Extents [3]float32 `yaml:"extents"`
}

// EntityDesc describes Count identical entities. With Count > 1 names get
// a _N suffix starting at 0.
type EntityDesc struct {
	Name         string            `yaml:"name"`
	Count        int               `yaml:"count"`
	Transform    *TransformDesc    `yaml:"transform"`
	Move         *MoveDesc         `yaml:"move"`
	Meshes       []uint32          `yaml:"meshes"`
	Render       *RenderDesc       `yaml:"render"`
	RenderStates []string          `yaml:"render_states"`
	Textures     *TexturesDesc     `yaml:"textures"`
	TexTransform *TexTransformDesc `yaml:"tex_transform"`
	Light        *LightDesc        `yaml:"light"`
	Bounding     *BoundingDesc     `yaml:"bounding"`
}

// Scene is a YAML scene description.
type Scene struct {
	Entities []EntityDesc `yaml:"entities"`
}

// LoadScene loads a scene description file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	s, err := ParseScene(raw)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

// ParseScene decodes a scene description and fills defaults: count 1,
// scale 1, scale factor 1, identity quaternions.
func ParseScene(raw []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	for i := range s.Entities {
		e := &s.Entities[i]
		if e.Count == 0 {
			e.Count = 1
		}
		if e.Count < 0 {
			return nil, fmt.Errorf("entity %d (%s): negative count %d", i, e.Name, e.Count)
		}
		if t := e.Transform; t != nil {
			if t.Scale == 0 {
				t.Scale = 1
			}
			if t.Direction == [4]float32{} {
				t.Direction[3] = 1
			}
		}
		if m := e.Move; m != nil {
			if m.ScaleFactor == 0 {
				m.ScaleFactor = 1
			}
			if m.Rotation == [4]float32{} {
				m.Rotation[3] = 1
			}
			if e.Transform == nil {
				return nil, fmt.Errorf("entity %d (%s): move requires a transform", i, e.Name)
			}
		}
	}
	return &s, nil
}

// Count returns the total number of entities the scene creates.
func (s *Scene) Count() int {
	n := 0
	for _, e := range s.Entities {
		n += e.Count
	}
	return n
}

// Marshal encodes the scene back to YAML.
func (s *Scene) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
