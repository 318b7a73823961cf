// scenedump prints the content of a binary scene file as a summary or YAML.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/world"
)

type EntityDump struct {
	ID         uint32    `yaml:"id"`
	Name       string    `yaml:"name,omitempty"`
	Components []string  `yaml:"components"`
	Position   []float32 `yaml:"position,omitempty"`
	Meshes     []uint32  `yaml:"meshes,omitempty"`
}

type SceneDump struct {
	Entities   int            `yaml:"entities"`
	Components map[string]int `yaml:"components"`
	List       []EntityDump   `yaml:"list,omitempty"`
}

func main() {
	asYAML := flag.Bool("yaml", false, "print every entity as YAML")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: scenedump [-yaml] <scene.bin>")
		os.Exit(1)
	}

	mgr := world.NewEntityManager(zap.NewNop())
	if err := mgr.Deserialize(flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	dump, err := buildDump(mgr, *asYAML)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *asYAML {
		err = writeYAML(os.Stdout, dump)
	} else {
		writeSummary(os.Stdout, dump)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildDump(mgr *world.EntityManager, full bool) (*SceneDump, error) {
	dump := &SceneDump{Entities: mgr.Len(), Components: make(map[string]int)}
	ids, flags := mgr.IDs(), mgr.Flags()
	for i, id := range ids {
		e := EntityDump{ID: uint32(id)}
		for ct := ecs.ComponentType(0); ct.Valid(); ct++ {
			if flags[i].Has(ct) {
				dump.Components[ct.String()]++
				e.Components = append(e.Components, ct.String())
			}
		}
		if !full {
			continue
		}
		if flags[i].Has(ecs.NameComponent) {
			name, err := mgr.Name().GetNameByID(id)
			if err != nil {
				return nil, err
			}
			e.Name = name
		}
		if flags[i].Has(ecs.TransformComponent) {
			pos, _, _, err := mgr.Transform().GetTransformDataOfEntts([]ecs.EntityID{id})
			if err != nil {
				return nil, err
			}
			e.Position = pos[0][:]
		}
		if flags[i].Has(ecs.MeshComponent) {
			meshes, err := mgr.Mesh().GetMeshesOfEntt(id)
			if err != nil {
				return nil, err
			}
			for _, m := range meshes {
				e.Meshes = append(e.Meshes, uint32(m))
			}
		}
		dump.List = append(dump.List, e)
	}
	return dump, nil
}

func writeYAML(w io.Writer, dump *SceneDump) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(dump); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func writeSummary(w io.Writer, dump *SceneDump) {
	fmt.Fprintf(w, "entities: %d\n", dump.Entities)
	for ct := ecs.ComponentType(0); ct.Valid(); ct++ {
		if n := dump.Components[ct.String()]; n > 0 {
			fmt.Fprintf(w, "  %-17s %d\n", ct.String(), n)
		}
	}
}
