package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

type health struct {
	Max     int `yaml:"max"`
	Current int `yaml:"current"`
}

const demo = `
entities:
  - name: ship
    components:
      transform:
        translation: {x: 1, y: 2}
      health: {max: 10}
    children:
      - name: turret
        components:
          transform:
            translation: {z: 3}
      - name: flare
        components:
          lifetime: {seconds: 0.5}
  - name: marker
`

func registry() *Registry {
	r := NewRegistry()
	Builtins(r)
	Register(r, "health", health{Max: 1, Current: 5})
	return r
}

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(demo), registry())
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Roots) != 2 || sc.Count() != 4 {
		t.Fatalf("roots = %d count = %d", len(sc.Roots), sc.Count())
	}
	ship := sc.Roots[0]
	tr, ok := ship.Components[1].(component.Transform)
	if !ok {
		t.Fatalf("components = %#v", ship.Components)
	}
	if tr.Translation != (component.Vec3{X: 1, Y: 2}) || tr.Scale != component.One || tr.Rotation != component.Identity {
		t.Errorf("transform = %+v", tr)
	}
	if h := ship.Components[2].(health); h.Max != 10 || h.Current != 5 {
		t.Errorf("health = %+v, want defaults kept for omitted fields", h)
	}
	life := ship.Children[1].Components[1].(component.Lifetime)
	if life.Timer.Duration() != 500*time.Millisecond {
		t.Errorf("lifetime = %v", life.Timer.Duration())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown", "entities:\n  - components: {shield: {}}", `unknown component "shield"`},
		{"nested unknown", "entities:\n  - children:\n      - components: {x: 1}", "entities[0].children[0]"},
		{"not a mapping", "entities:\n  - components: [transform]", "must be a mapping"},
		{"bad field", "entities:\n  - components: {health: {max: lots}}", "entities[0].health"},
		{"lifetime", "entities:\n  - components: {lifetime: {seconds: 0}}", "seconds must be positive"},
		{"syntax", "entities: [", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), registry())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSpawnBuildsHierarchy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	if err := os.WriteFile(path, []byte(demo), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := Load(path, registry())
	if err != nil {
		t.Fatal(err)
	}
	w := ecs.NewWorld()
	cmds := ecs.NewCommands(w)
	roots := sc.Spawn(cmds)
	if w.Len() != 0 {
		t.Fatal("scene spawned before the commands were applied")
	}
	if err := w.ApplyCommands(cmds); err != nil {
		t.Fatal(err)
	}

	if w.Len() != 4 {
		t.Fatalf("len = %d", w.Len())
	}
	ship := roots[0]
	children := ecs.MustGet[ecs.Children](w, ship).IDs
	if len(children) != 2 {
		t.Fatalf("children = %v", children)
	}
	if n := ecs.MustGet[component.Name](w, children[0]); n.Value != "turret" {
		t.Errorf("first child = %q", n.Value)
	}
	if !ecs.Has[component.Lifetime](w, children[1]) {
		t.Error("flare has no lifetime")
	}
	if ecs.Has[ecs.Children](w, roots[1]) {
		t.Error("marker has children")
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration accepted")
		}
	}()
	r := registry()
	Register(r, "health", health{})
}
