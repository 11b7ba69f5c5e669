package scene

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

// Registry maps component keys used in scene documents to Go types.
type Registry struct {
	decoders map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Decoder turns a component node into a component value.
type Decoder func(*yaml.Node) (any, error)

// RegisterFunc makes a custom decoder available under name. Registering a
// name twice panics.
func (r *Registry) RegisterFunc(name string, dec Decoder) {
	if _, ok := r.decoders[name]; ok {
		panic(fmt.Sprintf("scene: component %q registered twice", name))
	}
	r.decoders[name] = dec
}

// Register makes T available under name. Documents decode over def, so
// omitted fields keep its values.
func Register[T any](r *Registry, name string, def T) {
	r.RegisterFunc(name, func(n *yaml.Node) (any, error) {
		v := def
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	})
}

// Builtins registers the built-in spatial components.
func Builtins(r *Registry) {
	Register(r, "transform", component.NewTransform(component.Vec3{}))
	r.RegisterFunc("lifetime", decodeLifetime)
}

// decodeLifetime reads `lifetime: {seconds: n}`.
func decodeLifetime(n *yaml.Node) (any, error) {
	var doc struct {
		Seconds float64 `yaml:"seconds"`
	}
	if err := n.Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Seconds <= 0 {
		return nil, fmt.Errorf("seconds must be positive, got %g", doc.Seconds)
	}
	return component.NewLifetime(time.Duration(doc.Seconds * float64(time.Second))), nil
}

type entityDoc struct {
	Name       string      `yaml:"name"`
	Components yaml.Node   `yaml:"components"`
	Children   []entityDoc `yaml:"children"`
}

type document struct {
	Entities []entityDoc `yaml:"entities"`
}

// Entity is a decoded scene entity.
type Entity struct {
	Name       string
	Components []any
	Children   []Entity
}

// Scene is a decoded document, ready to be spawned any number of times.
type Scene struct {
	Roots []Entity
}

// Load reads and decodes a scene file.
func Load(path string, r *Registry) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	sc, err := Parse(raw, r)
	if err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scene document. Every component key must be registered.
func Parse(raw []byte, r *Registry) (*Scene, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	sc := &Scene{Roots: make([]Entity, 0, len(doc.Entities))}
	for i := range doc.Entities {
		e, err := r.decode(&doc.Entities[i], fmt.Sprintf("entities[%d]", i))
		if err != nil {
			return nil, err
		}
		sc.Roots = append(sc.Roots, e)
	}
	return sc, nil
}

func (r *Registry) decode(doc *entityDoc, path string) (Entity, error) {
	e := Entity{Name: doc.Name}
	if doc.Name != "" {
		e.Components = append(e.Components, component.Name{Value: doc.Name})
	}
	if n := &doc.Components; n.Kind != 0 {
		if n.Kind != yaml.MappingNode {
			return e, fmt.Errorf("%s: components must be a mapping (line %d)", path, n.Line)
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			dec, ok := r.decoders[key.Value]
			if !ok {
				return e, fmt.Errorf("%s: unknown component %q (line %d)", path, key.Value, key.Line)
			}
			v, err := dec(val)
			if err != nil {
				return e, fmt.Errorf("%s.%s: %w", path, key.Value, err)
			}
			e.Components = append(e.Components, v)
		}
	}
	for i := range doc.Children {
		child, err := r.decode(&doc.Children[i], fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return e, err
		}
		e.Children = append(e.Children, child)
	}
	return e, nil
}

// Spawn queues the scene on cmds, parents before children, and returns
// the ids reserved for the roots.
func (sc *Scene) Spawn(cmds *ecs.Commands) []ecs.EntityID {
	roots := make([]ecs.EntityID, 0, len(sc.Roots))
	for i := range sc.Roots {
		roots = append(roots, spawn(cmds, &sc.Roots[i]))
	}
	return roots
}

func spawn(cmds *ecs.Commands, e *Entity) ecs.EntityID {
	ec := cmds.Spawn(e.Components...)
	for i := range e.Children {
		ec.AddChild(spawn(cmds, &e.Children[i]))
	}
	return ec.ID()
}

// Count returns the number of entities in the scene.
func (sc *Scene) Count() int {
	var count func([]Entity) int
	count = func(es []Entity) int {
		n := len(es)
		for i := range es {
			n += count(es[i].Children)
		}
		return n
	}
	return count(sc.Roots)
}

// Spawner returns a system that spawns sc once per run.
func Spawner(sc *Scene, log *zap.Logger) func(*ecs.Commands) {
	if log == nil {
		log = zap.NewNop()
	}
	return func(cmds *ecs.Commands) {
		roots := sc.Spawn(cmds)
		log.Debug("scene spawned", zap.Int("roots", len(roots)), zap.Int("entities", sc.Count()))
	}
}
