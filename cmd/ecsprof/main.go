// Profiling:
// go build ./cmd/ecsprof
// ./ecsprof -scenario query -mode cpu
// go tool pprof -http=":8000" -nodefraction=0.001 ./ecsprof cpu.pprof

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/profile"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/system"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type tag struct{}

var scenarios = map[string]func(rounds, iters, entities int){
	"spawn":    runSpawn,
	"query":    runQuery,
	"migrate":  runMigrate,
	"schedule": runSchedule,
}

func main() {
	scenario := flag.String("scenario", "query", "spawn, query, migrate or schedule")
	mode := flag.String("mode", "mem", "cpu or mem")
	rounds := flag.Int("rounds", 50, "worlds built")
	iters := flag.Int("iters", 1000, "iterations per world")
	entities := flag.Int("entities", 10000, "entities per world")
	flag.Parse()

	fn, ok := scenarios[*scenario]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *scenario)
		os.Exit(2)
	}
	var p interface{ Stop() }
	switch *mode {
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		p = profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	}
	fn(*rounds, *iters, *entities)
	p.Stop()
}

func runSpawn(rounds, iters, numEntities int) {
	for range rounds {
		w := ecs.NewWorld()
		for range iters {
			ids := make([]ecs.EntityID, 0, numEntities)
			for range numEntities {
				ids = append(ids, w.Spawn(comp1{}, comp2{V: 1, W: 1}))
			}
			for _, id := range ids {
				w.Despawn(id)
			}
		}
	}
}

func runQuery(rounds, iters, numEntities int) {
	for range rounds {
		w := ecs.NewWorld()
		for range numEntities {
			w.Spawn(comp1{}, comp2{V: 1, W: 1})
		}
		q := ecs.NewQuery[struct {
			C1 ecs.Mut[comp1]
			C2 ecs.Ref[comp2]
		}](w)
		for range iters {
			for e := range q.Iter() {
				c1, c2 := e.C1.Peek(), e.C2.Get()
				c1.V += c2.V
				c1.W += c2.W
			}
		}
	}
}

func runMigrate(rounds, iters, numEntities int) {
	for range rounds {
		w := ecs.NewWorld()
		ids := make([]ecs.EntityID, 0, numEntities)
		for range numEntities {
			ids = append(ids, w.Spawn(comp1{}))
		}
		for range iters {
			for _, id := range ids {
				w.Insert(id, tag{})
			}
			for _, id := range ids {
				ecs.Remove[tag](w, id)
			}
		}
	}
}

func runSchedule(rounds, iters, numEntities int) {
	for range rounds {
		w := ecs.NewWorld()
		for range numEntities {
			w.Spawn(comp1{}, comp2{V: 1, W: 1})
		}
		s := system.New(w, system.Config{}, nil)
		s.AddPhase(system.Update, system.Placement[system.PhaseLabel]{})
		s.AddSystem(system.Update, func(q *ecs.Query[struct {
			C1 ecs.Mut[comp1]
			C2 ecs.Ref[comp2]
		}]) {
			for e := range q.Iter() {
				e.C1.Get().V += e.C2.Get().V
			}
		})
		s.AddSystem(system.Update, func(q *ecs.Query[struct{ C2 ecs.Mut[comp2] }]) {
			for e := range q.Iter() {
				e.C2.Get().W++
			}
		})
		for range iters {
			s.Run()
		}
		s.Close()
	}
}
