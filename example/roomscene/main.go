package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys"
	"github.com/ishabanya/archphys/config"
	"github.com/ishabanya/archphys/geom"
	"github.com/ishabanya/archphys/logger"
)

// SetupRoom feeds a scanned room into the world: a floor plane and one
// wall, the way the AR collaborator would
func SetupRoom(tracker *archphys.SurfaceTracker) {
	tracker.Handle(archphys.SurfaceEvent{
		Kind:      archphys.SurfaceAdded,
		AnchorID:  "floor-anchor",
		Transform: geom.NewTransformAt(mgl64.Vec3{0, 0, 0}),
		Normal:    mgl64.Vec3{0, 1, 0},
		Extent:    mgl64.Vec3{6, 0, 6},
	})

	tracker.Handle(archphys.SurfaceEvent{
		Kind:      archphys.SurfaceAdded,
		AnchorID:  "wall-anchor",
		Transform: geom.NewTransformAt(mgl64.Vec3{0, 1.5, -3}),
		Normal:    mgl64.Vec3{0, 0, 1},
		Extent:    mgl64.Vec3{6, 3, 0},
	})
}

func dropFurniture(world *archphys.World, log *logger.Logger) []archphys.EntityID {
	var ids []archphys.EntityID

	pieces := []struct {
		name     string
		size     mgl64.Vec3
		mass     float64
		position mgl64.Vec3
	}{
		{"chair", mgl64.Vec3{0.5, 0.9, 0.5}, 6, mgl64.Vec3{-1, 1.2, 0}},
		{"table", mgl64.Vec3{1.2, 0.75, 0.8}, 25, mgl64.Vec3{0.5, 1.0, -0.5}},
		{"lamp", mgl64.Vec3{0.3, 1.5, 0.3}, 4, mgl64.Vec3{1.5, 1.4, 1}},
	}

	for _, piece := range pieces {
		shape, err := geom.NewBox(piece.size)
		if err != nil {
			log.Error("bad shape for %s: %v", piece.name, err)
			continue
		}

		entity, err := archphys.NewEntity(
			geom.NewTransformAt(piece.position),
			shape,
			piece.mass,
			archphys.Material{Friction: 0.6, Restitution: 0.2},
		)
		if err != nil {
			log.Error("creating %s: %v", piece.name, err)
			continue
		}

		id := world.AddEntity(entity)
		log.Info("placed %s (entity %d) at %v", piece.name, id, piece.position)
		ids = append(ids, id)
	}

	return ids
}

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	logLevel := flag.String("log", "info", "log level: debug, info, warn, error")
	steps := flag.Int("steps", 600, "number of simulation steps to run")
	flag.Parse()

	log := logger.New(*logLevel)

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Error("loading config: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	world := archphys.NewWorld(cfg, log)
	snaps := archphys.NewSnapSystem(world, cfg.Snap)
	perf := archphys.NewPerformanceManager(cfg, log)
	world.AttachSnapSystem(snaps)
	world.AttachPerformanceManager(perf)

	world.Events.Subscribe(archphys.OnSleep, func(ev archphys.Event) {
		sleep := ev.(archphys.SleepEvent)
		log.Debug("entity %d fell asleep", sleep.Entity)
	})
	world.Events.Subscribe(archphys.SnapComplete, func(ev archphys.Event) {
		snap := ev.(archphys.SnapCompleteEvent)
		log.Info("entity %d snapped to %s", snap.Entity, snap.Target)
	})

	tracker := archphys.NewSurfaceTracker(world, snaps, log)
	SetupRoom(tracker)

	ids := dropFurniture(world, log)
	perf.SetViewer(mgl64.Vec3{0, 1.6, 2}, mgl64.Vec3{0, -0.2, -1})

	const dt = 1.0 / 60.0
	for step := 0; step < *steps; step++ {
		world.Step(dt)
	}

	stats := world.Stats()
	log.Info("simulated %d steps, last step %.3f ms", stats.StepCount, stats.StepTime*1000)
	log.Info("entities: %d active, %d sleeping, %d snapped",
		stats.ActiveEntities, stats.SleepingEntities, stats.SnappedEntities)
	log.Info("collisions: %d checks, %d contacts, %d grid cells",
		stats.CollisionChecks, stats.Collisions, stats.GridCells)

	for _, id := range ids {
		if e := world.Entity(id); e != nil {
			fmt.Printf("entity %d rests at %v (sleeping=%v)\n",
				id, e.Transform.Position, e.IsSleeping)
		}
	}
}
