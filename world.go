package archphys

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys/config"
	"github.com/ishabanya/archphys/logger"
)

// gridOptimizeInterval is the number of steps between grid compaction sweeps
const gridOptimizeInterval = 300

type entitySlot struct {
	entity     *PhysicsEntity
	generation uint32
}

// World owns every physics entity and runs the per-frame step. All
// mutation is serialized: Step holds the world lock for its duration, and
// registration calls from other goroutines (UI actions, AR surface
// callbacks) take the same lock, so they land between steps.
type World struct {
	mu sync.Mutex

	Gravity mgl64.Vec3

	cfg        *config.Config
	integrator Integrator

	// Slot map: ids carry a generation counter, so stale ids after
	// removal resolve to "not found" instead of a recycled entity.
	slots     []entitySlot
	freeSlots []uint32
	entities  []*PhysicsEntity

	staticColliders map[string]*StaticCollider

	grid     *SpatialGrid
	detector *CollisionDetector
	snaps    *SnapSystem
	perf     *PerformanceManager

	Events Events

	collisions []Collision
	stepCount  uint64
	stats      Stats

	log *logger.Logger
}

// NewWorld creates a world from the given configuration. A nil logger is
// valid and silent.
func NewWorld(cfg *config.Config, log *logger.Logger) *World {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	grid := NewSpatialGrid(cfg.Grid.CellSize)

	w := &World{
		Gravity: mgl64.Vec3{
			cfg.Physics.Gravity[0],
			cfg.Physics.Gravity[1],
			cfg.Physics.Gravity[2],
		},
		cfg:             cfg,
		integrator:      Integrator{MaxVelocity: cfg.Physics.MaxVelocity},
		staticColliders: make(map[string]*StaticCollider),
		grid:            grid,
		detector:        NewCollisionDetector(grid, cfg.Physics.CollisionMargin),
		Events:          NewEvents(),
		log:             log,
	}

	// Slot 0 stays dead so the zero EntityID never resolves
	w.slots = append(w.slots, entitySlot{generation: 1})

	return w
}

// Grid exposes the broad-phase index, for queries by host-side tooling
func (w *World) Grid() *SpatialGrid {
	return w.grid
}

// AttachSnapSystem wires a host-owned snap system into the step
func (w *World) AttachSnapSystem(s *SnapSystem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snaps = s
}

// AttachPerformanceManager wires a host-owned performance manager into
// the step
func (w *World) AttachPerformanceManager(p *PerformanceManager) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.perf = p
}

// AddEntity registers an entity and assigns its id. Safe to call from
// any goroutine; the registration is serialized against Step.
func (w *World) AddEntity(e *PhysicsEntity) EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()

	var index uint32
	if n := len(w.freeSlots); n > 0 {
		index = w.freeSlots[n-1]
		w.freeSlots = w.freeSlots[:n-1]
	} else {
		w.slots = append(w.slots, entitySlot{})
		index = uint32(len(w.slots) - 1)
		w.slots[index].generation = 1
	}

	w.slots[index].entity = e
	e.ID = makeEntityID(index, w.slots[index].generation)
	w.entities = append(w.entities, e)

	e.UpdateAABB()
	w.grid.UpdateEntity(e)

	return e.ID
}

// RemoveEntity unregisters an entity. Unknown or stale ids are no-ops.
func (w *World) RemoveEntity(id EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeEntityLocked(id)
}

func (w *World) removeEntityLocked(id EntityID) {
	e := w.lookup(id)
	if e == nil {
		return
	}

	index := id.index()
	w.slots[index].entity = nil
	w.slots[index].generation++
	w.freeSlots = append(w.freeSlots, index)

	for i, other := range w.entities {
		if other == e {
			w.entities = append(w.entities[:i], w.entities[i+1:]...)
			break
		}
	}

	w.grid.RemoveEntity(id)
	w.detector.InvalidateEntity(id)
	w.Events.forgetEntity(id)
	if w.snaps != nil {
		w.snaps.forgetEntity(id)
	}
}

// Entity resolves an id to its live entity, or nil for unknown/stale ids
func (w *World) Entity(id EntityID) *PhysicsEntity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lookup(id)
}

func (w *World) lookup(id EntityID) *PhysicsEntity {
	index := id.index()
	if int(index) >= len(w.slots) {
		return nil
	}
	slot := w.slots[index]
	if slot.entity == nil || slot.generation != id.generation() {
		return nil
	}
	return slot.entity
}

// EntityCount returns the number of live entities
func (w *World) EntityCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entities)
}

// AddStaticCollider registers a scanned surface; an existing collider
// with the same id is replaced.
func (w *World) AddStaticCollider(col *StaticCollider) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.staticColliders[col.ID] = col
	w.grid.UpdateStaticCollider(col)
	w.detector.InvalidateCollider(col.ID)
}

// UpdateStaticCollider replaces a surface after an AR anchor update
func (w *World) UpdateStaticCollider(col *StaticCollider) {
	w.AddStaticCollider(col)
}

// RemoveStaticCollider unregisters a surface. Unknown ids are no-ops.
func (w *World) RemoveStaticCollider(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.staticColliders[id]; !ok {
		return
	}
	delete(w.staticColliders, id)
	w.grid.RemoveStaticCollider(id)
	w.detector.InvalidateCollider(id)
}

// StaticCollider resolves a surface id, or nil if unknown
func (w *World) StaticCollider(id string) *StaticCollider {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.staticColliders[id]
}

// ApplyForce accumulates a force on an entity for the next step, waking
// it. Unknown ids and kinematic entities are no-ops.
func (w *World) ApplyForce(id EntityID, force mgl64.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e := w.lookup(id); e != nil {
		e.AddForce(force)
		w.detector.InvalidateEntity(id)
	}
}

// ApplyForceAtPoint accumulates a force applied at a world-space point,
// producing torque from the lever arm.
func (w *World) ApplyForceAtPoint(id EntityID, force, point mgl64.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e := w.lookup(id); e != nil {
		e.AddForceAtPoint(force, point)
		w.detector.InvalidateEntity(id)
	}
}

// ApplyImpulse changes an entity's velocity immediately, waking it
func (w *World) ApplyImpulse(id EntityID, impulse mgl64.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e := w.lookup(id); e != nil {
		e.ApplyImpulse(impulse)
		w.detector.InvalidateEntity(id)
	}
}

// ApplyImpulseAtPoint changes an entity's velocity immediately with the
// impulse applied at a world-space point, waking it.
func (w *World) ApplyImpulseAtPoint(id EntityID, impulse, point mgl64.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e := w.lookup(id); e != nil {
		e.ApplyImpulseAtPoint(impulse, point)
		w.detector.InvalidateEntity(id)
	}
}

// Step advances the simulation by dt seconds. It runs to completion on
// the calling goroutine; later phases depend on earlier phases' results.
// Event listeners are invoked after the world lock is released, so a
// listener may call any public World method.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}

	w.mu.Lock()

	started := time.Now()
	w.stepCount++

	// Phase 1: gravity on every active, awake, dynamic body. Applied
	// directly to the accumulator so it does not reset sleep timers.
	for _, e := range w.entities {
		if !e.IsActive || !e.IsPhysicsEnabled || e.IsKinematic || e.IsSleeping {
			continue
		}
		e.accumulatedForce = e.accumulatedForce.Add(w.Gravity.Mul(e.Mass))
	}

	// Phase 2: integrate motion, then damp
	for _, e := range w.entities {
		if !e.IsActive || !e.IsPhysicsEnabled {
			continue
		}
		w.integrator.Integrate(e, dt)
		w.integrator.Damp(e, w.cfg.Physics.LinearDamping, w.cfg.Physics.AngularDamping)
	}

	// Phase 3: refresh the broad phase for anything that can move
	for _, e := range w.entities {
		if !e.IsActive || !e.IsPhysicsEnabled || e.IsSleeping {
			continue
		}
		e.UpdateAABB()
		w.grid.UpdateEntity(e)
	}

	// Phase 4: collisions
	if w.perf != nil {
		w.collisions = w.perf.BorrowCollisionBuffer()
	}
	w.collisions = w.detector.Detect(w, w.collisions)
	w.Events.recordCollisions(w.collisions)
	w.detector.Resolve(w, w.collisions)
	collisionCount := len(w.collisions)
	if w.perf != nil {
		w.perf.ReturnCollisionBuffer(w.collisions)
		w.collisions = nil
	}

	// Phase 5: snap alignment
	if w.snaps != nil {
		w.snaps.update(dt)
	}

	// Phase 6: sleep transitions
	w.evaluateSleep(dt)

	// Phase 7: push final transforms out to the render handles
	for _, e := range w.entities {
		e.PushTransform()
	}

	w.Events.processSleepEvents(w.entities)
	pending := w.Events.drain()

	if w.stepCount%gridOptimizeInterval == 0 {
		w.grid.Optimize()
	}

	w.finishStep(started, collisionCount)

	w.mu.Unlock()

	w.Events.dispatch(pending)
}

func (w *World) evaluateSleep(dt float64) {
	threshold := w.cfg.Physics.SleepThreshold
	if w.perf != nil {
		// Emergency mode raises the threshold so marginal movers
		// settle sooner
		threshold *= w.perf.SleepBias()
	}

	for _, e := range w.entities {
		if !e.IsActive || e.IsKinematic || e.IsSleeping {
			continue
		}

		if e.Velocity.Len() < threshold && e.AngularVelocity.Len() < threshold {
			e.SleepTimer += dt
			if e.SleepTimer >= w.cfg.Physics.SleepTime {
				e.Sleep()
				w.log.Debug("entity %d sleeping", e.ID)
			}
		} else {
			e.SleepTimer = 0
		}
	}
}

func (w *World) finishStep(started time.Time, collisionCount int) {
	elapsed := time.Since(started).Seconds()

	active, sleeping := 0, 0
	for _, e := range w.entities {
		if e.IsSleeping {
			sleeping++
		} else if e.IsActive {
			active++
		}
	}

	w.stats.StepTime = elapsed
	w.stats.StepCount = w.stepCount
	w.stats.ActiveEntities = active
	w.stats.SleepingEntities = sleeping
	w.stats.StaticColliders = len(w.staticColliders)
	w.stats.CollisionChecks = w.detector.ChecksPerformed()
	w.stats.Collisions = collisionCount
	w.stats.ActiveCollisionPairs = w.Events.ActiveCollisionCount()
	w.stats.GridCells = w.grid.CellCount()
	if w.snaps != nil {
		w.stats.SnapAttempts = w.snaps.attempts
		w.stats.SnapSuccesses = w.snaps.successes
		w.stats.SnappedEntities = w.snaps.snappedCount()
	}

	if w.perf != nil {
		w.perf.FrameCompleted(elapsed, w.entities)
		w.stats.Performance = w.perf.Counters()
	}
}

// Stats returns a snapshot of the last step's measurements
func (w *World) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
