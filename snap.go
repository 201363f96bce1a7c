package archphys

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys/config"
	"github.com/ishabanya/archphys/geom"
)

// SnapTargetType classifies what kind of reference a snap target is
type SnapTargetType int

const (
	SnapFloor SnapTargetType = iota
	SnapWall
	SnapCorner
	SnapEdge
)

// SnapTarget is a reference surface/point an entity can align to. It is
// independent of StaticCollider identity: a target may or may not
// correspond to a physical surface.
type SnapTarget struct {
	ID        string
	Type      SnapTargetType
	Transform geom.Transform
	Normal    mgl64.Vec3 // surface normal (floor/wall) or edge side
	Extents   mgl64.Vec3 // full bounds of the target region
}

type snapPhase int

const (
	phaseSnapping snapPhase = iota
	phaseSnapped
)

// SnapState tracks one entity's alignment. It exists only while the
// entity is snapping or snapped; breaking removes it.
type SnapState struct {
	phase     snapPhase
	TargetID  string
	SnapPoint mgl64.Vec3
	SnappedAt time.Time

	elapsed         float64
	startPosition   mgl64.Vec3
	startRotation   mgl64.Quat
	snapRotation    mgl64.Quat
	correctRotation bool
}

// IsSnapped reports whether the interpolation has completed
func (s *SnapState) IsSnapped() bool {
	return s.phase == phaseSnapped
}

// SnapSystem pulls slow-moving entities into alignment with nearby
// floor/wall/corner/edge targets and holds them there. Interpolation is
// time-based state advanced inside the world step; there are no timers
// or suspended tasks.
type SnapSystem struct {
	world *World
	cfg   config.SnapConfig

	targets map[string]*SnapTarget
	states  map[EntityID]*SnapState

	attempts  int
	successes int
}

// NewSnapSystem creates a snap system bound to a world. The host owns it
// and attaches it via World.AttachSnapSystem.
func NewSnapSystem(world *World, cfg config.SnapConfig) *SnapSystem {
	return &SnapSystem{
		world:   world,
		cfg:     cfg,
		targets: make(map[string]*SnapTarget),
		states:  make(map[EntityID]*SnapState),
	}
}

// AddTarget registers or replaces a snap target. Serialized against the
// world step, so AR callbacks may call it from any goroutine.
func (s *SnapSystem) AddTarget(t *SnapTarget) {
	s.world.mu.Lock()
	defer s.world.mu.Unlock()
	s.targets[t.ID] = t
}

// RemoveTarget unregisters a target; snaps holding onto it break on the
// next step. Unknown ids are no-ops.
func (s *SnapSystem) RemoveTarget(id string) {
	s.world.mu.Lock()
	defer s.world.mu.Unlock()
	delete(s.targets, id)
}

// Target resolves a target id, or nil if unknown
func (s *SnapSystem) Target(id string) *SnapTarget {
	s.world.mu.Lock()
	defer s.world.mu.Unlock()
	return s.targets[id]
}

// State returns the snap state of an entity, or nil when unsnapped
func (s *SnapSystem) State(id EntityID) *SnapState {
	s.world.mu.Lock()
	defer s.world.mu.Unlock()
	return s.states[id]
}

// SnapToSurface starts snapping an entity to the best target of the
// given type within range, regardless of its current speed. Returns
// false when the entity is unknown or no target qualifies.
func (s *SnapSystem) SnapToSurface(id EntityID, targetType SnapTargetType) bool {
	s.world.mu.Lock()
	defer s.world.mu.Unlock()

	e := s.world.lookup(id)
	if e == nil {
		return false
	}

	s.attempts++
	target, point, ok := s.bestCandidate(e, &targetType)
	if !ok {
		return false
	}

	s.beginSnap(e, target, point)
	return true
}

// BreakSnap releases an entity from its snap, if any
func (s *SnapSystem) BreakSnap(id EntityID) {
	s.world.mu.Lock()
	defer s.world.mu.Unlock()

	state, ok := s.states[id]
	if !ok {
		return
	}
	delete(s.states, id)
	s.world.Events.emitSnapBroken(id, state.TargetID)
}

func (s *SnapSystem) forgetEntity(id EntityID) {
	delete(s.states, id)
}

func (s *SnapSystem) snappedCount() int {
	n := 0
	for _, state := range s.states {
		if state.phase == phaseSnapped {
			n++
		}
	}
	return n
}

// update advances all snap state by dt. Called by the world inside Step,
// after collision resolution.
func (s *SnapSystem) update(dt float64) {
	for id, state := range s.states {
		e := s.world.lookup(id)
		target := s.targets[state.TargetID]
		if e == nil || target == nil {
			delete(s.states, id)
			s.world.Events.emitSnapBroken(id, state.TargetID)
			continue
		}

		switch state.phase {
		case phaseSnapping:
			s.advanceSnapping(e, state, dt)
		case phaseSnapped:
			s.maintainSnap(e, state, target)
		}
	}

	// Automatic candidate search for unsnapped entities. Only entities
	// moving slower than the gate are considered, so snapping never
	// fights active user manipulation.
	for _, e := range s.world.entities {
		if !e.IsActive || e.IsKinematic || e.IsSleeping {
			continue
		}
		if _, busy := s.states[e.ID]; busy {
			continue
		}
		if e.Velocity.Len() >= s.cfg.MaxSpeed {
			continue
		}

		target, point, ok := s.bestCandidate(e, nil)
		if !ok {
			continue
		}
		s.attempts++
		s.beginSnap(e, target, point)
	}
}

func (s *SnapSystem) beginSnap(e *PhysicsEntity, target *SnapTarget, point mgl64.Vec3) {
	state := &SnapState{
		phase:         phaseSnapping,
		TargetID:      target.ID,
		SnapPoint:     point,
		startPosition: e.Transform.Position,
		startRotation: e.Transform.Rotation,
	}
	state.snapRotation, state.correctRotation = s.snapRotation(target)
	s.states[e.ID] = state
}

// advanceSnapping runs the time-boxed eased interpolation toward the
// snap point. Velocity is damped in proportion to progress so physics
// does not fight the pull.
func (s *SnapSystem) advanceSnapping(e *PhysicsEntity, state *SnapState, dt float64) {
	state.elapsed += dt
	t := state.elapsed / s.cfg.Duration
	if t >= 1 {
		t = 1
	}

	// Cubic smoothstep
	eased := t * t * (3 - 2*t)

	delta := state.SnapPoint.Sub(state.startPosition)
	e.Transform.Position = state.startPosition.Add(delta.Mul(eased))
	e.Velocity = e.Velocity.Mul(1 - eased)
	e.AngularVelocity = e.AngularVelocity.Mul(1 - eased)

	if state.correctRotation {
		e.Transform.Rotation = mgl64.QuatSlerp(state.startRotation, state.snapRotation, eased)
	}

	if t >= 1 {
		state.phase = phaseSnapped
		state.SnappedAt = time.Now()
		s.successes++
		s.world.Events.emitSnapComplete(e.ID, state.TargetID)
	}
}

// maintainSnap holds a snapped entity: small drift is pulled back by a
// spring force, large drift breaks the snap.
func (s *SnapSystem) maintainSnap(e *PhysicsEntity, state *SnapState, target *SnapTarget) {
	// Target may have moved with its anchor; follow it
	state.SnapPoint = s.snapPoint(e, target)

	delta := state.SnapPoint.Sub(e.Transform.Position)
	drift := delta.Len()

	if drift > 2*s.cfg.Distance {
		delete(s.states, e.ID)
		s.world.Events.emitSnapBroken(e.ID, state.TargetID)
		return
	}

	// Leave resting entities alone; a spring force would reset their
	// sleep timers forever.
	if drift > 1e-4 && !e.IsSleeping {
		force := delta.Mul(s.cfg.SpringStrength * e.Mass)
		e.accumulatedForce = e.accumulatedForce.Add(force)
	}
}

// bestCandidate scores all in-range targets and returns the cheapest:
// score = distance*2 + (1-alignment)*1. A type filter restricts the
// search when snapping manually.
func (s *SnapSystem) bestCandidate(e *PhysicsEntity, typeFilter *SnapTargetType) (*SnapTarget, mgl64.Vec3, bool) {
	bestScore := math.MaxFloat64
	var bestTarget *SnapTarget
	var bestPoint mgl64.Vec3

	for _, target := range s.targets {
		if typeFilter != nil && target.Type != *typeFilter {
			continue
		}

		point := s.snapPoint(e, target)
		distance := e.Transform.Position.Sub(point).Len()
		if distance > s.cfg.Distance {
			continue
		}

		score := distance*2 + (1-s.alignment(e, target))*1
		if score < bestScore {
			bestScore = score
			bestTarget = target
			bestPoint = point
		}
	}

	if bestTarget == nil {
		return nil, mgl64.Vec3{}, false
	}
	return bestTarget, bestPoint, true
}

// snapPoint computes where the entity should come to rest on a target
func (s *SnapSystem) snapPoint(e *PhysicsEntity, target *SnapTarget) mgl64.Vec3 {
	radius := e.BoundingRadius()

	switch target.Type {
	case SnapFloor, SnapWall:
		// Project the entity onto the target plane, clamp to the
		// target bounds, then stand off along the normal by the
		// bounding radius.
		normal := target.Normal
		if normal.Len() < 1e-12 {
			return target.Transform.Position
		}
		normal = normal.Normalize()

		local := target.Transform.ApplyInverse(e.Transform.Position)
		half := target.Extents.Mul(0.5)
		for i := 0; i < 3; i++ {
			if half[i] > 0 {
				local[i] = math.Max(-half[i], math.Min(local[i], half[i]))
			}
		}
		projected := target.Transform.Apply(local)

		// Remove any residual offset along the normal, then offset
		onPlane := projected.Sub(normal.Mul(projected.Sub(target.Transform.Position).Dot(normal)))
		return onPlane.Add(normal.Mul(radius))

	case SnapCorner:
		return target.Transform.Position

	case SnapEdge:
		// Closest point on the target's line segment; the edge runs
		// along the local X axis.
		direction := target.Transform.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
		halfLength := target.Extents.X() * 0.5
		along := e.Transform.Position.Sub(target.Transform.Position).Dot(direction)
		along = math.Max(-halfLength, math.Min(along, halfLength))
		return target.Transform.Position.Add(direction.Mul(along))
	}

	return target.Transform.Position
}

// alignment measures how well the entity's approach agrees with the
// target, in [0, 1]
func (s *SnapSystem) alignment(e *PhysicsEntity, target *SnapTarget) float64 {
	normal := target.Normal
	if normal.Len() < 1e-12 {
		return 1
	}
	normal = normal.Normalize()

	toEntity := e.Transform.Position.Sub(target.Transform.Position)
	if toEntity.Len() < 1e-12 {
		return 1
	}

	a := toEntity.Normalize().Dot(normal)
	if a < 0 {
		return 0
	}
	return a
}

// snapRotation returns the orientation a snapped entity should settle
// into, when the target type implies one
func (s *SnapSystem) snapRotation(target *SnapTarget) (mgl64.Quat, bool) {
	switch target.Type {
	case SnapFloor:
		// Upright
		return mgl64.QuatIdent(), true

	case SnapWall:
		// Face away from the wall: rotate default forward onto the
		// horizontal component of the wall normal
		horizontal := mgl64.Vec3{target.Normal.X(), 0, target.Normal.Z()}
		if horizontal.Len() < 1e-12 {
			return mgl64.QuatIdent(), false
		}
		return mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, horizontal.Normalize()), true
	}

	return mgl64.QuatIdent(), false
}
