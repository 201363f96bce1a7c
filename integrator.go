package archphys

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Integrator advances entity motion with semi-implicit integration.
// Position uses the velocity-Verlet half-step, velocity is then updated
// and clamped so a single bad force can never launch an object across
// the room.
type Integrator struct {
	MaxVelocity float64
}

// Integrate advances one entity by dt seconds and clears its force
// accumulators. Kinematic and sleeping entities are skipped.
func (in *Integrator) Integrate(e *PhysicsEntity, dt float64) {
	if e.IsKinematic || e.IsSleeping || dt <= 0 {
		return
	}

	// Linear: x += v*dt + 0.5*a*dt², then v += a*dt
	acceleration := e.accumulatedForce.Mul(e.inverseMass)
	e.Transform.Position = e.Transform.Position.
		Add(e.Velocity.Mul(dt)).
		Add(acceleration.Mul(0.5 * dt * dt))
	e.Velocity = e.Velocity.Add(acceleration.Mul(dt))

	if speed := e.Velocity.Len(); speed > in.MaxVelocity && in.MaxVelocity > 0 {
		e.Velocity = e.Velocity.Mul(in.MaxVelocity / speed)
	}

	// Angular: rotate by the angular displacement vector, then advance ω
	if e.inertia > 0 {
		angularAcceleration := e.accumulatedTorque.Mul(1.0 / e.inertia)
		displacement := e.AngularVelocity.Mul(dt).
			Add(angularAcceleration.Mul(0.5 * dt * dt))

		if angle := displacement.Len(); angle > 1e-12 {
			rotation := mgl64.QuatRotate(angle, displacement.Mul(1.0/angle))
			e.Transform.Rotation = rotation.Mul(e.Transform.Rotation).Normalize()
		}

		e.AngularVelocity = e.AngularVelocity.Add(angularAcceleration.Mul(dt))
	}

	e.ClearForces()
}

// Damp applies scalar linear/angular damping. Kept out of Integrate so
// the World controls ordering against the sleep evaluation.
func (in *Integrator) Damp(e *PhysicsEntity, linear, angular float64) {
	if e.IsKinematic || e.IsSleeping {
		return
	}
	e.Velocity = e.Velocity.Mul(linear)
	e.AngularVelocity = e.AngularVelocity.Mul(angular)
}
