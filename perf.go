package archphys

import (
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys/config"
	"github.com/ishabanya/archphys/logger"
)

// lodLevels is the number of discrete detail buckets. Bucket 0 is full
// detail; the last bucket is minimal.
const lodLevels = 4

// frameWindow is the number of recent step times averaged for budget
// decisions
const frameWindow = 30

// PerformanceManager keeps the simulation inside its frame budget by
// degrading non-essential work before frames drop. It only observes
// entity state and adjusts quality knobs; it never mutates motion.
type PerformanceManager struct {
	cfg *config.Config
	log *logger.Logger

	viewerPosition mgl64.Vec3
	viewerForward  mgl64.Vec3

	lod    map[EntityID]int
	culled map[EntityID]bool

	frameTimes [frameWindow]float64
	frameIndex int
	frameFill  int

	consecutiveBreaches int
	recoveryFrames      int
	emergencyMode       bool

	shadowsOn   bool
	occlusionOn bool

	collisionPool sync.Pool
	poolGets      int
	poolMisses    int

	lodSwitches int
}

// NewPerformanceManager creates a manager bound to the configuration's
// frame budget and quality tier. A nil logger is valid and silent.
func NewPerformanceManager(cfg *config.Config, log *logger.Logger) *PerformanceManager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	p := &PerformanceManager{
		cfg:           cfg,
		log:           log,
		viewerForward: mgl64.Vec3{0, 0, -1},
		lod:           make(map[EntityID]int),
		culled:        make(map[EntityID]bool),
		shadowsOn:     cfg.Performance.ShadowsEnabled,
		occlusionOn:   cfg.Performance.OcclusionEnabled,
	}
	p.collisionPool.New = func() interface{} {
		p.poolMisses++
		buf := make([]Collision, 0, 64)
		return &buf
	}

	return p
}

// SetViewer updates the camera position and forward direction used for
// LOD and culling decisions. Called once per frame by the host.
func (p *PerformanceManager) SetViewer(position, forward mgl64.Vec3) {
	p.viewerPosition = position
	if forward.Len() > 1e-12 {
		p.viewerForward = forward.Normalize()
	}
}

// BorrowCollisionBuffer takes a pooled scratch slice for one step's
// narrow-phase results
func (p *PerformanceManager) BorrowCollisionBuffer() []Collision {
	p.poolGets++
	buf := p.collisionPool.Get().(*[]Collision)
	return (*buf)[:0]
}

// ReturnCollisionBuffer gives a scratch slice back to the pool
func (p *PerformanceManager) ReturnCollisionBuffer(buf []Collision) {
	buf = buf[:0]
	p.collisionPool.Put(&buf)
}

// SleepBias is a multiplier on the sleep speed threshold. Emergency mode
// raises it so marginal movers settle sooner.
func (p *PerformanceManager) SleepBias() float64 {
	if p.emergencyMode {
		return 2.0
	}
	return 1.0
}

// EmergencyMode reports whether the degrade path is active
func (p *PerformanceManager) EmergencyMode() bool {
	return p.emergencyMode
}

// ShadowsEnabled reports the current shadow toggle after any emergency
// degradation
func (p *PerformanceManager) ShadowsEnabled() bool {
	return p.shadowsOn
}

// LODOf returns the detail bucket last assigned to an entity; unknown
// ids report full detail.
func (p *PerformanceManager) LODOf(id EntityID) int {
	return p.lod[id]
}

// IsCulled reports whether an entity currently skips optional per-frame
// work. Culled entities remain fully simulated.
func (p *PerformanceManager) IsCulled(id EntityID) bool {
	return p.culled[id]
}

// FrameCompleted records a finished step and updates quality decisions
// for the next one. Called by the world at the end of Step.
func (p *PerformanceManager) FrameCompleted(elapsed float64, entities []*PhysicsEntity) {
	p.frameTimes[p.frameIndex] = elapsed
	p.frameIndex = (p.frameIndex + 1) % frameWindow
	if p.frameFill < frameWindow {
		p.frameFill++
	}

	if elapsed > p.cfg.Performance.FrameBudget {
		p.consecutiveBreaches++
		p.recoveryFrames = 0
	} else {
		p.consecutiveBreaches = 0
		p.recoveryFrames++
	}

	threshold := p.cfg.Performance.EscalationBreaches
	if threshold <= 0 {
		threshold = 10
	}

	if !p.emergencyMode && p.consecutiveBreaches >= threshold {
		p.escalate()
	} else if p.emergencyMode && p.recoveryFrames >= threshold*2 {
		p.deescalate()
	}

	p.updateLOD(entities)
}

// escalate enters emergency mode: sleep gets more aggressive, shadow and
// occlusion costs are shed, and a memory cleanup pass runs.
func (p *PerformanceManager) escalate() {
	p.emergencyMode = true
	p.shadowsOn = false
	p.occlusionOn = false
	runtime.GC()
	p.log.Warn("frame budget exceeded %d frames running; emergency optimizations on", p.consecutiveBreaches)
}

func (p *PerformanceManager) deescalate() {
	p.emergencyMode = false
	p.shadowsOn = p.cfg.Performance.ShadowsEnabled
	p.occlusionOn = p.cfg.Performance.OcclusionEnabled
	p.log.Info("frame budget recovered; emergency optimizations off")
}

// updateLOD reassigns detail buckets and culling flags from viewer
// distance. A bucket only changes once the distance moves past the
// threshold by the hysteresis band, so objects hovering on a boundary
// do not flicker between levels.
func (p *PerformanceManager) updateLOD(entities []*PhysicsEntity) {
	distances := p.cfg.Performance.LODDistances
	hysteresis := p.cfg.Performance.LODHysteresis

	live := make(map[EntityID]bool, len(entities))

	for _, e := range entities {
		live[e.ID] = true

		toEntity := e.Transform.Position.Sub(p.viewerPosition)
		distance := toEntity.Len()

		// Cull by distance, and by facing: objects behind the viewer
		// skip optional work
		cull := distance > p.cfg.Performance.CullDistance
		if !cull && distance > 1e-9 && toEntity.Mul(1.0/distance).Dot(p.viewerForward) < -0.5 {
			cull = true
		}
		if cull != p.culled[e.ID] {
			p.culled[e.ID] = cull
		}

		target := bucketFor(distance, distances)
		current, known := p.lod[e.ID]
		if !known {
			p.lod[e.ID] = target
			continue
		}
		if target == current {
			continue
		}

		// Hysteresis: require the distance to clear the crossed
		// threshold by the configured band
		var boundary float64
		if target > current {
			boundary = distances[min(current, len(distances)-1)] + hysteresis
			if distance < boundary {
				continue
			}
		} else {
			boundary = distances[min(target, len(distances)-1)] - hysteresis
			if distance > boundary {
				continue
			}
		}

		p.lod[e.ID] = target
		p.lodSwitches++
	}

	// Forget removed entities
	for id := range p.lod {
		if !live[id] {
			delete(p.lod, id)
			delete(p.culled, id)
		}
	}
}

func bucketFor(distance float64, thresholds []float64) int {
	for i, t := range thresholds {
		if distance < t {
			return min(i, lodLevels-1)
		}
	}
	return lodLevels - 1
}

// Counters returns the manager's measurement snapshot
func (p *PerformanceManager) Counters() PerformanceCounters {
	var c PerformanceCounters

	sum := 0.0
	for i := 0; i < p.frameFill; i++ {
		sum += p.frameTimes[i]
	}
	if p.frameFill > 0 {
		c.AverageStepTime = sum / float64(p.frameFill)
	}

	c.BudgetBreaches = p.consecutiveBreaches
	c.EmergencyMode = p.emergencyMode
	c.LODSwitches = p.lodSwitches
	c.PoolGets = p.poolGets
	c.PoolReuses = p.poolGets - p.poolMisses
	c.ShadowsOn = p.shadowsOn
	c.OcclusionOn = p.occlusionOn

	for _, bucket := range p.lod {
		if bucket >= 0 && bucket < lodLevels {
			c.LODBuckets[bucket]++
		}
	}
	for _, culled := range p.culled {
		if culled {
			c.CulledCount++
		}
	}

	return c
}
