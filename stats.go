package archphys

// PerformanceCounters are the quality-management measurements exposed by
// the PerformanceManager.
type PerformanceCounters struct {
	AverageStepTime float64
	BudgetBreaches  int
	EmergencyMode   bool

	LODBuckets  [lodLevels]int
	LODSwitches int
	CulledCount int
	PoolGets    int
	PoolReuses  int
	ShadowsOn   bool
	OcclusionOn bool
}

// Stats is the read-only diagnostics snapshot polled by the host's debug
// surface after any step. It is a value copy; holding one never aliases
// live simulation state.
type Stats struct {
	StepTime  float64 // seconds, last step
	StepCount uint64

	ActiveEntities   int
	SleepingEntities int
	StaticColliders  int

	CollisionChecks      int // narrow-phase tests last step
	Collisions           int // contacts resolved last step
	ActiveCollisionPairs int

	GridCells int

	SnapAttempts    int
	SnapSuccesses   int
	SnappedEntities int

	Performance PerformanceCounters
}
