package archphys

// EventType identifies the kind of a simulation event
type EventType uint8

const (
	CollisionBegin EventType = iota
	CollisionEnd
	OnSleep
	OnWake
	SnapComplete
	SnapBroken
)

// Event is implemented by every simulation event
type Event interface {
	Type() EventType
}

// CollisionBeginEvent fires the first frame a pair is in contact
type CollisionBeginEvent struct {
	Pair CollisionPair
}

func (e CollisionBeginEvent) Type() EventType { return CollisionBegin }

// CollisionEndEvent fires the first frame a previously contacting pair
// is separated
type CollisionEndEvent struct {
	Pair CollisionPair
}

func (e CollisionEndEvent) Type() EventType { return CollisionEnd }

// SleepEvent fires when an entity transitions to sleeping
type SleepEvent struct {
	Entity EntityID
}

func (e SleepEvent) Type() EventType { return OnSleep }

// WakeEvent fires when a sleeping entity is disturbed
type WakeEvent struct {
	Entity EntityID
}

func (e WakeEvent) Type() EventType { return OnWake }

// SnapCompleteEvent fires when a snap interpolation reaches its target
type SnapCompleteEvent struct {
	Entity EntityID
	Target string
}

func (e SnapCompleteEvent) Type() EventType { return SnapComplete }

// SnapBrokenEvent fires when a held snap is broken by drift or removal
type SnapBrokenEvent struct {
	Entity EntityID
	Target string
}

func (e SnapBrokenEvent) Type() EventType { return SnapBroken }

// EventListener is a callback invoked at event dispatch
type EventListener func(event Event)

// Events collects simulation notifications during a step and dispatches
// them to subscribers at the end of the step. Collision begin/end diffs the
// canonical pair set of the current frame against the previous one.
// Events are informational; they never affect the physics itself.
type Events struct {
	listeners map[EventType][]EventListener
	buffer    []Event

	previousActivePairs map[CollisionPair]bool
	currentActivePairs  map[CollisionPair]bool

	sleepStates map[EntityID]bool
}

// NewEvents creates an empty event manager
func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 64),
		previousActivePairs: make(map[CollisionPair]bool),
		currentActivePairs:  make(map[CollisionPair]bool),
		sleepStates:         make(map[EntityID]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// ActiveCollisionCount returns the number of pairs in contact last frame
func (e *Events) ActiveCollisionCount() int {
	return len(e.previousActivePairs)
}

// recordCollisions marks this frame's contacts as active pairs
func (e *Events) recordCollisions(collisions []Collision) {
	for _, c := range collisions {
		var pair CollisionPair
		if c.Kind == CollisionEntityStatic {
			pair = makeStaticPair(c.EntityA, c.Collider)
		} else {
			pair = makeEntityPair(c.EntityA, c.EntityB)
		}
		e.currentActivePairs[pair] = true
	}
}

// forgetEntity drops all tracking for a removed entity so stale pairs
// never emit an end event against a dead id.
func (e *Events) forgetEntity(id EntityID) {
	delete(e.sleepStates, id)
	for pair := range e.previousActivePairs {
		if pair.A == id || pair.B == id {
			delete(e.previousActivePairs, pair)
		}
	}
	for pair := range e.currentActivePairs {
		if pair.A == id || pair.B == id {
			delete(e.currentActivePairs, pair)
		}
	}
}

func (e *Events) emitSnapComplete(entity EntityID, target string) {
	e.buffer = append(e.buffer, SnapCompleteEvent{Entity: entity, Target: target})
}

func (e *Events) emitSnapBroken(entity EntityID, target string) {
	e.buffer = append(e.buffer, SnapBrokenEvent{Entity: entity, Target: target})
}

// processCollisionEvents diffs current against previous pairs
func (e *Events) processCollisionEvents() {
	for pair := range e.currentActivePairs {
		if !e.previousActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionBeginEvent{Pair: pair})
		}
	}

	for pair := range e.previousActivePairs {
		if !e.currentActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionEndEvent{Pair: pair})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

// processSleepEvents compares each entity's sleep flag against the last
// tracked state and emits transitions
func (e *Events) processSleepEvents(entities []*PhysicsEntity) {
	for _, entity := range entities {
		tracked, exists := e.sleepStates[entity.ID]
		if !exists {
			e.sleepStates[entity.ID] = entity.IsSleeping
			continue
		}

		if !tracked && entity.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Entity: entity.ID})
			e.sleepStates[entity.ID] = true
		} else if tracked && !entity.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Entity: entity.ID})
			e.sleepStates[entity.ID] = false
		}
	}
}

// drain diffs the frame's collision pairs, then hands back the buffered
// events and clears the buffer. Dispatch is a separate phase so listeners
// run outside the world lock and may call back into the public API.
func (e *Events) drain() []Event {
	e.processCollisionEvents()

	if len(e.buffer) == 0 {
		return nil
	}
	out := make([]Event, len(e.buffer))
	copy(out, e.buffer)
	e.buffer = e.buffer[:0]
	return out
}

// dispatch invokes subscribed listeners for each event in order
func (e *Events) dispatch(events []Event) {
	for _, event := range events {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
}
