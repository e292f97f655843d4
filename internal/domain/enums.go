package domain

// LifecycleStatus gates whether the scheduler may progress a persona at all.
type LifecycleStatus string

const (
	LifecycleNew     LifecycleStatus = "NEW"
	LifecycleRunning LifecycleStatus = "RUNNING"
	LifecyclePaused  LifecycleStatus = "PAUSED"
	LifecycleStopped LifecycleStatus = "STOPPED"
)

func (s LifecycleStatus) String() string { return string(s) }

func (s LifecycleStatus) IsValid() bool {
	switch s {
	case LifecycleNew, LifecycleRunning, LifecyclePaused, LifecycleStopped:
		return true
	}
	return false
}

// Activity is the per-cycle state machine position of a persona.
// ActivityNone is the cleared state outside of a running lifecycle.
type Activity string

const (
	ActivityNone     Activity = ""
	ActivitySleeping Activity = "SLEEPING"
	ActivityPlanning Activity = "PLANNING"
	ActivityCreating Activity = "CREATING"
	ActivityActive   Activity = "ACTIVE"
	ActivityResting  Activity = "RESTING"
)

func (a Activity) String() string { return string(a) }

func (a Activity) IsValid() bool {
	switch a {
	case ActivityNone, ActivitySleeping, ActivityPlanning, ActivityCreating,
		ActivityActive, ActivityResting:
		return true
	}
	return false
}

// EventKind classifies a cycle event.
type EventKind string

const (
	EventStart    EventKind = "START"
	EventStop     EventKind = "STOP"
	EventContinue EventKind = "CONTINUE"
)

func (k EventKind) String() string { return string(k) }

func (k EventKind) IsValid() bool {
	switch k {
	case EventStart, EventStop, EventContinue:
		return true
	}
	return false
}

// EventStatus tracks a cycle event through the durable queue.
type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventLeased     EventStatus = "leased"
	EventDone       EventStatus = "done"
	EventCancelled  EventStatus = "cancelled"
	EventDeadLetter EventStatus = "dead_letter"
)

func (s EventStatus) String() string { return string(s) }

func (s EventStatus) IsValid() bool {
	switch s {
	case EventPending, EventLeased, EventDone, EventCancelled, EventDeadLetter:
		return true
	}
	return false
}

// ManualLocation is the location hint carried by a manual trigger.
type ManualLocation string

const (
	ManualHome    ManualLocation = "home"
	ManualOutside ManualLocation = "outside"
)

func (l ManualLocation) String() string { return string(l) }

func (l ManualLocation) IsValid() bool {
	switch l {
	case ManualHome, ManualOutside:
		return true
	}
	return false
}

// MemoryKind classifies how a memory entry was produced.
type MemoryKind string

const (
	MemoryDecision MemoryKind = "DECISION"
	MemoryContent  MemoryKind = "CONTENT"
	MemoryRecovery MemoryKind = "RECOVERY"
	MemorySystem   MemoryKind = "SYSTEM"
)

func (k MemoryKind) String() string { return string(k) }

func (k MemoryKind) IsValid() bool {
	switch k {
	case MemoryDecision, MemoryContent, MemoryRecovery, MemorySystem:
		return true
	}
	return false
}
