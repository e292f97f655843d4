package domain

import "fmt"

// Lifecycle transitions: NEW → RUNNING, RUNNING ↔ PAUSED,
// {RUNNING, PAUSED} → STOPPED. STOPPED is terminal.
var validLifecycleTransitions = map[LifecycleStatus]map[LifecycleStatus]bool{
	LifecycleNew: {
		LifecycleRunning: true,
	},
	LifecycleRunning: {
		LifecyclePaused:  true,
		LifecycleStopped: true,
	},
	LifecyclePaused: {
		LifecycleRunning: true,
		LifecycleStopped: true,
	},
}

// Activity transitions within one running lifecycle. ActivityNone → PLANNING
// covers immediate activation during daytime; any state → ActivityNone is the
// pause/stop clear and is handled separately below.
var validActivityTransitions = map[Activity]map[Activity]bool{
	ActivityNone: {
		ActivitySleeping: true,
		ActivityPlanning: true,
	},
	ActivitySleeping: {
		ActivityPlanning: true,
	},
	ActivityPlanning: {
		ActivityCreating: true,
		ActivityResting:  true,
	},
	ActivityCreating: {
		ActivityResting: true,
	},
	ActivityActive: {
		ActivityResting: true,
	},
	ActivityResting: {
		ActivitySleeping: true,
		ActivityPlanning: true,
	},
}

// IsLifecycleTerminal reports whether no further lifecycle transitions exist.
func IsLifecycleTerminal(s LifecycleStatus) bool {
	return s == LifecycleStopped
}

// ValidateLifecycleTransition checks a lifecycle status change.
func ValidateLifecycleTransition(from, to LifecycleStatus) error {
	if IsLifecycleTerminal(from) {
		return fmt.Errorf("%w: cannot transition from terminal status %q", ErrInvalidState, from)
	}
	allowed, ok := validLifecycleTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown lifecycle status %q", ErrInvalidState, from)
	}
	if !allowed[to] {
		return fmt.Errorf("%w: invalid lifecycle transition %q → %q", ErrInvalidState, from, to)
	}
	return nil
}

// ValidateActivityTransition checks a cycle state change.
// Clearing to ActivityNone is always allowed: pause and stop reset the
// transient activity from any state.
func ValidateActivityTransition(from, to Activity) error {
	if to == ActivityNone {
		return nil
	}
	allowed, ok := validActivityTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown activity %q", ErrInvalidState, from)
	}
	if !allowed[to] {
		return fmt.Errorf("%w: invalid activity transition %q → %q", ErrInvalidState, from, to)
	}
	return nil
}
