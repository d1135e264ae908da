package battle

import (
	"fmt"
	"sort"
	"time"
)

// ActionKind identifies what a combatant intends to do this round.
// The zero value (ActionUnknown) is intentionally invalid.
type ActionKind int

const (
	ActionUnknown ActionKind = iota // zero value; intentionally invalid
	ActionAttack                    // strike an enemy target
	ActionDefend                    // defensive stance; mitigates incoming damage
	ActionCharge                    // power up; doubles the charge multiplier, vulnerable this round
	ActionGuard                     // defend an ally; shares damage aimed at them
	ActionForfeit                   // leave the battle; counts as defeated
)

// String returns the human-readable name of the ActionKind.
func (k ActionKind) String() string {
	switch k {
	case ActionAttack:
		return "attack"
	case ActionDefend:
		return "defend"
	case ActionCharge:
		return "charge"
	case ActionGuard:
		return "guard"
	case ActionForfeit:
		return "forfeit"
	default:
		return "unknown"
	}
}

// NeedsTarget reports whether the kind requires a target reference.
// Guard accepts an optional ally target (empty means self).
func (k ActionKind) NeedsTarget() bool {
	return k == ActionAttack
}

// Action is one participant's declared intent for the current round.
type Action struct {
	Kind        ActionKind
	ActorID     string
	TargetID    string
	SubmittedAt time.Time
	// Defaulted marks actions the engine injected at the round deadline for
	// participants that never submitted.
	Defaulted bool
}

// Queue is the per-round action buffer: exactly one pending Action per living
// participant, last-write-wins until the round resolves. Queue itself is not
// concurrency-safe; the owning session serializes access.
type Queue struct {
	expected map[string]bool
	actions  map[string]Action
}

// NewQueue creates a Queue expecting one Action from each of the given
// participant IDs.
//
// Precondition: participantIDs must be non-empty and duplicate-free.
func NewQueue(participantIDs []string) *Queue {
	expected := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		expected[id] = true
	}
	return &Queue{
		expected: expected,
		actions:  make(map[string]Action, len(participantIDs)),
	}
}

// Submit records an Action for its actor, overwriting any earlier submission
// from the same actor within the round.
//
// Precondition: a.Kind must not be ActionUnknown.
// Postcondition: Returns an error iff the actor is not expected this round;
// on success the actor's pending action is exactly a.
func (q *Queue) Submit(a Action) error {
	if a.Kind == ActionUnknown {
		return fmt.Errorf("invalid action kind: ActionUnknown is not a valid action")
	}
	if !q.expected[a.ActorID] {
		return fmt.Errorf("participant %q has no pending action slot this round", a.ActorID)
	}
	q.actions[a.ActorID] = a
	return nil
}

// Drop removes a participant from the round's expectations, used when a
// combatant is defeated or forfeits mid-collection.
func (q *Queue) Drop(participantID string) {
	delete(q.expected, participantID)
	delete(q.actions, participantID)
}

// Complete reports whether every expected participant has submitted.
func (q *Queue) Complete() bool {
	for id := range q.expected {
		if _, ok := q.actions[id]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the IDs of expected participants that have not submitted,
// in ascending order.
func (q *Queue) Missing() []string {
	var out []string
	for id := range q.expected {
		if _, ok := q.actions[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// FillDefaults injects the implicit default Action (defend) for every missing
// participant, stamping them Defaulted. Called at the round deadline so a
// round always has a full action set.
//
// Postcondition: Complete() is true; returns the number of injected defaults.
func (q *Queue) FillDefaults(now time.Time) int {
	missing := q.Missing()
	for _, id := range missing {
		q.actions[id] = Action{
			Kind:        ActionDefend,
			ActorID:     id,
			SubmittedAt: now,
			Defaulted:   true,
		}
	}
	return len(missing)
}

// Actions returns a copy of the submitted actions keyed by actor ID.
func (q *Queue) Actions() map[string]Action {
	cp := make(map[string]Action, len(q.actions))
	for id, a := range q.actions {
		cp[id] = a
	}
	return cp
}

// Expected returns the number of participants the queue is waiting on.
func (q *Queue) Expected() int { return len(q.expected) }
