package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
)

// EventKind labels a state-change notification.
type EventKind string

const (
	EventSessionStarted      EventKind = "session_started"
	EventParticipantJoined   EventKind = "participant_joined"
	EventRoundResolved       EventKind = "round_resolved"
	EventParticipantDefeated EventKind = "participant_defeated"
	EventSessionCompleted    EventKind = "session_completed"
	EventSessionAbandoned    EventKind = "session_abandoned"
	EventRewardsResolved     EventKind = "rewards_resolved"
)

// RewardDelta is the per-participant payload of a rewards_resolved event.
// Rewards settle asynchronously after the battle completes, so they arrive
// on the stream as their own event following session_completed.
type RewardDelta struct {
	XP       int
	Currency int
	Health   int
	Loot     []string // item names
}

// Event is one structured notification pushed to the presentation layer.
// Only the fields relevant to the Kind are populated.
type Event struct {
	Kind       EventKind
	ContextKey string
	SessionID  string
	At         time.Time

	ParticipantID string                 // joined / defeated
	Round         *battle.RoundResult    // round_resolved
	Verdict       *Verdict               // session_completed
	Reason        string                 // session_abandoned
	Rewards       map[string]RewardDelta // rewards_resolved
}

// Subscriber receives the event stream for one context key over a buffered
// channel. A subscriber that stops draining loses events rather than ever
// stalling the engine.
type Subscriber struct {
	id     string
	events chan Event
	mu     sync.Mutex
	closed bool
}

// Events returns the read-only stream. The channel closes when the
// subscriber is removed from the bus.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// push enqueues without blocking.
func (s *Subscriber) push(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("subscriber %s is closed", s.id)
	}
	select {
	case s.events <- ev:
		return nil
	default:
		return fmt.Errorf("subscriber %s event buffer full", s.id)
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Bus fans session events out to per-context-key subscribers. Publishing
// never blocks: a full or closed subscriber drops the event and the drop is
// logged. All methods are safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*Subscriber // contextKey -> subscriberID -> sub
	buffer int
	logger *zap.Logger
	nextID int
}

// NewBus creates a Bus whose subscriber channels buffer up to bufferSize
// events.
//
// Precondition: logger must be non-nil.
func NewBus(bufferSize int, logger *zap.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		subs:   make(map[string]map[string]*Subscriber),
		buffer: bufferSize,
		logger: logger,
	}
}

// Subscribe registers a new listener for the context key.
//
// Postcondition: Returns an open Subscriber that receives every event
// published for the key until Unsubscribe.
func (b *Bus) Subscribe(contextKey string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscriber{
		id:     fmt.Sprintf("%s#%d", contextKey, b.nextID),
		events: make(chan Event, b.buffer),
	}
	if b.subs[contextKey] == nil {
		b.subs[contextKey] = make(map[string]*Subscriber)
	}
	b.subs[contextKey][sub.id] = sub
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. A no-op for
// subscribers already removed.
func (b *Bus) Unsubscribe(contextKey string, sub *Subscriber) {
	b.mu.Lock()
	if set, ok := b.subs[contextKey]; ok {
		delete(set, sub.id)
		if len(set) == 0 {
			delete(b.subs, contextKey)
		}
	}
	b.mu.Unlock()
	sub.close()
}

// Publish delivers the event to every subscriber of its context key without
// ever blocking the caller.
//
// Postcondition: Returns the number of subscribers that received the event.
func (b *Bus) Publish(ev Event) int {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	set := b.subs[ev.ContextKey]
	subs := make([]*Subscriber, 0, len(set))
	for _, s := range set {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if err := s.push(ev); err != nil {
			b.logger.Warn("dropping session event",
				zap.String("context_key", ev.ContextKey),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}
