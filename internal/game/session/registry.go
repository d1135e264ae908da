package session

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
)

// Registry errors.
var (
	ErrAlreadyActive   = errors.New("a battle is already active in this context")
	ErrSessionNotFound = errors.New("no battle in this context")
	ErrCombatantBusy   = errors.New("combatant is already enrolled in another battle")
)

// shardCount trades memory for lock granularity; unrelated context keys
// almost never share a lock.
const shardCount = 32

// Options configures a Registry.
type Options struct {
	Logger *zap.Logger
	Bus    *Bus

	RoundDeadline time.Duration
	LobbyTimeout  time.Duration
	Tuning        battle.Tuning

	// NewSource supplies each session's random source; tests inject seeded
	// sources here for reproducible battles.
	NewSource func() battle.Source

	// OnTerminal, when set, receives every completed (not abandoned)
	// session's Result on its own goroutine, after the session has been
	// disposed from the registry. Reward resolution hangs off this hook.
	OnTerminal func(Result)
}

// Spec describes the session a caller wants created.
type Spec struct {
	Mode  Mode
	Wager int
	// Enemies seeds AI opponents for PvE modes, stat blocks resolved from
	// the enemy catalog by the caller.
	Enemies []battle.BaseData
}

// Registry maps context keys to at most one live Session each. The key space
// is sharded so unrelated contexts never contend on a lock; a participant ID
// index enforces that no combatant fights in two sessions at once.
type Registry struct {
	opts   Options
	shards [shardCount]sessionShard
	enroll [shardCount]enrollShard
}

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

type enrollShard struct {
	mu          sync.Mutex
	byCombatant map[string]string // participant ID -> context key
}

// NewRegistry creates an empty Registry.
//
// Precondition: opts.Logger, opts.Bus, and opts.NewSource must be non-nil;
// deadlines must be positive.
func NewRegistry(opts Options) *Registry {
	r := &Registry{opts: opts}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*Session)
	}
	for i := range r.enroll {
		r.enroll[i].byCombatant = make(map[string]string)
	}
	return r
}

func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

// Create allocates a new lobby Session for the context key.
//
// Postcondition: Returns ErrAlreadyActive (and no new session) if a
// non-terminal session already occupies the key; otherwise the returned
// session is registered and in the Lobby state.
func (r *Registry) Create(contextKey string, spec Spec) (*Session, error) {
	if spec.Wager < 0 {
		return nil, fmt.Errorf("%w: negative wager", ErrInvalidAction)
	}
	if spec.Wager > 0 && !spec.Mode.AllowsWager() {
		return nil, fmt.Errorf("%w: %s battles cannot carry a wager", ErrInvalidAction, spec.Mode)
	}

	sess := newSession(Config{
		ContextKey:    contextKey,
		Mode:          spec.Mode,
		Wager:         spec.Wager,
		RoundDeadline: r.opts.RoundDeadline,
		LobbyTimeout:  r.opts.LobbyTimeout,
		Tuning:        r.opts.Tuning,
		Source:        r.opts.NewSource(),
		Logger:        r.opts.Logger,
		Bus:           r.opts.Bus,
	}, r.handleTerminal)

	// Seed enemies before the session is visible in the shard map: a joiner
	// racing Create could otherwise auto-start a PvE fight with no opposition.
	for _, enemy := range spec.Enemies {
		if err := sess.AddEnemy(enemy); err != nil {
			sess.stopTimers()
			return nil, err
		}
	}

	// Terminal sessions are removed from the map as part of their terminal
	// transition, so any entry present here is (or is about to stop being)
	// live. Never touch the existing session's lock while holding the shard.
	shard := &r.shards[shardIndex(contextKey)]
	shard.mu.Lock()
	if _, ok := shard.sessions[contextKey]; ok {
		shard.mu.Unlock()
		sess.stopTimers()
		return nil, fmt.Errorf("%w: %q", ErrAlreadyActive, contextKey)
	}
	shard.sessions[contextKey] = sess
	shard.mu.Unlock()

	r.opts.Logger.Info("battle session created",
		zap.String("context_key", contextKey),
		zap.String("session_id", sess.ID()),
		zap.String("mode", spec.Mode.String()),
	)
	return sess, nil
}

// Get returns the session occupying the context key.
func (r *Registry) Get(contextKey string) (*Session, error) {
	shard := &r.shards[shardIndex(contextKey)]
	shard.mu.RLock()
	sess, ok := shard.sessions[contextKey]
	shard.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, contextKey)
	}
	return sess, nil
}

// Join enrolls a player into the context's lobby. A combatant enrolled in
// any live session, this one included, cannot join another.
func (r *Registry) Join(contextKey string, base battle.BaseData) error {
	sess, err := r.Get(contextKey)
	if err != nil {
		return err
	}

	es := &r.enroll[shardIndex(base.ID)]
	es.mu.Lock()
	if other, busy := es.byCombatant[base.ID]; busy {
		es.mu.Unlock()
		return fmt.Errorf("%w: %q is fighting in %q", ErrCombatantBusy, base.ID, other)
	}
	es.byCombatant[base.ID] = contextKey
	es.mu.Unlock()

	if err := sess.Join(base); err != nil {
		r.unenroll(base.ID)
		return err
	}
	return nil
}

// Start fires the explicit start signal for the context's lobby.
func (r *Registry) Start(contextKey string) error {
	sess, err := r.Get(contextKey)
	if err != nil {
		return err
	}
	return sess.Start()
}

// SubmitAction routes a participant's action to the context's session.
func (r *Registry) SubmitAction(contextKey, participantID string, kind battle.ActionKind, targetID string) error {
	sess, err := r.Get(contextKey)
	if err != nil {
		return err
	}
	return sess.SubmitAction(participantID, kind, targetID)
}

// Forfeit withdraws a participant. Leaving a lobby frees the combatant to
// join another battle immediately; forfeiting a running battle keeps them
// enrolled until the session terminates.
func (r *Registry) Forfeit(contextKey, participantID string) error {
	sess, err := r.Get(contextKey)
	if err != nil {
		return err
	}
	if err := sess.Forfeit(participantID); err != nil {
		return err
	}
	// A lobby leaver drops off the roster entirely; free their enrollment.
	// Mid-battle forfeiters stay on the roster and are freed at terminal.
	stillRostered := false
	for _, c := range sess.Roster() {
		if c.ID == participantID {
			stillRostered = true
			break
		}
	}
	if !stillRostered {
		r.unenroll(participantID)
	}
	return nil
}

// Cancel administratively abandons the context's session, if any.
func (r *Registry) Cancel(contextKey, reason string) {
	sess, err := r.Get(contextKey)
	if err != nil {
		return
	}
	sess.Cancel(reason)
}

// Dispose removes the context's session, cancelling it first if still live.
// Disposing an absent or already-terminal session is a no-op.
func (r *Registry) Dispose(contextKey string) {
	sess, err := r.Get(contextKey)
	if err != nil {
		return
	}
	if !sess.State().Terminal() {
		// Cancellation reaches handleTerminal, which removes the entry.
		sess.Cancel("disposed")
		return
	}
	r.remove(contextKey, sess)
}

// ActiveCount returns the number of registered sessions across all shards.
func (r *Registry) ActiveCount() int {
	n := 0
	for i := range r.shards {
		r.shards[i].mu.RLock()
		n += len(r.shards[i].sessions)
		r.shards[i].mu.RUnlock()
	}
	return n
}

// handleTerminal runs when any session reaches a terminal state: drop the
// registry entry, free the enrolled combatants, and hand completed battles
// to the reward hook off the session's goroutine.
func (r *Registry) handleTerminal(res Result) {
	shard := &r.shards[shardIndex(res.ContextKey)]
	shard.mu.Lock()
	if sess, ok := shard.sessions[res.ContextKey]; ok && sess.ID() == res.SessionID {
		delete(shard.sessions, res.ContextKey)
	}
	shard.mu.Unlock()

	for _, c := range res.Roster {
		if c.Kind == battle.KindPlayer {
			r.unenroll(c.ID)
		}
	}

	if !res.Abandoned && r.opts.OnTerminal != nil {
		go r.opts.OnTerminal(res)
	}
}

func (r *Registry) remove(contextKey string, sess *Session) {
	shard := &r.shards[shardIndex(contextKey)]
	shard.mu.Lock()
	if cur, ok := shard.sessions[contextKey]; ok && cur.ID() == sess.ID() {
		delete(shard.sessions, contextKey)
	}
	shard.mu.Unlock()

	for _, c := range sess.Roster() {
		if c.Kind == battle.KindPlayer {
			r.unenroll(c.ID)
		}
	}
}

func (r *Registry) unenroll(participantID string) {
	es := &r.enroll[shardIndex(participantID)]
	es.mu.Lock()
	delete(es.byCombatant, participantID)
	es.mu.Unlock()
}
