package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
	"github.com/The-Infamous-Aries/Allspark/internal/observability"
)

// State is a Session's position in its life cycle. Transitions are monotonic
// except for the Active/Resolving round loop; a terminal session never moves
// again.
type State int

const (
	StateLobby State = iota
	StateActive
	StateResolving
	StateComplete
	StateAbandoned
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateActive:
		return "active"
	case StateResolving:
		return "resolving"
	case StateComplete:
		return "complete"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is Complete or Abandoned.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateAbandoned
}

// Participant-facing errors. All are recoverable; the session survives them.
var (
	ErrInvalidAction    = errors.New("invalid action")
	ErrRosterFull       = errors.New("roster full")
	ErrRosterIncomplete = errors.New("roster incomplete")
	ErrNotInLobby       = errors.New("session is not accepting joiners")
	ErrNotAcceptingActs = errors.New("session is not accepting actions")
	ErrNotParticipant   = errors.New("not a participant in this session")
)

// Config carries everything a Session needs at construction.
type Config struct {
	ContextKey string
	Mode       Mode
	// Wager is the per-participant stake in wagered PvP modes, zero otherwise.
	Wager int

	RoundDeadline time.Duration
	LobbyTimeout  time.Duration

	Tuning battle.Tuning
	Source battle.Source
	Logger *zap.Logger
	Bus    *Bus
}

// Stats aggregates one participant's combat totals across every round.
type Stats struct {
	DamageDealt int
	DamageTaken int
}

// Result is the immutable summary handed to the terminal hook. Roster holds
// clones, safe to read without further locking.
type Result struct {
	SessionID  string
	ContextKey string
	Mode       Mode
	Wager      int
	Rounds     int

	Verdict   Verdict
	Abandoned bool
	Reason    string

	Roster []*battle.Combatant
	Stats  map[string]Stats
}

// Session runs one encounter from lobby to terminal state. All exported
// methods are safe for concurrent use; internally every mutation runs under
// one mutex so action submission, deadline firing, and resolution are
// linearizable.
type Session struct {
	id  string
	cfg Config

	mu         sync.Mutex
	state      State
	roster     []*battle.Combatant // join order; AI appended at creation
	round      int
	stats      map[string]Stats
	queue      *battle.Queue
	roundTimer *deadlineTimer
	lobbyTimer *deadlineTimer

	// onTerminal fires exactly once, while the session lock is held; it must
	// not call back into the session synchronously.
	onTerminal func(Result)

	logger *zap.Logger
}

// newSession builds a Session in the Lobby state and starts its lobby
// timeout. Sessions are created through a Registry, never directly.
func newSession(cfg Config, onTerminal func(Result)) *Session {
	s := &Session{
		id:         uuid.NewString(),
		cfg:        cfg,
		state:      StateLobby,
		onTerminal: onTerminal,
	}
	s.logger = observability.SessionLogger(cfg.Logger, cfg.ContextKey, s.id).With(
		zap.String("mode", cfg.Mode.String()),
	)
	s.lobbyTimer = newDeadlineTimer(cfg.LobbyTimeout, s.handleLobbyTimeout)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// ContextKey returns the isolation key the session occupies.
func (s *Session) ContextKey() string { return s.cfg.ContextKey }

// Mode returns the encounter variant.
func (s *Session) Mode() Mode { return s.cfg.Mode }

// State returns the current life-cycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Round returns the current round number, zero while in the lobby.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Roster returns clones of every participant in join order.
func (s *Session) Roster() []*battle.Combatant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterClonesLocked()
}

func (s *Session) rosterClonesLocked() []*battle.Combatant {
	out := make([]*battle.Combatant, len(s.roster))
	for i, c := range s.roster {
		out[i] = c.Clone()
	}
	return out
}

// Join adds a player to the lobby. The roster fills in join order; the mode
// assigns the team tag. Reaching the mode's player capacity starts the battle
// immediately.
//
// Postcondition: on success the participant is enrolled exactly once and a
// participant_joined event is published.
func (s *Session) Join(base battle.BaseData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLobby {
		return fmt.Errorf("%w: session is %s", ErrNotInLobby, s.state)
	}
	for _, c := range s.roster {
		if c.ID == base.ID {
			return fmt.Errorf("%w: %q already enrolled", ErrInvalidAction, base.ID)
		}
	}
	_, max := s.cfg.Mode.PlayerCapacity()
	players := s.playerCountLocked()
	if players >= max {
		return fmt.Errorf("%w: %s holds %d players", ErrRosterFull, s.cfg.Mode, max)
	}

	c := battle.NewCombatant(base, battle.KindPlayer, s.cfg.Mode.TeamFor(players))
	s.roster = append(s.roster, c)
	s.logger.Info("participant joined",
		zap.String("participant_id", c.ID),
		zap.String("team", string(c.Team)),
	)
	s.publishLocked(Event{Kind: EventParticipantJoined, ParticipantID: c.ID})

	if s.playerCountLocked() == max {
		s.startLocked()
	}
	return nil
}

// AddEnemy seeds an AI opponent into the lobby roster. PvE registries call
// this at creation time with a stat block from the enemy catalog.
//
// Precondition: the session is in the lobby.
func (s *Session) AddEnemy(base battle.BaseData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLobby {
		return fmt.Errorf("%w: session is %s", ErrNotInLobby, s.state)
	}
	for _, c := range s.roster {
		if c.ID == base.ID {
			return fmt.Errorf("%w: %q already enrolled", ErrInvalidAction, base.ID)
		}
	}
	s.roster = append(s.roster, battle.NewCombatant(base, battle.KindAI, battle.TeamEnemies))
	return nil
}

// Start moves the session from Lobby to Active on an explicit start signal.
//
// Postcondition: on success the first round is open for actions and a
// session_started event is published.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLobby {
		return fmt.Errorf("%w: session is %s", ErrNotInLobby, s.state)
	}
	min, _ := s.cfg.Mode.PlayerCapacity()
	if s.playerCountLocked() < min {
		return fmt.Errorf("%w: %s needs %d players", ErrRosterIncomplete, s.cfg.Mode, min)
	}
	s.startLocked()
	return nil
}

func (s *Session) startLocked() {
	s.lobbyTimer.Stop()
	s.state = StateActive
	s.round = 1
	s.stats = make(map[string]Stats, len(s.roster))
	s.queue = battle.NewQueue(s.livingPlayerIDsLocked())
	s.armRoundTimerLocked()

	s.logger.Info("session started",
		zap.Int("roster_size", len(s.roster)),
		zap.Int("wager", s.cfg.Wager),
	)
	s.publishLocked(Event{Kind: EventSessionStarted})
}

// SubmitAction records one participant's intent for the current round.
// Resubmitting before the round resolves replaces the earlier action. The
// round resolves as soon as every living player has submitted.
//
// Postcondition: Returns nil iff the action was accepted; a rejected action
// leaves the session unchanged and the participant may resubmit.
func (s *Session) SubmitAction(participantID string, kind battle.ActionKind, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return fmt.Errorf("%w: session is %s", ErrNotAcceptingActs, s.state)
	}
	actor := s.findLocked(participantID)
	if actor == nil || actor.Kind != battle.KindPlayer {
		return fmt.Errorf("%w: %q", ErrNotParticipant, participantID)
	}
	if !actor.IsAlive() {
		return fmt.Errorf("%w: %q is defeated", ErrInvalidAction, participantID)
	}

	if kind == battle.ActionForfeit {
		s.forfeitLocked(actor)
		return nil
	}
	if err := s.validateTargetLocked(actor, kind, targetID); err != nil {
		return err
	}

	if err := s.queue.Submit(battle.Action{
		Kind:        kind,
		ActorID:     participantID,
		TargetID:    targetID,
		SubmittedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	if s.queue.Complete() {
		s.resolveRoundLocked()
	}
	return nil
}

func (s *Session) validateTargetLocked(actor *battle.Combatant, kind battle.ActionKind, targetID string) error {
	switch kind {
	case battle.ActionAttack:
		target := s.findLocked(targetID)
		if target == nil || !target.IsAlive() {
			return fmt.Errorf("%w: no living target %q", ErrInvalidAction, targetID)
		}
		if target.ID == actor.ID {
			return fmt.Errorf("%w: cannot attack yourself", ErrInvalidAction)
		}
		if actor.Team != battle.TeamNone && target.Team == actor.Team {
			return fmt.Errorf("%w: %q is an ally", ErrInvalidAction, targetID)
		}
	case battle.ActionGuard:
		ward := s.findLocked(targetID)
		if ward == nil || !ward.IsAlive() || ward.ID == actor.ID {
			return fmt.Errorf("%w: no living ally %q to guard", ErrInvalidAction, targetID)
		}
		if actor.Team == battle.TeamNone || ward.Team != actor.Team {
			return fmt.Errorf("%w: %q is not an ally", ErrInvalidAction, targetID)
		}
	case battle.ActionDefend, battle.ActionCharge:
		if targetID != "" {
			return fmt.Errorf("%w: %s takes no target", ErrInvalidAction, kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind", ErrInvalidAction)
	}
	return nil
}

// Forfeit removes the participant from the fight immediately, without
// waiting for the round to resolve. Forfeiting can end the battle: the last
// standing side wins, and a fight every player has walked out of is
// abandoned with no rewards.
func (s *Session) Forfeit(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return fmt.Errorf("%w: session is %s", ErrNotAcceptingActs, s.state)
	}
	actor := s.findLocked(participantID)
	if actor == nil || actor.Kind != battle.KindPlayer {
		return fmt.Errorf("%w: %q", ErrNotParticipant, participantID)
	}

	if s.state == StateLobby {
		s.removeFromLobbyLocked(participantID)
		return nil
	}
	if !actor.IsAlive() {
		return fmt.Errorf("%w: %q is already defeated", ErrInvalidAction, participantID)
	}
	s.forfeitLocked(actor)
	return nil
}

func (s *Session) removeFromLobbyLocked(participantID string) {
	// The last player leaving abandons the lobby with the leaver still on
	// the roster, so the terminal hook frees every enrollment in one place.
	if s.playerCountLocked() == 1 {
		s.abandonLocked("lobby emptied")
		return
	}
	kept := s.roster[:0]
	for _, c := range s.roster {
		if c.ID != participantID {
			kept = append(kept, c)
		}
	}
	s.roster = kept
}

func (s *Session) forfeitLocked(actor *battle.Combatant) {
	actor.Forfeited = true
	actor.Defeated = true
	s.queue.Drop(actor.ID)

	s.logger.Info("participant forfeited", zap.String("participant_id", actor.ID))
	s.publishLocked(Event{Kind: EventParticipantDefeated, ParticipantID: actor.ID})

	if !s.anyLivingPlayerLocked() {
		s.abandonLocked("all participants forfeited")
		return
	}
	if v := s.cfg.Mode.CheckTermination(s.roster); v.Over {
		s.completeLocked(v)
		return
	}
	if s.queue.Complete() {
		s.resolveRoundLocked()
	}
}

// Cancel administratively abandons the session regardless of its progress.
// Idempotent: cancelling a terminal session is a no-op.
func (s *Session) Cancel(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.abandonLocked(reason)
}

// handleLobbyTimeout fires when the lobby has been open too long: start with
// whoever showed up if the minimum roster is met, otherwise abandon.
func (s *Session) handleLobbyTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLobby {
		return
	}
	min, _ := s.cfg.Mode.PlayerCapacity()
	if s.playerCountLocked() >= min {
		s.logger.Info("lobby timeout, starting with current roster")
		s.startLocked()
		return
	}
	s.abandonLocked("lobby timeout")
}

// handleRoundDeadline fires when the round's submission window closes.
// Missing participants default to defend so the round always resolves.
func (s *Session) handleRoundDeadline(round int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The timer may race a just-finished resolution; only the round it was
	// armed for counts.
	if s.state != StateActive || s.round != round {
		return
	}
	if n := s.queue.FillDefaults(time.Now()); n > 0 {
		s.logger.Info("round deadline reached",
			zap.Int("round", round),
			zap.Int("defaulted", n),
		)
	}
	s.resolveRoundLocked()
}

func (s *Session) armRoundTimerLocked() {
	round := s.round
	fire := func() { s.handleRoundDeadline(round) }
	if s.roundTimer == nil {
		s.roundTimer = newDeadlineTimer(s.cfg.RoundDeadline, fire)
		return
	}
	s.roundTimer.Reset(s.cfg.RoundDeadline, fire)
}

// resolveRoundLocked runs one round: collect AI actions, resolve against a
// cloned roster, and commit the clones only on success. A fault during the
// math retries the round once with the same queued actions; a second fault
// abandons the session rather than risk a half-applied round.
func (s *Session) resolveRoundLocked() {
	s.state = StateResolving
	s.roundTimer.Stop()

	actions := s.queue.Actions()
	for _, c := range s.roster {
		if c.Kind == battle.KindAI && c.IsAlive() {
			actions[c.ID] = chooseAIAction(c, s.roster, s.cfg.Source, s.cfg.Tuning)
		}
	}

	result, clones, err := s.tryResolveLocked(actions)
	if err != nil {
		s.logger.Error("round resolution failed, retrying once", zap.Error(err))
		result, clones, err = s.tryResolveLocked(actions)
		if err != nil {
			s.logger.Error("round resolution failed twice", zap.Error(err))
			s.abandonLocked("internal resolution error")
			return
		}
	}

	// Commit: the resolved clones become the roster.
	s.roster = clones
	for id, d := range result.DamageDealt {
		st := s.stats[id]
		st.DamageDealt += d
		s.stats[id] = st
	}
	for id, d := range result.DamageTaken {
		st := s.stats[id]
		st.DamageTaken += d
		s.stats[id] = st
	}
	s.logger.Info("round resolved",
		zap.Int("round", result.Number),
		zap.Int("effects", len(result.Effects)),
		zap.Strings("defeated", result.Defeated),
	)
	s.publishLocked(Event{Kind: EventRoundResolved, Round: &result})
	for _, id := range result.Defeated {
		s.publishLocked(Event{Kind: EventParticipantDefeated, ParticipantID: id})
	}

	if v := s.cfg.Mode.CheckTermination(s.roster); v.Over {
		s.completeLocked(v)
		return
	}

	s.round++
	s.queue = battle.NewQueue(s.livingPlayerIDsLocked())
	s.state = StateActive
	s.armRoundTimerLocked()
}

// tryResolveLocked resolves the round against roster clones, converting a
// panic in the math into an error. The real roster is untouched on failure.
func (s *Session) tryResolveLocked(actions map[string]battle.Action) (result battle.RoundResult, clones []*battle.Combatant, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("round %d: %v", s.round, r)
		}
	}()

	clones = s.rosterClonesLocked()
	living := make([]*battle.Combatant, 0, len(clones))
	for _, c := range clones {
		if c.IsAlive() {
			living = append(living, c)
		}
	}
	result = battle.ResolveRound(s.round, living, actions, s.cfg.Source, s.cfg.Tuning)
	return result, clones, nil
}

func (s *Session) completeLocked(v Verdict) {
	s.stopTimers()
	s.state = StateComplete
	s.logger.Info("session complete",
		zap.Int("rounds", s.round),
		zap.Strings("winners", v.Winners),
	)
	s.publishLocked(Event{Kind: EventSessionCompleted, Verdict: &v})
	s.fireTerminalLocked(v, false, "")
}

func (s *Session) abandonLocked(reason string) {
	s.stopTimers()
	s.state = StateAbandoned
	s.logger.Info("session abandoned", zap.String("reason", reason))
	s.publishLocked(Event{Kind: EventSessionAbandoned, Reason: reason})
	s.fireTerminalLocked(Verdict{}, true, reason)
}

func (s *Session) fireTerminalLocked(v Verdict, abandoned bool, reason string) {
	if s.onTerminal == nil {
		return
	}
	stats := make(map[string]Stats, len(s.stats))
	for id, st := range s.stats {
		stats[id] = st
	}
	s.onTerminal(Result{
		SessionID:  s.id,
		ContextKey: s.cfg.ContextKey,
		Mode:       s.cfg.Mode,
		Wager:      s.cfg.Wager,
		Rounds:     s.round,
		Verdict:    v,
		Abandoned:  abandoned,
		Reason:     reason,
		Roster:     s.rosterClonesLocked(),
		Stats:      stats,
	})
}

// stopTimers silences the lobby and round timers. They carry their own
// locks, so callers need not hold the session lock.
func (s *Session) stopTimers() {
	s.lobbyTimer.Stop()
	if s.roundTimer != nil {
		s.roundTimer.Stop()
	}
}

func (s *Session) publishLocked(ev Event) {
	if s.cfg.Bus == nil {
		return
	}
	ev.ContextKey = s.cfg.ContextKey
	ev.SessionID = s.id
	s.cfg.Bus.Publish(ev)
}

func (s *Session) findLocked(id string) *battle.Combatant {
	for _, c := range s.roster {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Session) playerCountLocked() int {
	n := 0
	for _, c := range s.roster {
		if c.Kind == battle.KindPlayer {
			n++
		}
	}
	return n
}

func (s *Session) livingPlayerIDsLocked() []string {
	var ids []string
	for _, c := range s.roster {
		if c.Kind == battle.KindPlayer && c.IsAlive() {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (s *Session) anyLivingPlayerLocked() bool {
	for _, c := range s.roster {
		if c.Kind == battle.KindPlayer && c.IsAlive() && !c.Forfeited {
			return true
		}
	}
	return false
}
