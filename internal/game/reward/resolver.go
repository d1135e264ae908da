// Package reward turns a terminal battle into per-participant experience,
// currency, and loot deltas, and pushes them through the persistence store.
package reward

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
	"github.com/The-Infamous-Aries/Allspark/internal/game/session"
)

// LootGrant is one item rolled from the loot catalog.
type LootGrant struct {
	ItemID    string      `json:"item_id"`
	Name      string      `json:"name"`
	Tier      battle.Tier `json:"tier"`
	Slot      battle.Slot `json:"slot"`
	Attack    int         `json:"attack,omitempty"`
	Defense   int         `json:"defense,omitempty"`
	MaxHealth int         `json:"max_health,omitempty"`
}

// Bonus converts the grant into the equipment bonus it confers once equipped.
func (g LootGrant) Bonus() battle.EquipmentBonus {
	return battle.EquipmentBonus{
		Slot:      g.Slot,
		Name:      g.Name,
		Tier:      g.Tier,
		Attack:    g.Attack,
		Defense:   g.Defense,
		MaxHealth: g.MaxHealth,
	}
}

// Delta is the net outcome for one participant. Currency may be negative;
// the store floors the persisted balance at zero. Health is the change in
// current health over the battle, almost always negative; the store clamps
// the persisted value to [0, max health].
type Delta struct {
	XP       int
	Currency int
	Health   int
	Loot     []LootGrant
}

// Outcome is the full reward picture for one session.
type Outcome struct {
	SessionID string
	Deltas    map[string]Delta
}

// Store persists participant deltas. Implemented by the postgres combatant
// store.
type Store interface {
	SaveCombatantDelta(ctx context.Context, participantID string, d Delta) error
}

// Catalog supplies weighted rarity sampling and per-tier item rolls.
// Implemented by the content catalog.
type Catalog interface {
	SampleTier(src battle.Source) battle.Tier
	RollItem(tier battle.Tier, src battle.Source) (LootGrant, bool)
}

// Tunables are the reward dials, loaded from RewardConfig.
type Tunables struct {
	// BaseDivisor converts a defeated enemy's max health into the base
	// XP/currency amount (maxHealth / BaseDivisor, scaled by tier).
	BaseDivisor    int
	TierMultiplier map[battle.Tier]float64

	PvPWinXP        int
	PvPWinCurrency  int
	PvPLossXP       int
	PvPLossCurrency int
}

// DefaultTunables mirrors the shipped config defaults.
func DefaultTunables() Tunables {
	return Tunables{
		BaseDivisor: 10,
		TierMultiplier: map[battle.Tier]float64{
			battle.TierCommon:    1,
			battle.TierUncommon:  1.5,
			battle.TierRare:      2,
			battle.TierEpic:      3,
			battle.TierLegendary: 5,
			battle.TierMythic:    10,
		},
		PvPWinXP:        50,
		PvPWinCurrency:  100,
		PvPLossXP:       10,
		PvPLossCurrency: 25,
	}
}

// Resolver computes and persists reward outcomes. One Resolver serves all
// sessions; it is stateless apart from its dependencies.
type Resolver struct {
	store   Store
	catalog Catalog
	tun     Tunables
	src     battle.Source
	logger  *zap.Logger
}

// NewResolver wires a Resolver.
//
// Precondition: store, catalog, src, and logger must be non-nil.
func NewResolver(store Store, catalog Catalog, tun Tunables, src battle.Source, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, catalog: catalog, tun: tun, src: src, logger: logger}
}

// Resolve computes every participant's delta for a completed session and
// persists them concurrently. A store failure for one participant never
// blocks the others; all failures are joined into the returned error, with
// the Outcome still reporting what was computed.
//
// Postcondition: in wagered battles the currency deltas across all players
// sum to zero (stakes move, they are never created or destroyed).
func (r *Resolver) Resolve(ctx context.Context, res session.Result) (Outcome, error) {
	out := Outcome{SessionID: res.SessionID, Deltas: make(map[string]Delta)}
	if res.Abandoned {
		return out, nil
	}

	byID := make(map[string]*battle.Combatant, len(res.Roster))
	for _, c := range res.Roster {
		byID[c.ID] = c
	}

	if res.Mode.IsPvP() {
		r.resolvePvP(res, byID, out.Deltas)
	} else {
		r.resolvePvE(res, byID, out.Deltas)
	}

	// Battle damage persists regardless of who won.
	for _, c := range res.Roster {
		if c.Kind != battle.KindPlayer {
			continue
		}
		hurt := c.CurrentHealth - c.StartingHealth
		if d, ok := out.Deltas[c.ID]; ok || hurt != 0 {
			d.Health = hurt
			out.Deltas[c.ID] = d
		}
	}

	err := r.persist(ctx, out.Deltas)
	return out, err
}

// resolvePvE awards each winning player XP and currency scaled by the
// defeated enemies' size and rarity, plus loot rolls gated on how healthy
// the player finished.
func (r *Resolver) resolvePvE(res session.Result, byID map[string]*battle.Combatant, deltas map[string]Delta) {
	base := 0
	for _, c := range res.Roster {
		if c.Kind == battle.KindAI && c.Defeated {
			amount := c.EffectiveMaxHealth() / r.tun.BaseDivisor
			base += int(float64(amount) * r.tun.TierMultiplier[c.Tier])
		}
	}
	if base == 0 {
		// The enemy side won; nothing to hand out.
		return
	}

	for _, id := range res.Verdict.Winners {
		c := byID[id]
		if c == nil || c.Kind != battle.KindPlayer {
			continue
		}
		d := Delta{XP: base, Currency: base}
		for i := 0; i < r.lootRolls(c); i++ {
			tier := r.catalog.SampleTier(r.src)
			if item, ok := r.catalog.RollItem(tier, r.src); ok {
				d.Loot = append(d.Loot, item)
			}
		}
		deltas[id] = d
	}
}

// lootRolls maps surviving health to loot chances: finish strong (>=90%) for
// two rolls, barely survive (<=10%) for none, and anywhere between for one
// roll with probability equal to the health fraction.
func (r *Resolver) lootRolls(c *battle.Combatant) int {
	frac := c.HealthFraction()
	switch {
	case frac >= 0.9:
		return 2
	case frac <= 0.1:
		return 0
	default:
		if r.src.Intn(100) < int(frac*100) {
			return 1
		}
		return 0
	}
}

// resolvePvP hands out the fixed win/loss amounts, and in wagered battles
// moves the stakes from losers to winners instead of the fixed currency.
func (r *Resolver) resolvePvP(res session.Result, byID map[string]*battle.Combatant, deltas map[string]Delta) {
	winners := playerIDs(res.Verdict.Winners, byID)
	losers := playerIDs(res.Verdict.Losers, byID)

	for _, id := range winners {
		deltas[id] = Delta{XP: r.tun.PvPWinXP, Currency: r.tun.PvPWinCurrency}
	}
	for _, id := range losers {
		deltas[id] = Delta{XP: r.tun.PvPLossXP, Currency: -r.tun.PvPLossCurrency}
	}

	if res.Wager <= 0 || len(winners) == 0 || len(losers) == 0 {
		return
	}

	// Wagered battle: the pool is exactly the losers' stakes, split evenly
	// across the winners with the remainder going to the lowest IDs.
	pool := res.Wager * len(losers)
	for _, id := range losers {
		deltas[id] = Delta{XP: r.tun.PvPLossXP, Currency: -res.Wager}
	}
	sort.Strings(winners)
	share := pool / len(winners)
	remainder := pool % len(winners)
	for i, id := range winners {
		cut := share
		if i < remainder {
			cut++
		}
		deltas[id] = Delta{XP: r.tun.PvPWinXP, Currency: cut}
	}
}

func playerIDs(ids []string, byID map[string]*battle.Combatant) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if c := byID[id]; c != nil && c.Kind == battle.KindPlayer {
			out = append(out, id)
		}
	}
	return out
}

// PublishOutcome announces the settled rewards on the session bus as a
// rewards_resolved event, so subscribers of the battle's context key learn
// what XP, currency, and loot landed. Call it with whatever Resolve returned;
// a store failure does not change what was computed.
//
// Postcondition: Returns the number of subscribers that received the event.
func PublishOutcome(bus *session.Bus, res session.Result, out Outcome) int {
	ev := session.Event{
		Kind:       session.EventRewardsResolved,
		ContextKey: res.ContextKey,
		SessionID:  res.SessionID,
		Rewards:    make(map[string]session.RewardDelta, len(out.Deltas)),
	}
	for id, d := range out.Deltas {
		rd := session.RewardDelta{XP: d.XP, Currency: d.Currency, Health: d.Health}
		for _, g := range d.Loot {
			rd.Loot = append(rd.Loot, g.Name)
		}
		ev.Rewards[id] = rd
	}
	return bus.Publish(ev)
}

// persist writes all deltas concurrently, collecting every failure.
func (r *Resolver) persist(ctx context.Context, deltas map[string]Delta) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for id, d := range deltas {
		g.Go(func() error {
			if err := r.store.SaveCombatantDelta(ctx, id, d); err != nil {
				r.logger.Error("reward persistence failed",
					zap.String("participant_id", id),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("participant %s: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
