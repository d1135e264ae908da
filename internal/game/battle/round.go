package battle

import "sort"

// EffectKind labels one entry in a round's effect log.
type EffectKind string

const (
	EffectAttack    EffectKind = "attack"
	EffectNoTarget  EffectKind = "no_target" // the chosen target was already down
	EffectDefend    EffectKind = "defend"
	EffectCharge    EffectKind = "charge"
	EffectGuard     EffectKind = "guard"
	EffectForfeit   EffectKind = "forfeit"
	EffectGuardShed EffectKind = "guard_split" // damage distributed across guardians
)

// Effect is one observable consequence of a round, in resolution order.
type Effect struct {
	Kind     EffectKind
	ActorID  string
	TargetID string
	// Attack holds the exchange detail for EffectAttack entries.
	Attack *AttackResult
	// Shares holds the damage distribution for EffectGuardShed entries.
	Shares []GuardShare
}

// RoundResult summarizes one resolved round.
type RoundResult struct {
	Number  int
	Effects []Effect

	// DamageDealt and DamageTaken aggregate per participant, parries included.
	DamageDealt map[string]int
	DamageTaken map[string]int

	// Defeated lists participants newly defeated this round, forfeits
	// included, in ascending ID order.
	Defeated []string
}

// turnOrder sorts combatants into resolution order: effective speed
// descending, participant ID ascending on ties.
func turnOrder(roster []*Combatant) []*Combatant {
	ordered := append([]*Combatant(nil), roster...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Speed != ordered[j].Speed {
			return ordered[i].Speed > ordered[j].Speed
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// ResolveRound applies one full action set to the roster and returns the
// round's outcome. Combatants are mutated in place; callers that need
// atomicity resolve against clones and commit afterwards.
//
// Resolution runs in two phases over the same turn order (speed descending,
// ID ascending on ties):
//
//  1. Stances: forfeits, defend, charge, and guard declarations take effect
//     before any attack lands, regardless of the actors' relative speed.
//  2. Attacks: each surviving attacker resolves against its target. A target
//     already down by the time the attack resolves wastes the attack. Damage
//     aimed at a guarded target is split evenly across the target and its
//     living guardians, remainder to the lowest IDs.
//
// Charge bookkeeping: an attack spends the attacker's charge immediately; a
// defender that mitigated at least one attack spends its charge at round end;
// a charging combatant advances its charge at round end.
//
// Postcondition: for every combatant, 0 <= CurrentHealth <= EffectiveMaxHealth;
// every combatant at zero health is marked Defeated.
func ResolveRound(number int, roster []*Combatant, actions map[string]Action, src Source, t Tuning) RoundResult {
	res := RoundResult{
		Number:      number,
		DamageDealt: make(map[string]int),
		DamageTaken: make(map[string]int),
	}

	ordered := turnOrder(roster)
	byID := make(map[string]*Combatant, len(ordered))
	for _, c := range ordered {
		byID[c.ID] = c
	}

	// Phase 1: stances.
	for _, c := range ordered {
		if !c.IsAlive() {
			continue
		}
		act, ok := actions[c.ID]
		if !ok {
			continue
		}
		switch act.Kind {
		case ActionForfeit:
			c.Forfeited = true
			c.Defeated = true
			res.Effects = append(res.Effects, Effect{Kind: EffectForfeit, ActorID: c.ID})
		case ActionDefend:
			c.Defending = true
			res.Effects = append(res.Effects, Effect{Kind: EffectDefend, ActorID: c.ID})
		case ActionCharge:
			c.Charging = true
			res.Effects = append(res.Effects, Effect{Kind: EffectCharge, ActorID: c.ID})
		case ActionGuard:
			ward := byID[act.TargetID]
			if ward == nil || ward.ID == c.ID || !ward.IsAlive() || ward.Team != c.Team {
				// No valid ward to cover; fall back to defending self.
				c.Defending = true
				res.Effects = append(res.Effects, Effect{Kind: EffectDefend, ActorID: c.ID})
				continue
			}
			c.GuardTarget = ward.ID
			res.Effects = append(res.Effects, Effect{Kind: EffectGuard, ActorID: c.ID, TargetID: ward.ID})
		}
	}

	// Phase 2: attacks.
	defenseSpent := make(map[string]bool)
	for _, c := range ordered {
		act, ok := actions[c.ID]
		if !ok || act.Kind != ActionAttack {
			continue
		}
		if !c.IsAlive() {
			continue
		}
		target := byID[act.TargetID]
		if target == nil || !target.IsAlive() {
			res.Effects = append(res.Effects, Effect{Kind: EffectNoTarget, ActorID: c.ID, TargetID: act.TargetID})
			c.Charge = 1
			continue
		}

		exch := ResolveAttack(c, target, src, t)
		c.Charge = 1
		eff := Effect{Kind: EffectAttack, ActorID: c.ID, TargetID: target.ID, Attack: &exch}
		res.Effects = append(res.Effects, eff)

		if target.Defending && !exch.Missed {
			defenseSpent[target.ID] = true
		}

		if exch.Damage > 0 {
			guardians := livingGuardians(ordered, target.ID)
			if len(guardians) > 0 {
				ids := make([]string, 0, len(guardians)+1)
				ids = append(ids, target.ID)
				for _, g := range guardians {
					ids = append(ids, g.ID)
				}
				shares := SplitGuardDamage(exch.Damage, ids)
				for _, sh := range shares {
					byID[sh.ParticipantID].ApplyDamage(sh.Damage)
					res.DamageTaken[sh.ParticipantID] += sh.Damage
				}
				res.Effects = append(res.Effects, Effect{
					Kind:     EffectGuardShed,
					ActorID:  c.ID,
					TargetID: target.ID,
					Shares:   shares,
				})
			} else {
				target.ApplyDamage(exch.Damage)
				res.DamageTaken[target.ID] += exch.Damage
			}
			res.DamageDealt[c.ID] += exch.Damage
		}
		if exch.ParryDamage > 0 {
			c.ApplyDamage(exch.ParryDamage)
			res.DamageDealt[target.ID] += exch.ParryDamage
			res.DamageTaken[c.ID] += exch.ParryDamage
		}
	}

	// Round-end bookkeeping: charges and stance flags.
	for _, c := range ordered {
		switch {
		case c.Charging && c.IsAlive():
			c.Charge = t.NextCharge(c.Charge)
		case defenseSpent[c.ID]:
			c.Charge = 1
		}
		c.ResetRound()
	}

	for _, c := range ordered {
		if c.Defeated {
			res.Defeated = append(res.Defeated, c.ID)
		}
	}
	sort.Strings(res.Defeated)
	return res
}

// livingGuardians returns the living combatants guarding targetID, excluding
// the target itself.
func livingGuardians(roster []*Combatant, targetID string) []*Combatant {
	var out []*Combatant
	for _, c := range roster {
		if c.ID != targetID && c.IsAlive() && c.GuardTarget == targetID {
			out = append(out, c)
		}
	}
	return out
}
