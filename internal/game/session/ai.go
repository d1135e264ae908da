package session

import (
	"sort"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
)

// chooseAIAction picks the AI combatant's action for the round. The choice is
// a weighted draw whose weights shift with the AI's situation, and targeting
// is deterministic (lowest-health living opponent, ascending ID on ties), so
// a fixed random source yields a fixed plan.
//
// Weight table (attack / defend / charge, out of 100):
//
//	fully charged (>= half the cap)  80 / 10 / 10
//	pressed below 30% health         45 / 40 / 15
//	otherwise                        60 / 20 / 20
//
// Precondition: actor is alive and at least one living opponent exists.
func chooseAIAction(actor *battle.Combatant, roster []*battle.Combatant, src battle.Source, t battle.Tuning) battle.Action {
	attackW, defendW := 60, 20
	switch {
	case actor.Charge >= t.ChargeCap/2:
		attackW, defendW = 80, 10
	case actor.HealthFraction() < 0.3:
		attackW, defendW = 45, 40
	}

	roll := src.Intn(100)
	var kind battle.ActionKind
	switch {
	case roll < attackW:
		kind = battle.ActionAttack
	case roll < attackW+defendW:
		kind = battle.ActionDefend
	default:
		kind = battle.ActionCharge
	}

	act := battle.Action{Kind: kind, ActorID: actor.ID}
	if kind == battle.ActionAttack {
		act.TargetID = pickAITarget(actor, roster)
		if act.TargetID == "" {
			// Nobody left to hit; hold the line instead.
			act.Kind = battle.ActionDefend
		}
	}
	return act
}

// pickAITarget returns the living opponent with the least current health,
// lowest ID on ties. Opponents are combatants on a different team, or in
// teamless modes, anyone but the actor.
func pickAITarget(actor *battle.Combatant, roster []*battle.Combatant) string {
	candidates := make([]*battle.Combatant, 0, len(roster))
	for _, c := range roster {
		if c.ID == actor.ID || !c.IsAlive() {
			continue
		}
		if c.Team != battle.TeamNone && c.Team == actor.Team {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CurrentHealth != candidates[j].CurrentHealth {
			return candidates[i].CurrentHealth < candidates[j].CurrentHealth
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0].ID
}
