package battle

import "sort"

// Source yields uniform random ints in [0, n). Satisfied by the dice package's
// crypto and seeded sources; tests substitute fixed-value doubles.
type Source interface {
	Intn(n int) int
}

// RollBand classifies a d20 result into the multiplier band it falls in.
type RollBand int

const (
	BandMiss   RollBand = iota // 1-4: the swing connects with nothing
	BandBase                   // 5-8: flat stat value
	BandThird                  // 9-12: stat scaled by roll/3
	BandStrong                 // 13-16: stat scaled by 2*roll/3
	BandFull                   // 17-20: stat scaled by the full roll
)

// BandFor returns the band a d20 roll falls in.
//
// Precondition: 1 <= roll <= 20.
func BandFor(roll int) RollBand {
	switch {
	case roll <= 4:
		return BandMiss
	case roll <= 8:
		return BandBase
	case roll <= 12:
		return BandThird
	case roll <= 16:
		return BandStrong
	default:
		return BandFull
	}
}

// RollValue converts a stat and a d20 roll into the effective value the roll
// produces. Division truncates toward zero, matching the band table:
//
//	1-4   -> 0
//	5-8   -> stat
//	9-12  -> stat * roll / 3
//	13-16 -> stat * 2 * roll / 3
//	17-20 -> stat * roll
//
// Postcondition: Returns 0 iff the roll is in the miss band or stat <= 0.
func RollValue(stat, roll int) int {
	if stat <= 0 {
		return 0
	}
	switch BandFor(roll) {
	case BandMiss:
		return 0
	case BandBase:
		return stat
	case BandThird:
		return stat * roll / 3
	case BandStrong:
		return stat * 2 * roll / 3
	default:
		return stat * roll
	}
}

// Tuning carries the dials of the damage formula. Values come from
// BattleConfig; DefaultTuning matches the config defaults.
type Tuning struct {
	// ChargeCap bounds the charge multiplier.
	ChargeCap float64
	// ChargingVulnerability scales damage taken while charging.
	ChargingVulnerability float64
	// CritThreshold is the minimum d20 roll that counts as a critical hit.
	CritThreshold int
}

// DefaultTuning returns the standard dials: charge doubling capped at 16x,
// 25% extra damage while charging, crits on 17+.
func DefaultTuning() Tuning {
	return Tuning{
		ChargeCap:             16,
		ChargingVulnerability: 1.25,
		CritThreshold:         17,
	}
}

// NextCharge returns the charge multiplier after one charge action: the
// current value doubled, capped.
//
// Precondition: current >= 1.
// Postcondition: 1 <= result <= t.ChargeCap.
func (t Tuning) NextCharge(current float64) float64 {
	next := current * 2
	if next > t.ChargeCap {
		next = t.ChargeCap
	}
	return next
}

// AttackResult is the full account of one attack exchange, kept for event
// payloads and battle logs.
type AttackResult struct {
	AttackerID string
	DefenderID string

	AttackRoll  int
	DefenseRoll int // 0 when the defender was not defending

	AttackValue  int // post-charge, pre-mitigation
	DefenseValue int

	Damage      int // applied to the defender
	ParryDamage int // applied back to the attacker

	Missed   bool
	Blocked  bool // defense exactly matched the attack
	Parried  bool
	Critical bool
}

// ResolveAttack computes one attack exchange without mutating either
// combatant. The attacker's charge multiplies the attack value; a defending
// defender rolls an opposed defense multiplied by its own charge.
//
// Rules, in order:
//   - attack roll in the miss band: no damage either way.
//   - defender not defending: damage is the attack value, scaled up by
//     ChargingVulnerability if the defender declared a charge this round.
//   - defending, attack > defense: damage is max(1, attack-defense).
//   - defending, attack == defense: perfect block, no damage.
//   - defending, defense > attack: parry, the attacker takes
//     defense-attack instead. A missed defense roll yields zero and so can
//     never parry.
//
// A critical is an attack roll at or above CritThreshold that lands; a
// parried attack is never a critical.
//
// Postcondition: result.Damage >= 0 and result.ParryDamage >= 0; at most one
// of the two is nonzero.
func ResolveAttack(attacker, defender *Combatant, src Source, t Tuning) AttackResult {
	res := AttackResult{
		AttackerID: attacker.ID,
		DefenderID: defender.ID,
	}

	res.AttackRoll = src.Intn(20) + 1
	res.AttackValue = int(float64(RollValue(attacker.EffectiveAttack(), res.AttackRoll)) * attacker.Charge)

	if BandFor(res.AttackRoll) == BandMiss {
		res.Missed = true
		res.AttackValue = 0
		return res
	}
	res.Critical = res.AttackRoll >= t.CritThreshold

	if !defender.Defending {
		dmg := res.AttackValue
		if defender.Charging {
			dmg = int(float64(dmg) * t.ChargingVulnerability)
		}
		if dmg < 1 {
			dmg = 1
		}
		res.Damage = dmg
		return res
	}

	res.DefenseRoll = src.Intn(20) + 1
	res.DefenseValue = int(float64(RollValue(defender.EffectiveDefense(), res.DefenseRoll)) * defender.Charge)

	switch {
	case res.AttackValue > res.DefenseValue:
		res.Damage = res.AttackValue - res.DefenseValue
		if res.Damage < 1 {
			res.Damage = 1
		}
	case res.AttackValue == res.DefenseValue:
		res.Blocked = true
	default:
		res.Parried = true
		res.Critical = false
		res.ParryDamage = res.DefenseValue - res.AttackValue
		if res.ParryDamage < 1 {
			res.ParryDamage = 1
		}
	}
	return res
}

// GuardShare is one participant's slice of a guarded hit.
type GuardShare struct {
	ParticipantID string
	Damage        int
}

// SplitGuardDamage divides damage evenly across the original target and its
// guardians. The remainder goes one point at a time to the lowest participant
// IDs first, so the split is deterministic.
//
// Precondition: damage >= 0, ids non-empty and duplicate-free.
// Postcondition: the shares sum to exactly damage; shares differ by at most 1;
// results are ordered by ascending participant ID.
func SplitGuardDamage(damage int, ids []string) []GuardShare {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	n := len(sorted)
	base := damage / n
	remainder := damage % n

	out := make([]GuardShare, 0, n)
	for i, id := range sorted {
		share := base
		if i < remainder {
			share++
		}
		out = append(out, GuardShare{ParticipantID: id, Damage: share})
	}
	return out
}
