// Package battle implements the pure combat model for the session engine:
// combatants, per-round actions, and the deterministic damage math. Nothing
// here touches a clock, a lock, or a global RNG — randomness enters through
// the Source interface and all state is owned by the calling session.
package battle

// Kind distinguishes player combatants from engine-generated AI combatants.
type Kind int

const (
	KindPlayer Kind = iota
	KindAI
)

// Team is the faction tag partitioning a session's roster. Solo/Group modes
// use TeamAllies vs TeamEnemies; PvP team modes use TeamAlpha vs TeamBeta;
// duel and free-for-all combatants carry no team.
type Team string

const (
	TeamNone    Team = ""
	TeamAllies  Team = "allies"
	TeamEnemies Team = "enemies"
	TeamAlpha   Team = "alpha"
	TeamBeta    Team = "beta"
)

// Slot identifies an equipment slot. The set is fixed: one weapon, one armor
// piece, one accessory.
type Slot string

const (
	SlotWeapon    Slot = "weapon"
	SlotArmor     Slot = "armor"
	SlotAccessory Slot = "accessory"
)

// EquipmentBonus is one equipped item's additive contribution to the wearer's
// battle stats. Magnitude correlates with the item's rarity tier, but the
// engine only reads the resolved numbers.
type EquipmentBonus struct {
	Slot      Slot   `json:"slot" yaml:"slot"`
	Name      string `json:"name" yaml:"name"`
	Tier      Tier   `json:"tier" yaml:"tier"`
	Attack    int    `json:"attack" yaml:"attack"`
	Defense   int    `json:"defense" yaml:"defense"`
	MaxHealth int    `json:"max_health" yaml:"max_health"`
}

// BaseData is the persisted slice of a combatant, loaded from the external
// store when a session starts and written back (as deltas) when it ends.
type BaseData struct {
	ID         string
	Name       string
	Attack     int
	Defense    int
	MaxHealth  int
	Speed      int
	Experience int
	Currency   int
	// CurrentHealth is the persisted health the combatant enters with; zero
	// (or anything outside (0, effective max]) means full.
	CurrentHealth int
	Equipment     []EquipmentBonus
	// Tier is the rarity of AI combatants; it drives reward scaling and is
	// TierCommon for players.
	Tier Tier
}

// Combatant is one participant in a session. A Combatant is owned exclusively
// by its session for the session's lifetime; it is never shared.
type Combatant struct {
	ID   string
	Name string
	Kind Kind
	Team Team
	Tier Tier

	// Base stats; effective values add equipment bonuses.
	Attack    int
	Defense   int
	MaxHealth int
	Speed     int

	CurrentHealth int
	// StartingHealth is CurrentHealth at session start, the baseline for the
	// persisted health delta.
	StartingHealth int
	Experience     int
	Currency       int
	Equipment      []EquipmentBonus

	// Per-round state, reset by ResolveRound.
	Charge      float64 // charge multiplier, >= 1
	Defending   bool
	Charging    bool   // declared charge this round (vulnerable)
	GuardTarget string // participant ID being guarded; "" when not guarding

	Defeated  bool
	Forfeited bool
}

// NewCombatant builds a session-ready Combatant from persisted base data. A
// combatant carrying damage from an earlier battle enters with it.
//
// Postcondition: 0 < CurrentHealth <= EffectiveMaxHealth(),
// StartingHealth == CurrentHealth, Charge == 1.
func NewCombatant(base BaseData, kind Kind, team Team) *Combatant {
	c := &Combatant{
		ID:         base.ID,
		Name:       base.Name,
		Kind:       kind,
		Team:       team,
		Tier:       base.Tier,
		Attack:     base.Attack,
		Defense:    base.Defense,
		MaxHealth:  base.MaxHealth,
		Speed:      base.Speed,
		Experience: base.Experience,
		Currency:   base.Currency,
		Equipment:  append([]EquipmentBonus(nil), base.Equipment...),
		Charge:     1,
	}
	c.CurrentHealth = c.EffectiveMaxHealth()
	if base.CurrentHealth > 0 && base.CurrentHealth < c.CurrentHealth {
		c.CurrentHealth = base.CurrentHealth
	}
	c.StartingHealth = c.CurrentHealth
	return c
}

// EffectiveAttack returns base attack plus equipment bonuses.
func (c *Combatant) EffectiveAttack() int {
	v := c.Attack
	for _, eq := range c.Equipment {
		v += eq.Attack
	}
	if v < 0 {
		v = 0
	}
	return v
}

// EffectiveDefense returns base defense plus equipment bonuses.
func (c *Combatant) EffectiveDefense() int {
	v := c.Defense
	for _, eq := range c.Equipment {
		v += eq.Defense
	}
	if v < 0 {
		v = 0
	}
	return v
}

// EffectiveMaxHealth returns base max health plus equipment bonuses, minimum 1.
func (c *Combatant) EffectiveMaxHealth() int {
	v := c.MaxHealth
	for _, eq := range c.Equipment {
		v += eq.MaxHealth
	}
	if v < 1 {
		v = 1
	}
	return v
}

// IsAlive reports whether the combatant can still act and be targeted.
func (c *Combatant) IsAlive() bool {
	return !c.Defeated && c.CurrentHealth > 0
}

// ApplyDamage reduces CurrentHealth by amount, flooring at zero. A combatant
// reaching zero health is immediately marked Defeated.
//
// Precondition: amount >= 0.
// Postcondition: 0 <= CurrentHealth <= EffectiveMaxHealth().
func (c *Combatant) ApplyDamage(amount int) {
	c.CurrentHealth -= amount
	if c.CurrentHealth <= 0 {
		c.CurrentHealth = 0
		c.Defeated = true
	}
}

// HealthFraction returns CurrentHealth / EffectiveMaxHealth in [0, 1].
func (c *Combatant) HealthFraction() float64 {
	return float64(c.CurrentHealth) / float64(c.EffectiveMaxHealth())
}

// ResetRound clears the one-round stance flags. Charge survives unless the
// round consumed it (handled by ResolveRound).
func (c *Combatant) ResetRound() {
	c.Defending = false
	c.Charging = false
	c.GuardTarget = ""
}

// Clone returns a deep copy. Sessions resolve rounds against clones so a
// failed resolution never leaves partially applied health mutations.
func (c *Combatant) Clone() *Combatant {
	cp := *c
	cp.Equipment = append([]EquipmentBonus(nil), c.Equipment...)
	return &cp
}
