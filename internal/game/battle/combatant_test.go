package battle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
)

func TestNewCombatant_StartsAtFullHealth(t *testing.T) {
	c := battle.NewCombatant(battle.BaseData{
		ID:        "p1",
		Attack:    10,
		Defense:   5,
		MaxHealth: 120,
		Equipment: []battle.EquipmentBonus{
			{Slot: battle.SlotArmor, Name: "plating", Tier: battle.TierRare, MaxHealth: 30},
		},
	}, battle.KindPlayer, battle.TeamAllies)

	assert.Equal(t, 150, c.EffectiveMaxHealth())
	assert.Equal(t, 150, c.CurrentHealth)
	assert.Equal(t, 1.0, c.Charge)
	assert.True(t, c.IsAlive())
}

// TestNewCombatant_HonorsPersistedHealth: a combatant carrying damage from
// an earlier battle enters with that health, and it becomes the baseline for
// the session's health delta.
func TestNewCombatant_HonorsPersistedHealth(t *testing.T) {
	c := battle.NewCombatant(battle.BaseData{
		ID:            "p1",
		Attack:        10,
		Defense:       5,
		MaxHealth:     120,
		CurrentHealth: 45,
	}, battle.KindPlayer, battle.TeamAllies)

	assert.Equal(t, 45, c.CurrentHealth)
	assert.Equal(t, 45, c.StartingHealth)

	// Zero or out-of-range stored health means full health.
	full := battle.NewCombatant(battle.BaseData{
		ID: "p2", MaxHealth: 120, CurrentHealth: 500,
	}, battle.KindPlayer, battle.TeamAllies)
	assert.Equal(t, 120, full.CurrentHealth)
	assert.Equal(t, 120, full.StartingHealth)
}

func TestCombatant_EquipmentBonusesAreAdditive(t *testing.T) {
	c := battle.NewCombatant(battle.BaseData{
		ID:      "p1",
		Attack:  20,
		Defense: 10,
		Equipment: []battle.EquipmentBonus{
			{Slot: battle.SlotWeapon, Name: "blade", Tier: battle.TierEpic, Attack: 12},
			{Slot: battle.SlotAccessory, Name: "charm", Tier: battle.TierCommon, Attack: 3, Defense: 2},
		},
	}, battle.KindPlayer, battle.TeamNone)

	assert.Equal(t, 35, c.EffectiveAttack())
	assert.Equal(t, 12, c.EffectiveDefense())
}

func TestCombatant_EffectiveStatsNeverNegative(t *testing.T) {
	c := battle.NewCombatant(battle.BaseData{
		ID:      "p1",
		Attack:  5,
		Defense: 5,
		Equipment: []battle.EquipmentBonus{
			{Slot: battle.SlotWeapon, Name: "cursed", Tier: battle.TierCommon, Attack: -20, Defense: -20, MaxHealth: -500},
		},
	}, battle.KindPlayer, battle.TeamNone)

	assert.Zero(t, c.EffectiveAttack())
	assert.Zero(t, c.EffectiveDefense())
	assert.Equal(t, 1, c.EffectiveMaxHealth())
}

func TestCombatant_ApplyDamageClampsAtZero(t *testing.T) {
	c := newTestCombatant("p1", battle.TeamAllies, 10, 10, 50, 10)

	c.ApplyDamage(30)
	assert.Equal(t, 20, c.CurrentHealth)
	assert.True(t, c.IsAlive())

	c.ApplyDamage(999)
	assert.Zero(t, c.CurrentHealth)
	assert.True(t, c.Defeated)
	assert.False(t, c.IsAlive())
}

// TestCombatant_HealthInvariant: any damage sequence keeps health in
// [0, max] and marks the combatant defeated exactly when health hits zero.
func TestCombatant_HealthInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxHP := rapid.IntRange(1, 1000).Draw(rt, "maxHP")
		c := newTestCombatant("p1", battle.TeamAllies, 10, 10, maxHP, 10)

		hits := rapid.SliceOfN(rapid.IntRange(0, 400), 0, 20).Draw(rt, "hits")
		for _, h := range hits {
			c.ApplyDamage(h)
			require.GreaterOrEqual(rt, c.CurrentHealth, 0)
			require.LessOrEqual(rt, c.CurrentHealth, c.EffectiveMaxHealth())
			require.Equal(rt, c.CurrentHealth == 0, c.Defeated)
		}
	})
}

func TestCombatant_HealthFraction(t *testing.T) {
	c := newTestCombatant("p1", battle.TeamAllies, 10, 10, 200, 10)
	c.ApplyDamage(50)
	assert.InDelta(t, 0.75, c.HealthFraction(), 1e-9)
}

func TestCombatant_ResetRoundKeepsCharge(t *testing.T) {
	c := newTestCombatant("p1", battle.TeamAllies, 10, 10, 100, 10)
	c.Charge = 8
	c.Defending = true
	c.Charging = true
	c.GuardTarget = "p2"

	c.ResetRound()

	assert.Equal(t, 8.0, c.Charge)
	assert.False(t, c.Defending)
	assert.False(t, c.Charging)
	assert.Empty(t, c.GuardTarget)
}

// TestCombatant_CloneIsIndependent: mutating a clone never shows through to
// the original, equipment slice included.
func TestCombatant_CloneIsIndependent(t *testing.T) {
	orig := battle.NewCombatant(battle.BaseData{
		ID:        "p1",
		Attack:    10,
		MaxHealth: 100,
		Equipment: []battle.EquipmentBonus{
			{Slot: battle.SlotWeapon, Name: "blade", Attack: 5},
		},
	}, battle.KindPlayer, battle.TeamAllies)

	cl := orig.Clone()
	cl.ApplyDamage(40)
	cl.Equipment[0].Attack = 99
	cl.Charge = 16

	assert.Equal(t, orig.EffectiveMaxHealth(), orig.CurrentHealth)
	assert.Equal(t, 5, orig.Equipment[0].Attack)
	assert.Equal(t, 1.0, orig.Charge)
}

func TestParseTier_RoundTrips(t *testing.T) {
	for _, tier := range battle.Tiers() {
		parsed, err := battle.ParseTier(tier.String())
		require.NoError(t, err)
		assert.Equal(t, tier, parsed)
	}

	_, err := battle.ParseTier("artifact")
	assert.Error(t, err)
}
