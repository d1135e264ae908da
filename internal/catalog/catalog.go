package catalog

import (
	"fmt"
	"sort"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
	"github.com/The-Infamous-Aries/Allspark/internal/game/reward"
)

// DefaultTierWeights are the rarity sampling weights, in percent.
func DefaultTierWeights() map[battle.Tier]float64 {
	return map[battle.Tier]float64{
		battle.TierCommon:    50,
		battle.TierUncommon:  25,
		battle.TierRare:      15,
		battle.TierEpic:      7,
		battle.TierLegendary: 2.5,
		battle.TierMythic:    0.5,
	}
}

// Catalog is the read-only content index the engine consumes: enemies by ID
// and tier, loot by tier, and the rarity weights. Built once at startup; safe
// for concurrent reads.
type Catalog struct {
	enemies       map[string]*EnemyStatBlock
	enemiesByTier map[battle.Tier][]*EnemyStatBlock
	lootByTier    map[battle.Tier][]*LootEntry

	// milliWeights is the cumulative tier weight table in 0.1% units, in
	// ascending tier order, for integer sampling.
	milliWeights []tierWeight
	totalWeight  int
}

type tierWeight struct {
	tier   battle.Tier
	weight int
}

// New creates a Catalog with the given rarity weights (nil means defaults).
func New(weights map[battle.Tier]float64) *Catalog {
	if weights == nil {
		weights = DefaultTierWeights()
	}
	c := &Catalog{
		enemies:       make(map[string]*EnemyStatBlock),
		enemiesByTier: make(map[battle.Tier][]*EnemyStatBlock),
		lootByTier:    make(map[battle.Tier][]*LootEntry),
	}
	for _, tier := range battle.Tiers() {
		w := int(weights[tier] * 10)
		if w <= 0 {
			continue
		}
		c.milliWeights = append(c.milliWeights, tierWeight{tier: tier, weight: w})
		c.totalWeight += w
	}
	return c
}

// LoadEnemiesDir loads every enemy stat block under dir into the catalog.
func (c *Catalog) LoadEnemiesDir(dir string) error {
	blocks, err := LoadEnemies(dir)
	if err != nil {
		return err
	}
	for _, e := range blocks {
		if _, dup := c.enemies[e.ID]; dup {
			return fmt.Errorf("duplicate enemy id %q", e.ID)
		}
		c.enemies[e.ID] = e
		c.enemiesByTier[e.Tier] = append(c.enemiesByTier[e.Tier], e)
	}
	for _, tier := range battle.Tiers() {
		sort.Slice(c.enemiesByTier[tier], func(i, j int) bool {
			return c.enemiesByTier[tier][i].ID < c.enemiesByTier[tier][j].ID
		})
	}
	return nil
}

// LoadLootDir loads every loot entry under dir into the catalog.
func (c *Catalog) LoadLootDir(dir string) error {
	items, err := LoadLoot(dir)
	if err != nil {
		return err
	}
	for _, l := range items {
		c.lootByTier[l.Tier] = append(c.lootByTier[l.Tier], l)
	}
	for _, tier := range battle.Tiers() {
		sort.Slice(c.lootByTier[tier], func(i, j int) bool {
			return c.lootByTier[tier][i].ID < c.lootByTier[tier][j].ID
		})
	}
	return nil
}

// Enemy returns the stat block with the given ID.
func (c *Catalog) Enemy(id string) (*EnemyStatBlock, bool) {
	e, ok := c.enemies[id]
	return e, ok
}

// EnemyForTier picks a uniformly random enemy of the tier, falling back to
// the built-in generic stat line when the content set has none.
func (c *Catalog) EnemyForTier(tier battle.Tier, src battle.Source) *EnemyStatBlock {
	pool := c.enemiesByTier[tier]
	if len(pool) == 0 {
		return FallbackEnemy(tier)
	}
	return pool[src.Intn(len(pool))]
}

// EnemyForParty picks a random enemy of the tier scaled up for a group
// fight: each party member beyond the first adds perAllyScale to the stat
// multiplier, so three players at 0.5 face a 2x opponent.
func (c *Catalog) EnemyForParty(tier battle.Tier, partySize int, perAllyScale float64, src battle.Source) battle.BaseData {
	scale := 1.0
	if partySize > 1 {
		scale += float64(partySize-1) * perAllyScale
	}
	return c.EnemyForTier(tier, src).BaseData(scale)
}

// SampleTier draws a rarity tier from the weighted distribution.
//
// Postcondition: the returned tier always has a nonzero configured weight.
func (c *Catalog) SampleTier(src battle.Source) battle.Tier {
	roll := src.Intn(c.totalWeight)
	for _, tw := range c.milliWeights {
		if roll < tw.weight {
			return tw.tier
		}
		roll -= tw.weight
	}
	// Unreachable while totalWeight is the sum of the entries.
	return battle.TierCommon
}

// RollItem picks a uniformly random item of the tier. The boolean is false
// when the tier has no items loaded.
func (c *Catalog) RollItem(tier battle.Tier, src battle.Source) (reward.LootGrant, bool) {
	pool := c.lootByTier[tier]
	if len(pool) == 0 {
		return reward.LootGrant{}, false
	}
	l := pool[src.Intn(len(pool))]
	return reward.LootGrant{
		ItemID:    l.ID,
		Name:      l.Name,
		Tier:      l.Tier,
		Slot:      l.Slot,
		Attack:    l.Attack,
		Defense:   l.Defense,
		MaxHealth: l.MaxHealth,
	}, true
}

// LootTable returns the tier's items in ID order, for display layers.
func (c *Catalog) LootTable(tier battle.Tier) []*LootEntry {
	return c.lootByTier[tier]
}
