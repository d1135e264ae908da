// Package catalog loads the static enemy and loot content consumed by the
// battle engine: stat blocks, rarity-weighted tier sampling, and per-tier
// item tables. Content ships as YAML files, one entry per file.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
)

// EnemyStatBlock defines an AI opponent archetype loaded from YAML.
type EnemyStatBlock struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	Tier      battle.Tier `yaml:"-"`
	TierName  string      `yaml:"tier"`
	Attack    int         `yaml:"attack"`
	Defense   int         `yaml:"defense"`
	MaxHealth int         `yaml:"max_health"`
	Speed     int         `yaml:"speed"`
}

// Validate checks the stat block's invariants and resolves the tier name.
//
// Postcondition: Returns nil iff ID and Name are non-empty, the tier name is
// known, MaxHealth >= 1, and Attack/Defense/Speed are non-negative; on
// success Tier is set from TierName.
func (e *EnemyStatBlock) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("enemy: id must not be empty")
	}
	if e.Name == "" {
		return fmt.Errorf("enemy %q: name must not be empty", e.ID)
	}
	tier, err := battle.ParseTier(e.TierName)
	if err != nil {
		return fmt.Errorf("enemy %q: %w", e.ID, err)
	}
	e.Tier = tier
	if e.MaxHealth < 1 {
		return fmt.Errorf("enemy %q: max_health must be >= 1, got %d", e.ID, e.MaxHealth)
	}
	if e.Attack < 0 || e.Defense < 0 || e.Speed < 0 {
		return fmt.Errorf("enemy %q: stats must be non-negative", e.ID)
	}
	return nil
}

// BaseData converts the stat block into engine combatant data, scaling the
// core stats by scale (group battles field an elevated-stat opponent).
//
// Precondition: scale > 0.
func (e *EnemyStatBlock) BaseData(scale float64) battle.BaseData {
	return battle.BaseData{
		ID:        "npc-" + e.ID,
		Name:      e.Name,
		Attack:    int(float64(e.Attack) * scale),
		Defense:   int(float64(e.Defense) * scale),
		MaxHealth: int(float64(e.MaxHealth) * scale),
		Speed:     e.Speed,
		Tier:      e.Tier,
	}
}

// LoadEnemyFromBytes parses a single enemy stat block from raw YAML.
func LoadEnemyFromBytes(data []byte) (*EnemyStatBlock, error) {
	var e EnemyStatBlock
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parsing enemy YAML: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// LoadEnemies reads all *.yaml files in dir and returns the parsed stat
// blocks. On any parse or validation failure the partial result is
// discarded.
func LoadEnemies(dir string) ([]*EnemyStatBlock, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enemy dir %q: %w", dir, err)
	}

	var blocks []*EnemyStatBlock
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		e, err := LoadEnemyFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		blocks = append(blocks, e)
	}
	return blocks, nil
}

// fallbackStats are the built-in per-tier stat lines used when the content
// directory has no enemy for a requested tier.
var fallbackStats = map[battle.Tier]EnemyStatBlock{
	battle.TierCommon:    {Attack: 8, Defense: 5, MaxHealth: 100},
	battle.TierUncommon:  {Attack: 12, Defense: 8, MaxHealth: 150},
	battle.TierRare:      {Attack: 16, Defense: 10, MaxHealth: 200},
	battle.TierEpic:      {Attack: 22, Defense: 15, MaxHealth: 300},
	battle.TierLegendary: {Attack: 28, Defense: 20, MaxHealth: 400},
	battle.TierMythic:    {Attack: 35, Defense: 25, MaxHealth: 500},
}

// FallbackEnemy builds a generic stat block for the tier.
func FallbackEnemy(tier battle.Tier) *EnemyStatBlock {
	stats := fallbackStats[tier]
	return &EnemyStatBlock{
		ID:        fmt.Sprintf("%s-fallback", tier),
		Name:      fmt.Sprintf("%s opponent", tier),
		Tier:      tier,
		TierName:  tier.String(),
		Attack:    stats.Attack,
		Defense:   stats.Defense,
		MaxHealth: stats.MaxHealth,
		Speed:     5,
	}
}
