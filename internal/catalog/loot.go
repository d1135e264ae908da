package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
)

// LootEntry defines one droppable item loaded from YAML.
type LootEntry struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	Tier      battle.Tier `yaml:"-"`
	TierName  string      `yaml:"tier"`
	Slot      battle.Slot `yaml:"slot"`
	Attack    int         `yaml:"attack"`
	Defense   int         `yaml:"defense"`
	MaxHealth int         `yaml:"max_health"`
}

// Validate checks the entry's invariants and resolves the tier name.
func (l *LootEntry) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("loot: id must not be empty")
	}
	if l.Name == "" {
		return fmt.Errorf("loot %q: name must not be empty", l.ID)
	}
	tier, err := battle.ParseTier(l.TierName)
	if err != nil {
		return fmt.Errorf("loot %q: %w", l.ID, err)
	}
	l.Tier = tier
	switch l.Slot {
	case battle.SlotWeapon, battle.SlotArmor, battle.SlotAccessory:
	default:
		return fmt.Errorf("loot %q: unknown slot %q", l.ID, l.Slot)
	}
	return nil
}

// LoadLootFromBytes parses a single loot entry from raw YAML.
func LoadLootFromBytes(data []byte) (*LootEntry, error) {
	var l LootEntry
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing loot YAML: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// LoadLoot reads all *.yaml files in dir and returns the parsed entries.
func LoadLoot(dir string) ([]*LootEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading loot dir %q: %w", dir, err)
	}

	var items []*LootEntry
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		l, err := LoadLootFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		items = append(items, l)
	}
	return items, nil
}
