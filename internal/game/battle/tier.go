package battle

import (
	"encoding/json"
	"fmt"
)

// Tier is the rarity classification shared by enemies and equipment.
// Higher tiers mean stronger opponents and better loot.
type Tier int

const (
	TierCommon Tier = iota
	TierUncommon
	TierRare
	TierEpic
	TierLegendary
	TierMythic
)

// Tiers returns all tiers in ascending rarity order.
func Tiers() []Tier {
	return []Tier{TierCommon, TierUncommon, TierRare, TierEpic, TierLegendary, TierMythic}
}

// String returns the lowercase tier name used in config keys and content files.
func (t Tier) String() string {
	switch t {
	case TierCommon:
		return "common"
	case TierUncommon:
		return "uncommon"
	case TierRare:
		return "rare"
	case TierEpic:
		return "epic"
	case TierLegendary:
		return "legendary"
	case TierMythic:
		return "mythic"
	default:
		return "unknown"
	}
}

// ParseTier converts a lowercase tier name into a Tier.
//
// Postcondition: Returns a valid Tier or a descriptive error.
func ParseTier(s string) (Tier, error) {
	for _, t := range Tiers() {
		if t.String() == s {
			return t, nil
		}
	}
	return TierCommon, fmt.Errorf("unknown rarity tier %q", s)
}

// MarshalJSON encodes the tier as its lowercase name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a lowercase tier name.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
