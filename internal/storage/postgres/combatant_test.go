package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
	"github.com/The-Infamous-Aries/Allspark/internal/game/reward"
	"github.com/The-Infamous-Aries/Allspark/internal/storage/postgres"
	"github.com/The-Infamous-Aries/Allspark/internal/testutil"
)

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func setupStore(t *testing.T) *postgres.CombatantStore {
	t.Helper()
	return postgres.NewCombatantStore(testutil.NewPool(t))
}

func makeTestCombatant(id string) battle.BaseData {
	return battle.BaseData{
		ID:        id,
		Name:      "Ratchet",
		Attack:    12,
		Defense:   9,
		MaxHealth: 150,
		Speed:     7,
		Currency:  50,
		Equipment: []battle.EquipmentBonus{
			{Slot: battle.SlotWeapon, Name: "Ion Blaster", Tier: battle.TierUncommon, Attack: 4},
		},
	}
}

func TestCombatantStore_CreateAndLoad(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id := uniqueID("combatant")
	require.NoError(t, store.CreateCombatant(ctx, makeTestCombatant(id)))

	loaded, err := store.LoadCombatant(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, loaded.ID)
	assert.Equal(t, "Ratchet", loaded.Name)
	assert.Equal(t, 12, loaded.Attack)
	assert.Equal(t, 150, loaded.MaxHealth)
	assert.Equal(t, 150, loaded.CurrentHealth, "new combatants start at full health")
	assert.Equal(t, 50, loaded.Currency)
	require.Len(t, loaded.Equipment, 1)
	assert.Equal(t, "Ion Blaster", loaded.Equipment[0].Name)
	assert.Equal(t, battle.SlotWeapon, loaded.Equipment[0].Slot)
	assert.Equal(t, 4, loaded.Equipment[0].Attack)
}

func TestCombatantStore_LoadMissing(t *testing.T) {
	store := setupStore(t)

	_, err := store.LoadCombatant(context.Background(), "never-created")
	assert.ErrorIs(t, err, postgres.ErrCombatantNotFound)
}

func TestCombatantStore_SaveDelta(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id := uniqueID("combatant")
	require.NoError(t, store.CreateCombatant(ctx, makeTestCombatant(id)))

	loot := []reward.LootGrant{
		{ItemID: "warden-plating", Name: "Warden Plating", Tier: battle.TierRare, Slot: battle.SlotArmor, Defense: 8},
	}
	require.NoError(t, store.SaveCombatantDelta(ctx, id, reward.Delta{XP: 40, Currency: 40, Health: -60, Loot: loot}))

	loaded, err := store.LoadCombatant(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.Experience)
	assert.Equal(t, 90, loaded.Currency)
	assert.Equal(t, 90, loaded.CurrentHealth)
	require.Len(t, loaded.Equipment, 2)
	assert.Equal(t, "Warden Plating", loaded.Equipment[1].Name)
	assert.Equal(t, 8, loaded.Equipment[1].Defense)
}

func TestCombatantStore_SaveDelta_CurrencyFloor(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id := uniqueID("combatant")
	require.NoError(t, store.CreateCombatant(ctx, makeTestCombatant(id)))

	// A wager loss bigger than the balance drains it to zero, never below,
	// and battle damage past zero health clamps the same way.
	require.NoError(t, store.SaveCombatantDelta(ctx, id, reward.Delta{XP: 10, Currency: -200, Health: -999}))

	loaded, err := store.LoadCombatant(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Currency)
	assert.Equal(t, 0, loaded.CurrentHealth)
	assert.Equal(t, 10, loaded.Experience)
}

func TestCombatantStore_SaveDelta_Missing(t *testing.T) {
	store := setupStore(t)

	err := store.SaveCombatantDelta(context.Background(), "never-created", reward.Delta{XP: 10, Currency: 10})
	assert.ErrorIs(t, err, postgres.ErrCombatantNotFound)
}
