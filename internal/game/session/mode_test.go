package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
	"github.com/The-Infamous-Aries/Allspark/internal/game/session"
)

func TestParseMode_RoundTrips(t *testing.T) {
	for _, m := range session.Modes() {
		parsed, err := session.ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	_, err := session.ParseMode("5v5")
	assert.Error(t, err)
}

func TestMode_PlayerCapacity(t *testing.T) {
	cases := []struct {
		mode     session.Mode
		min, max int
	}{
		{session.ModeSolo, 1, 1},
		{session.ModeGroup, 2, 4},
		{session.ModeDuel, 2, 2},
		{session.ModeTeam2, 4, 4},
		{session.ModeTeam3, 6, 6},
		{session.ModeTeam4, 8, 8},
		{session.ModeFFA, 3, 8},
	}
	for _, c := range cases {
		min, max := c.mode.PlayerCapacity()
		assert.Equal(t, c.min, min, c.mode)
		assert.Equal(t, c.max, max, c.mode)
	}
}

func TestMode_AllowsWager(t *testing.T) {
	assert.True(t, session.ModeDuel.AllowsWager())
	assert.True(t, session.ModeTeam3.AllowsWager())
	assert.False(t, session.ModeSolo.AllowsWager())
	assert.False(t, session.ModeGroup.AllowsWager())
	assert.False(t, session.ModeFFA.AllowsWager())
}

// TestMode_TeamFor: team PvP alternates alpha/beta by join order so a filling
// lobby never ends up lopsided.
func TestMode_TeamFor(t *testing.T) {
	assert.Equal(t, battle.TeamAlpha, session.ModeTeam2.TeamFor(0))
	assert.Equal(t, battle.TeamBeta, session.ModeTeam2.TeamFor(1))
	assert.Equal(t, battle.TeamAlpha, session.ModeTeam2.TeamFor(2))
	assert.Equal(t, battle.TeamBeta, session.ModeTeam2.TeamFor(3))

	assert.Equal(t, battle.TeamAllies, session.ModeGroup.TeamFor(0))
	assert.Equal(t, battle.TeamAllies, session.ModeGroup.TeamFor(3))

	assert.Equal(t, battle.TeamNone, session.ModeDuel.TeamFor(0))
	assert.Equal(t, battle.TeamNone, session.ModeFFA.TeamFor(5))
}

func named(id string, team battle.Team, hp int) *battle.Combatant {
	return battle.NewCombatant(battle.BaseData{
		ID: id, Name: id, Attack: 10, Defense: 10, MaxHealth: hp, Speed: 5,
	}, battle.KindPlayer, team)
}

func TestCheckTermination_Duel(t *testing.T) {
	a := named("a", battle.TeamNone, 100)
	b := named("b", battle.TeamNone, 100)

	v := session.ModeDuel.CheckTermination([]*battle.Combatant{a, b})
	assert.False(t, v.Over)

	b.ApplyDamage(100)
	v = session.ModeDuel.CheckTermination([]*battle.Combatant{a, b})
	require.True(t, v.Over)
	assert.Equal(t, []string{"a"}, v.Winners)
	assert.Equal(t, []string{"b"}, v.Losers)
}

// TestCheckTermination_TeamPullsUpDefeatedTeammates: a downed member of the
// surviving team still counts as a winner.
func TestCheckTermination_TeamPullsUpDefeatedTeammates(t *testing.T) {
	a1 := named("a1", battle.TeamAlpha, 100)
	a2 := named("a2", battle.TeamAlpha, 100)
	b1 := named("b1", battle.TeamBeta, 100)
	b2 := named("b2", battle.TeamBeta, 100)
	roster := []*battle.Combatant{a1, a2, b1, b2}

	a2.ApplyDamage(100)
	v := session.ModeTeam2.CheckTermination(roster)
	assert.False(t, v.Over, "both teams still standing")

	b1.ApplyDamage(100)
	b2.ApplyDamage(100)
	v = session.ModeTeam2.CheckTermination(roster)
	require.True(t, v.Over)
	assert.Equal(t, []string{"a1", "a2"}, v.Winners)
	assert.Equal(t, []string{"b1", "b2"}, v.Losers)
}

func TestCheckTermination_FFADraw(t *testing.T) {
	a := named("a", battle.TeamNone, 100)
	b := named("b", battle.TeamNone, 100)
	c := named("c", battle.TeamNone, 100)
	roster := []*battle.Combatant{a, b, c}

	for _, cb := range roster {
		cb.ApplyDamage(100)
	}
	v := session.ModeFFA.CheckTermination(roster)
	require.True(t, v.Over)
	assert.Empty(t, v.Winners)
	assert.Equal(t, []string{"a", "b", "c"}, v.Losers)
}

func TestCheckTermination_GroupLoss(t *testing.T) {
	p1 := named("p1", battle.TeamAllies, 100)
	p2 := named("p2", battle.TeamAllies, 100)
	boss := battle.NewCombatant(battle.BaseData{
		ID: "npc-boss", Name: "boss", Attack: 30, Defense: 10, MaxHealth: 400, Speed: 5,
	}, battle.KindAI, battle.TeamEnemies)
	roster := []*battle.Combatant{p1, p2, boss}

	p1.ApplyDamage(100)
	p2.ApplyDamage(100)
	v := session.ModeGroup.CheckTermination(roster)
	require.True(t, v.Over)
	assert.Equal(t, []string{"npc-boss"}, v.Winners)
	assert.Equal(t, []string{"p1", "p2"}, v.Losers)
}
