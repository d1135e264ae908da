package battle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
)

func TestQueue_SubmitAndComplete(t *testing.T) {
	q := battle.NewQueue([]string{"p1", "p2"})
	assert.False(t, q.Complete())

	require.NoError(t, q.Submit(battle.Action{Kind: battle.ActionAttack, ActorID: "p1", TargetID: "p2"}))
	assert.False(t, q.Complete())
	assert.Equal(t, []string{"p2"}, q.Missing())

	require.NoError(t, q.Submit(battle.Action{Kind: battle.ActionDefend, ActorID: "p2"}))
	assert.True(t, q.Complete())
	assert.Empty(t, q.Missing())
}

func TestQueue_RejectsUnknownActor(t *testing.T) {
	q := battle.NewQueue([]string{"p1"})
	err := q.Submit(battle.Action{Kind: battle.ActionAttack, ActorID: "intruder"})
	assert.Error(t, err)
}

func TestQueue_RejectsUnknownKind(t *testing.T) {
	q := battle.NewQueue([]string{"p1"})
	err := q.Submit(battle.Action{Kind: battle.ActionUnknown, ActorID: "p1"})
	assert.Error(t, err)
}

// TestQueue_LastWriteWins: resubmitting within the round replaces the earlier
// action outright.
func TestQueue_LastWriteWins(t *testing.T) {
	q := battle.NewQueue([]string{"p1"})
	require.NoError(t, q.Submit(battle.Action{Kind: battle.ActionAttack, ActorID: "p1", TargetID: "x"}))
	require.NoError(t, q.Submit(battle.Action{Kind: battle.ActionCharge, ActorID: "p1"}))

	got := q.Actions()["p1"]
	assert.Equal(t, battle.ActionCharge, got.Kind)
	assert.Empty(t, got.TargetID)
}

func TestQueue_Drop(t *testing.T) {
	q := battle.NewQueue([]string{"p1", "p2"})
	require.NoError(t, q.Submit(battle.Action{Kind: battle.ActionDefend, ActorID: "p1"}))

	q.Drop("p1")
	q.Drop("p2")

	assert.True(t, q.Complete(), "an empty expectation set is trivially complete")
	assert.Zero(t, q.Expected())
	assert.Empty(t, q.Actions())
}

// TestQueue_FillDefaults: missing participants default to a defend stance at
// the deadline, stamped Defaulted.
func TestQueue_FillDefaults(t *testing.T) {
	q := battle.NewQueue([]string{"p1", "p2", "p3"})
	require.NoError(t, q.Submit(battle.Action{Kind: battle.ActionAttack, ActorID: "p2", TargetID: "p1"}))

	now := time.Now()
	injected := q.FillDefaults(now)

	assert.Equal(t, 2, injected)
	assert.True(t, q.Complete())

	acts := q.Actions()
	for _, id := range []string{"p1", "p3"} {
		assert.Equal(t, battle.ActionDefend, acts[id].Kind, id)
		assert.True(t, acts[id].Defaulted, id)
		assert.Equal(t, now, acts[id].SubmittedAt, id)
	}
	assert.False(t, acts["p2"].Defaulted, "a real submission is never restamped")
}

func TestQueue_ActionsReturnsCopy(t *testing.T) {
	q := battle.NewQueue([]string{"p1"})
	require.NoError(t, q.Submit(battle.Action{Kind: battle.ActionDefend, ActorID: "p1"}))

	cp := q.Actions()
	cp["p1"] = battle.Action{Kind: battle.ActionForfeit, ActorID: "p1"}

	assert.Equal(t, battle.ActionDefend, q.Actions()["p1"].Kind)
}

func TestActionKind_String(t *testing.T) {
	cases := map[battle.ActionKind]string{
		battle.ActionAttack:  "attack",
		battle.ActionDefend:  "defend",
		battle.ActionCharge:  "charge",
		battle.ActionGuard:   "guard",
		battle.ActionForfeit: "forfeit",
		battle.ActionUnknown: "unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestActionKind_NeedsTarget(t *testing.T) {
	assert.True(t, battle.ActionAttack.NeedsTarget())
	assert.False(t, battle.ActionDefend.NeedsTarget())
	assert.False(t, battle.ActionGuard.NeedsTarget())
}
