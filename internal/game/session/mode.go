// Package session owns the life cycle of one combat encounter and the
// registry mapping context keys to at most one live encounter each. The pure
// combat rules live in the battle package; this package adds time, state, and
// concurrency around them.
package session

import (
	"fmt"
	"sort"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
)

// Mode selects the encounter variant: who can join, how teams form, and when
// the battle is over.
type Mode int

const (
	ModeSolo  Mode = iota // one player vs one AI enemy
	ModeGroup             // 2-4 players vs one elevated-stat AI enemy
	ModeDuel              // 1v1 player duel
	ModeTeam2             // 2v2 player teams
	ModeTeam3             // 3v3 player teams
	ModeTeam4             // 4v4 player teams
	ModeFFA               // 3-8 players, last one standing
)

// Modes returns every mode.
func Modes() []Mode {
	return []Mode{ModeSolo, ModeGroup, ModeDuel, ModeTeam2, ModeTeam3, ModeTeam4, ModeFFA}
}

// String returns the mode name used in commands and config.
func (m Mode) String() string {
	switch m {
	case ModeSolo:
		return "solo"
	case ModeGroup:
		return "group"
	case ModeDuel:
		return "duel"
	case ModeTeam2:
		return "2v2"
	case ModeTeam3:
		return "3v3"
	case ModeTeam4:
		return "4v4"
	case ModeFFA:
		return "ffa"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if m.String() == s {
			return m, nil
		}
	}
	return ModeSolo, fmt.Errorf("unknown battle mode %q", s)
}

// IsPvP reports whether players fight each other rather than AI enemies.
func (m Mode) IsPvP() bool {
	switch m {
	case ModeDuel, ModeTeam2, ModeTeam3, ModeTeam4, ModeFFA:
		return true
	default:
		return false
	}
}

// AllowsWager reports whether the mode supports staking currency on the
// outcome. Free-for-alls and PvE runs never carry a wager.
func (m Mode) AllowsWager() bool {
	switch m {
	case ModeDuel, ModeTeam2, ModeTeam3, ModeTeam4:
		return true
	default:
		return false
	}
}

// PlayerCapacity returns the minimum and maximum number of human players the
// mode's roster accepts.
func (m Mode) PlayerCapacity() (min, max int) {
	switch m {
	case ModeSolo:
		return 1, 1
	case ModeGroup:
		return 2, 4
	case ModeDuel:
		return 2, 2
	case ModeTeam2:
		return 4, 4
	case ModeTeam3:
		return 6, 6
	case ModeTeam4:
		return 8, 8
	case ModeFFA:
		return 3, 8
	default:
		return 0, 0
	}
}

// TeamFor assigns the team tag for the nth player to join (zero-based). PvE
// players all fight on the allied side; team PvP alternates alpha/beta so a
// filling lobby stays balanced; duels and free-for-alls are teamless.
func (m Mode) TeamFor(joinIndex int) battle.Team {
	switch m {
	case ModeSolo, ModeGroup:
		return battle.TeamAllies
	case ModeTeam2, ModeTeam3, ModeTeam4:
		if joinIndex%2 == 0 {
			return battle.TeamAlpha
		}
		return battle.TeamBeta
	default:
		return battle.TeamNone
	}
}

// Verdict is the outcome of a termination check.
type Verdict struct {
	Over bool
	// Winners and Losers partition the roster by participant ID, ascending.
	// Both empty with Over set means a draw (everyone down).
	Winners []string
	Losers  []string
}

// CheckTermination inspects the roster and decides whether the battle is over
// under the mode's win condition:
//
//   - Solo/Group: over when either the allied side or the enemy side is
//     fully defeated.
//   - Duel and team modes: over when at most one team has a member standing.
//   - FFA: over when at most one combatant is standing.
//
// Postcondition: Winners and Losers are disjoint, sorted ascending, and
// together cover the roster whenever Over is true.
func (m Mode) CheckTermination(roster []*battle.Combatant) Verdict {
	aliveByTeam := make(map[battle.Team]int)
	aliveTotal := 0
	for _, c := range roster {
		if c.IsAlive() {
			aliveByTeam[c.Team]++
			aliveTotal++
		}
	}

	switch m {
	case ModeSolo, ModeGroup:
		if aliveByTeam[battle.TeamAllies] > 0 && aliveByTeam[battle.TeamEnemies] > 0 {
			return Verdict{}
		}
	case ModeDuel, ModeFFA:
		if aliveTotal > 1 {
			return Verdict{}
		}
	default:
		if aliveByTeam[battle.TeamAlpha] > 0 && aliveByTeam[battle.TeamBeta] > 0 {
			return Verdict{}
		}
	}

	v := Verdict{Over: true}
	for _, c := range roster {
		if c.IsAlive() {
			v.Winners = append(v.Winners, c.ID)
		} else {
			v.Losers = append(v.Losers, c.ID)
		}
	}
	// In team modes a standing winner pulls its defeated teammates up with it.
	if !m.teamless() {
		winningTeams := make(map[battle.Team]bool)
		for _, c := range roster {
			if c.IsAlive() {
				winningTeams[c.Team] = true
			}
		}
		v.Winners = v.Winners[:0]
		v.Losers = v.Losers[:0]
		for _, c := range roster {
			if winningTeams[c.Team] {
				v.Winners = append(v.Winners, c.ID)
			} else {
				v.Losers = append(v.Losers, c.ID)
			}
		}
	}
	sort.Strings(v.Winners)
	sort.Strings(v.Losers)
	return v
}

func (m Mode) teamless() bool {
	return m == ModeDuel || m == ModeFFA
}
