package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
	"github.com/The-Infamous-Aries/Allspark/internal/game/reward"
)

// ErrCombatantNotFound is returned when a combatant lookup yields no results.
var ErrCombatantNotFound = errors.New("combatant not found")

// CombatantStore persists combatant stat lines and reward deltas.
type CombatantStore struct {
	db *pgxpool.Pool
}

// NewCombatantStore creates a CombatantStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCombatantStore(db *pgxpool.Pool) *CombatantStore {
	return &CombatantStore{db: db}
}

// LoadCombatant retrieves a combatant's persisted stat line by ID.
//
// Precondition: id must be non-empty.
// Postcondition: Returns the BaseData or ErrCombatantNotFound.
func (s *CombatantStore) LoadCombatant(ctx context.Context, id string) (battle.BaseData, error) {
	var (
		base      battle.BaseData
		equipment []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, name, attack, defense, max_health, current_health, speed,
		       experience, currency, equipment
		FROM combatants WHERE id = $1`,
		id,
	).Scan(
		&base.ID, &base.Name, &base.Attack, &base.Defense, &base.MaxHealth,
		&base.CurrentHealth, &base.Speed, &base.Experience, &base.Currency,
		&equipment,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return battle.BaseData{}, ErrCombatantNotFound
		}
		return battle.BaseData{}, fmt.Errorf("querying combatant: %w", err)
	}
	if len(equipment) > 0 {
		if err := json.Unmarshal(equipment, &base.Equipment); err != nil {
			return battle.BaseData{}, fmt.Errorf("decoding equipment for %s: %w", id, err)
		}
	}
	return base, nil
}

// CreateCombatant inserts a new combatant row.
//
// Precondition: base.ID must be non-empty and not already stored.
// Postcondition: Returns nil on success; duplicate IDs surface as an error.
func (s *CombatantStore) CreateCombatant(ctx context.Context, base battle.BaseData) error {
	equipment, err := json.Marshal(base.Equipment)
	if err != nil {
		return fmt.Errorf("encoding equipment for %s: %w", base.ID, err)
	}
	health := base.CurrentHealth
	if health <= 0 || health > base.MaxHealth {
		health = base.MaxHealth
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO combatants
			(id, name, attack, defense, max_health, current_health, speed,
			 experience, currency, equipment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		base.ID, base.Name, base.Attack, base.Defense, base.MaxHealth, health,
		base.Speed, base.Experience, base.Currency, equipment,
	)
	if err != nil {
		return fmt.Errorf("inserting combatant: %w", err)
	}
	return nil
}

// SaveCombatantDelta applies a session's reward outcome to a combatant.
// Currency is floored at zero; health is clamped to [0, max_health];
// experience only ever grows. Looted items are appended to the stored
// equipment list.
//
// Precondition: id must reference an existing combatant.
// Postcondition: Returns nil on success, ErrCombatantNotFound if no row updated.
func (s *CombatantStore) SaveCombatantDelta(ctx context.Context, id string, d reward.Delta) error {
	bonuses := make([]battle.EquipmentBonus, 0, len(d.Loot))
	for _, g := range d.Loot {
		bonuses = append(bonuses, g.Bonus())
	}
	grants, err := json.Marshal(bonuses)
	if err != nil {
		return fmt.Errorf("encoding loot for %s: %w", id, err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE combatants SET
			experience     = experience + $2,
			currency       = GREATEST(0, currency + $3),
			current_health = LEAST(max_health, GREATEST(0, current_health + $4)),
			equipment      = equipment || $5::jsonb,
			updated_at     = NOW()
		WHERE id = $1`,
		id, d.XP, d.Currency, d.Health, grants,
	)
	if err != nil {
		return fmt.Errorf("saving combatant delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCombatantNotFound
	}
	return nil
}
