// Package main provides the battle server binary that hosts the session
// engine: configuration, logging, content catalog, combatant store, and the
// session registry with reward resolution wired to session completion.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/The-Infamous-Aries/Allspark/internal/catalog"
	"github.com/The-Infamous-Aries/Allspark/internal/config"
	"github.com/The-Infamous-Aries/Allspark/internal/game/battle"
	"github.com/The-Infamous-Aries/Allspark/internal/game/dice"
	"github.com/The-Infamous-Aries/Allspark/internal/game/reward"
	"github.com/The-Infamous-Aries/Allspark/internal/game/session"
	"github.com/The-Infamous-Aries/Allspark/internal/observability"
	"github.com/The-Infamous-Aries/Allspark/internal/server"
	"github.com/The-Infamous-Aries/Allspark/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting battle server")

	// Load content
	contentStart := time.Now()
	cat := catalog.New(tierMap(cfg.Reward.TierWeights, logger))
	if err := cat.LoadEnemiesDir(cfg.Content.EnemiesDir); err != nil {
		logger.Fatal("loading enemy catalog", zap.Error(err))
	}
	if err := cat.LoadLootDir(cfg.Content.LootDir); err != nil {
		logger.Fatal("loading loot catalog", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Connect to PostgreSQL for combatant persistence
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	store := postgres.NewCombatantStore(pool.DB())

	// Every roll, battle and loot alike, goes through a logged roller so a
	// disputed outcome can be audited from the debug log.
	rewardSrc := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	resolver := reward.NewResolver(store, cat, tunables(cfg.Reward, logger), rewardSrc, logger)

	bus := session.NewBus(cfg.Battle.EventBuffer, logger)
	registry := session.NewRegistry(session.Options{
		Logger:        logger,
		Bus:           bus,
		RoundDeadline: cfg.Battle.RoundDeadline,
		LobbyTimeout:  cfg.Battle.LobbyTimeout,
		Tuning: battle.Tuning{
			ChargeCap:             cfg.Battle.ChargeCap,
			ChargingVulnerability: cfg.Battle.ChargingVulnerability,
			CritThreshold:         cfg.Battle.CritThreshold,
		},
		NewSource: func() battle.Source {
			return dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
		},
		OnTerminal: func(res session.Result) {
			rewardCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			out, err := resolver.Resolve(rewardCtx, res)
			if err != nil {
				logger.Error("resolving rewards",
					zap.String("session_id", res.SessionID),
					zap.Error(err),
				)
			}
			// The computed outcome stands even when a row failed to persist;
			// subscribers still deserve to see what was awarded.
			reward.PublishOutcome(bus, res, out)
		},
	})

	lifecycle := server.NewLifecycle(logger)

	dbStop := make(chan struct{})
	lifecycle.Add("database", &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				case <-dbStop:
					return nil
				}
			}
		},
		StopFn: func() {
			close(dbStop)
			pool.Close()
		},
	})

	engineStop := make(chan struct{})
	lifecycle.Add("battle-engine", &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					logger.Info("engine status",
						zap.Int("active_sessions", registry.ActiveCount()),
					)
				case <-engineStop:
					return nil
				}
			}
		},
		StopFn: func() {
			close(engineStop)
			logger.Info("engine stopped",
				zap.Int("active_sessions", registry.ActiveCount()),
			)
		},
	})

	logger.Info("battle server ready",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("lifecycle error", zap.Error(err))
	}
}

// tierMap converts config's name-keyed weights into tier-keyed weights.
// Unknown tier names are skipped with a warning rather than failing startup.
func tierMap(weights map[string]float64, logger *zap.Logger) map[battle.Tier]float64 {
	if len(weights) == 0 {
		return nil
	}
	out := make(map[battle.Tier]float64, len(weights))
	for name, w := range weights {
		tier, err := battle.ParseTier(name)
		if err != nil {
			logger.Warn("skipping unknown tier in config", zap.String("tier", name))
			continue
		}
		out[tier] = w
	}
	return out
}

func tunables(cfg config.RewardConfig, logger *zap.Logger) reward.Tunables {
	tun := reward.DefaultTunables()
	tun.BaseDivisor = cfg.BaseDivisor
	tun.PvPWinXP = cfg.PvPWinXP
	tun.PvPWinCurrency = cfg.PvPWinCurrency
	tun.PvPLossXP = cfg.PvPLossXP
	tun.PvPLossCurrency = cfg.PvPLossCurrency
	if m := tierMap(cfg.TierMultipliers, logger); m != nil {
		tun.TierMultiplier = m
	}
	return tun
}
