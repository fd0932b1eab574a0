package main

import (
	"fmt"

	"candycheck/internal/checker"
	"candycheck/internal/config"
	"candycheck/internal/engine"
	"candycheck/internal/logging"
	"candycheck/internal/reward"
	"candycheck/internal/store"
)

// loadConfig reads and validates the configured config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// rewardParams maps the config's rewards section onto engine params.
func rewardParams(cfg *config.Config) reward.Params {
	return reward.Params{
		ImportBonus:          cfg.Rewards.ImportBonus,
		LockCapFactor:        cfg.Rewards.LockCapFactor,
		StreakWindow:         cfg.GetStreakWindow(),
		StreakRateStep:       cfg.Rewards.StreakRateStep,
		StreakRateMax:        cfg.Rewards.StreakRateMax,
		JackpotP:             cfg.Rewards.JackpotProbability,
		Multipliers:          cfg.Rewards.Multipliers,
		IdleWindow:           cfg.GetIdleWindow(),
		DebtRatePerHour:      cfg.Rewards.DebtRatePerHour,
		MaxDebtFraction:      cfg.Rewards.MaxDebtFraction,
		Milestones:           cfg.Rewards.Milestones,
		EscalationThresholds: cfg.Rewards.EscalationThresholds,
	}
}

// runnerConfig maps the config's checker section onto a runner config.
func runnerConfig(cfg *config.Config) checker.RunnerConfig {
	return checker.RunnerConfig{
		Binary:         cfg.Checker.Binary,
		Args:           cfg.Checker.Args,
		Timeout:        cfg.GetCheckerTimeout(),
		MaxOutputBytes: cfg.Checker.MaxOutputBytes,
		Workdir:        cfg.Checker.Workdir,
		Concurrency:    cfg.Checker.Concurrency,
	}
}

// loggingOptions maps the config's logging section onto subsystem
// logging options.
func loggingOptions(cfg *config.Config) logging.Options {
	return logging.Options{
		Enabled:    cfg.Logging.Enabled,
		Dir:        cfg.Logging.Dir,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}
}

// buildEngine assembles the engine and its injected pieces from cfg.
// The returned cleanup closes the outcome log, when one is configured.
func buildEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	opts := engine.Options{
		Params:      rewardParams(cfg),
		Personas:    cfg.Personas,
		Competitors: cfg.Leaderboard.Competitors,
		Checker:     checker.NewRunner(runnerConfig(cfg)),
		Extractor:   checker.NewExtractor(),
	}

	cleanup := func() {}
	if cfg.OutcomeLog.Path != "" {
		outcomes, err := store.OpenOutcomeLog(cfg.OutcomeLog.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open outcome log: %w", err)
		}
		opts.Outcomes = outcomes
		cleanup = func() { _ = outcomes.Close() }
	}

	return engine.New(opts), cleanup, nil
}
