// Package config loads and validates candycheck configuration.
//
// Configuration lives in a YAML file (default .candycheck/config.yaml).
// A missing file yields the built-in defaults; a malformed file is an
// error. A handful of CANDYCHECK_* environment variables override the
// file for the settings that change most often between machines.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no --config flag is given.
const DefaultPath = ".candycheck/config.yaml"

// Config holds all candycheck configuration.
type Config struct {
	Checker     CheckerConfig     `yaml:"checker"`
	Rewards     RewardsConfig     `yaml:"rewards"`
	Personas    []string          `yaml:"personas"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	OutcomeLog  OutcomeLogConfig  `yaml:"outcome_log"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CheckerConfig controls how the external Python checker is invoked.
type CheckerConfig struct {
	Binary         string   `yaml:"binary"`
	Args           []string `yaml:"args"`
	Timeout        string   `yaml:"timeout"`
	MaxOutputBytes int64    `yaml:"max_output_bytes"`
	Workdir        string   `yaml:"workdir,omitempty"`
	Concurrency    int      `yaml:"concurrency"`
}

// RewardsConfig tunes the lollipop economy. Durations are strings in
// time.ParseDuration syntax; use the Get helpers to read them.
type RewardsConfig struct {
	ImportBonus          int     `yaml:"import_bonus"`
	LockCapFactor        int     `yaml:"lock_cap_factor"`
	StreakWindow         string  `yaml:"streak_window"`
	StreakRateStep       float64 `yaml:"streak_rate_step"`
	StreakRateMax        float64 `yaml:"streak_rate_max"`
	JackpotProbability   float64 `yaml:"jackpot_probability"`
	Multipliers          []int   `yaml:"multipliers"`
	IdleWindow           string  `yaml:"idle_window"`
	DebtRatePerHour      float64 `yaml:"debt_rate_per_hour"`
	MaxDebtFraction      float64 `yaml:"max_debt_fraction"`
	Milestones           []int   `yaml:"milestones"`
	EscalationThresholds []int   `yaml:"escalation_thresholds"`
}

// LeaderboardConfig seeds the simulated competition.
type LeaderboardConfig struct {
	Competitors []string `yaml:"competitors"`
}

// OutcomeLogConfig controls persona outcome persistence. An empty path
// disables the log.
type OutcomeLogConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls per-category file logging.
type LoggingConfig struct {
	Enabled    bool            `yaml:"enabled"`
	Dir        string          `yaml:"dir"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultConfig returns the configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Checker: CheckerConfig{
			Binary:         "pyrefly",
			Args:           []string{"check"},
			Timeout:        "30s",
			MaxOutputBytes: 1 << 20,
			Concurrency:    4,
		},
		Rewards: RewardsConfig{
			ImportBonus:          1,
			LockCapFactor:        3,
			StreakWindow:         "10m",
			StreakRateStep:       0.10,
			StreakRateMax:        0.50,
			JackpotProbability:   0.10,
			Multipliers:          []int{2, 2, 2, 3},
			IdleWindow:           "30m",
			DebtRatePerHour:      0.05,
			MaxDebtFraction:      0.50,
			Milestones:           []int{10, 50, 100, 250, 500, 1000},
			EscalationThresholds: []int{5, 10, 15, 20},
		},
		Personas: []string{
			"desperate_craver",
			"lollipop_addict",
			"dopamine_seeker",
			"sugar_rusher",
			"candy_collector",
		},
		Leaderboard: LeaderboardConfig{
			Competitors: []string{
				"Mystery_Coder_X",
				"Code_Ninja_47",
				"Anonymous_Fixer",
			},
		},
		OutcomeLog: OutcomeLogConfig{},
		Logging: LoggingConfig{
			Enabled: false,
			Dir:     ".candycheck/logs",
			Level:   "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if bin := os.Getenv("CANDYCHECK_CHECKER_BINARY"); bin != "" {
		c.Checker.Binary = bin
	}
	if timeout := os.Getenv("CANDYCHECK_CHECKER_TIMEOUT"); timeout != "" {
		c.Checker.Timeout = timeout
	}
	if path := os.Getenv("CANDYCHECK_OUTCOME_DB"); path != "" {
		c.OutcomeLog.Path = path
	}
	if level := os.Getenv("CANDYCHECK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetCheckerTimeout returns the checker timeout as a duration.
func (c *Config) GetCheckerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Checker.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetStreakWindow returns the streak window as a duration.
func (c *Config) GetStreakWindow() time.Duration {
	d, err := time.ParseDuration(c.Rewards.StreakWindow)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// GetIdleWindow returns the idle window as a duration.
func (c *Config) GetIdleWindow() time.Duration {
	d, err := time.ParseDuration(c.Rewards.IdleWindow)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Checker.Binary == "" {
		return fmt.Errorf("checker.binary must not be empty")
	}
	if c.Checker.MaxOutputBytes <= 0 {
		return fmt.Errorf("checker.max_output_bytes must be positive, got %d", c.Checker.MaxOutputBytes)
	}
	if c.Checker.Concurrency < 0 {
		return fmt.Errorf("checker.concurrency must not be negative, got %d", c.Checker.Concurrency)
	}

	r := c.Rewards
	if r.ImportBonus < 0 {
		return fmt.Errorf("rewards.import_bonus must not be negative, got %d", r.ImportBonus)
	}
	if r.LockCapFactor < 1 {
		return fmt.Errorf("rewards.lock_cap_factor must be at least 1, got %d", r.LockCapFactor)
	}
	if r.StreakRateStep < 0 || r.StreakRateMax < 0 {
		return fmt.Errorf("rewards streak rates must not be negative")
	}
	if r.JackpotProbability < 0 || r.JackpotProbability > 1 {
		return fmt.Errorf("rewards.jackpot_probability must be in [0,1], got %g", r.JackpotProbability)
	}
	if len(r.Multipliers) == 0 {
		return fmt.Errorf("rewards.multipliers must not be empty")
	}
	for _, m := range r.Multipliers {
		if m < 1 {
			return fmt.Errorf("rewards.multipliers entries must be at least 1, got %d", m)
		}
	}
	if r.DebtRatePerHour < 0 {
		return fmt.Errorf("rewards.debt_rate_per_hour must not be negative, got %g", r.DebtRatePerHour)
	}
	if r.MaxDebtFraction < 0 || r.MaxDebtFraction > 1 {
		return fmt.Errorf("rewards.max_debt_fraction must be in [0,1], got %g", r.MaxDebtFraction)
	}

	if len(c.Personas) == 0 {
		return fmt.Errorf("personas must not be empty")
	}
	if len(c.Leaderboard.Competitors) == 0 {
		return fmt.Errorf("leaderboard.competitors must not be empty")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	return nil
}
