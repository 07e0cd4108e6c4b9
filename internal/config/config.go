// Package config loads layered configuration: built-in defaults, then
// an optional YAML file, then MEMODECK_* environment variables, then
// command-line flags. Every scheduling constant is deliberately a
// config knob rather than a compiled-in value.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/colmryan/memodeck/internal/domain"
	"github.com/colmryan/memodeck/internal/scheduler"
)

const envPrefix = "MEMODECK_"

// Config is the full application configuration.
type Config struct {
	Database  Database  `koanf:"database"`
	Log       Log       `koanf:"log"`
	Scheduler Scheduler `koanf:"scheduler"`
	Import    Import    `koanf:"import"`
}

// Database configures the sqlite store.
type Database struct {
	Path string `koanf:"path" validate:"required"`
}

// Log configures logging.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// Scheduler holds the spaced-repetition tunables.
type Scheduler struct {
	DefaultEase float64 `koanf:"default_ease" validate:"gt=1"`
	MinEase     float64 `koanf:"min_ease"     validate:"gt=1"`
	MaxEase     float64 `koanf:"max_ease"     validate:"gtefield=MinEase"`

	FailEaseDelta float64 `koanf:"fail_ease_delta" validate:"lte=0"`
	HardEaseDelta float64 `koanf:"hard_ease_delta" validate:"lte=0"`
	GoodEaseDelta float64 `koanf:"good_ease_delta"`
	EasyEaseDelta float64 `koanf:"easy_ease_delta" validate:"gte=0"`

	FirstIntervalHard int `koanf:"first_interval_hard" validate:"min=1"`
	FirstIntervalGood int `koanf:"first_interval_good" validate:"min=1"`
	FirstIntervalEasy int `koanf:"first_interval_easy" validate:"min=1"`

	RelearnInterval int     `koanf:"relearn_interval" validate:"min=0"`
	HardMultiplier  float64 `koanf:"hard_multiplier"  validate:"gt=0"`
	EasyBonus       float64 `koanf:"easy_bonus"       validate:"gt=0"`
	MaxIntervalDays int     `koanf:"max_interval_days" validate:"min=1"`
}

// Import configures source reconciliation.
type Import struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
	Prune    bool   `koanf:"prune"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	p := scheduler.DefaultParams()
	return Config{
		Database: Database{Path: "memodeck.db"},
		Log:      Log{Level: "info"},
		Scheduler: Scheduler{
			DefaultEase:       p.DefaultEase,
			MinEase:           p.MinEase,
			MaxEase:           p.MaxEase,
			FailEaseDelta:     p.EaseDelta[domain.GradeFail],
			HardEaseDelta:     p.EaseDelta[domain.GradeHard],
			GoodEaseDelta:     p.EaseDelta[domain.GradeGood],
			EasyEaseDelta:     p.EaseDelta[domain.GradeEasy],
			FirstIntervalHard: p.FirstInterval[domain.GradeHard],
			FirstIntervalGood: p.FirstInterval[domain.GradeGood],
			FirstIntervalEasy: p.FirstInterval[domain.GradeEasy],
			RelearnInterval:   p.RelearnInterval,
			HardMultiplier:    p.HardMultiplier,
			EasyBonus:         p.EasyBonus,
			MaxIntervalDays:   p.MaxInterval,
		},
		Import: Import{ReposDir: "repos"},
	}
}

// Load merges defaults, the YAML file at path (skipped when absent),
// environment variables and flags, then validates the result.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	// MEMODECK_DATABASE_PATH -> database.path
	envProvider := env.Provider(envPrefix, ".", func(key string) string {
		key = strings.TrimPrefix(key, envPrefix)
		return strings.Replace(strings.ToLower(key), "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SchedulerParams converts the config knobs into scheduler parameters.
func (c Config) SchedulerParams() *scheduler.Params {
	return &scheduler.Params{
		DefaultEase: c.Scheduler.DefaultEase,
		MinEase:     c.Scheduler.MinEase,
		MaxEase:     c.Scheduler.MaxEase,
		EaseDelta: map[domain.Grade]float64{
			domain.GradeFail: c.Scheduler.FailEaseDelta,
			domain.GradeHard: c.Scheduler.HardEaseDelta,
			domain.GradeGood: c.Scheduler.GoodEaseDelta,
			domain.GradeEasy: c.Scheduler.EasyEaseDelta,
		},
		FirstInterval: map[domain.Grade]int{
			domain.GradeHard: c.Scheduler.FirstIntervalHard,
			domain.GradeGood: c.Scheduler.FirstIntervalGood,
			domain.GradeEasy: c.Scheduler.FirstIntervalEasy,
		},
		RelearnInterval: c.Scheduler.RelearnInterval,
		HardMultiplier:  c.Scheduler.HardMultiplier,
		EasyBonus:       c.Scheduler.EasyBonus,
		MaxInterval:     c.Scheduler.MaxIntervalDays,
	}
}
