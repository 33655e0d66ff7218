// Package config loads the sidecar configuration from a YAML file and
// TRACKSIDE_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nstehr/trackside/trackside-core/campaign"
	"github.com/nstehr/trackside/trackside-core/racing"
)

const EnvPrefix = "TRACKSIDE_"

// Config represents the complete sidecar configuration.
// Maps config file fields through YAML tags; env tags override them.
type Config struct {
	Socket   string `yaml:"socket"   env:"SOCKET"`
	Database string `yaml:"database" env:"DATABASE"`
	Campaign string `yaml:"campaign" env:"CAMPAIGN"`
	Debug    bool   `yaml:"debug"    env:"DEBUG"`

	Screen struct {
		Width  int `yaml:"width"  env:"WIDTH"`
		Height int `yaml:"height" env:"HEIGHT"`
	} `yaml:"screen" envPrefix:"SCREEN_"`

	Timing Timing `yaml:"timing" envPrefix:"TIMING_"`

	Racing Racing `yaml:"racing" envPrefix:"RACING_"`

	Selection campaign.SelectionPolicy `yaml:"selection" envPrefix:"SELECTION_"`

	Tutorial struct {
		// Attempts overrides each campaign's tutorial probe budget when > 0.
		Attempts int `yaml:"attempts" env:"ATTEMPTS"`
	} `yaml:"tutorial" envPrefix:"TUTORIAL_"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"ENABLED"`
		Addr    string `yaml:"addr"    env:"ADDR"`
	} `yaml:"metrics" envPrefix:"METRICS_"`
}

type Timing struct {
	DefaultTries    int           `yaml:"defaultTries"    env:"DEFAULT_TRIES"`
	PerceptionTries int           `yaml:"perceptionTries" env:"PERCEPTION_TRIES"`
	WaitBetween     time.Duration `yaml:"waitBetween"     env:"WAIT_BETWEEN"`
	TapSettle       time.Duration `yaml:"tapSettle"       env:"TAP_SETTLE"`
	MinConfidence   float64       `yaml:"minConfidence"   env:"MIN_CONFIDENCE"`
	IdleWait        float64       `yaml:"idleWait"        env:"IDLE_WAIT"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"  env:"REQUEST_TIMEOUT"`
	MaxTicks        int           `yaml:"maxTicks"        env:"MAX_TICKS"`
}

type Racing struct {
	EnablePlan              bool     `yaml:"enablePlan"              env:"ENABLE_PLAN"`
	RaceWithoutPlan         bool     `yaml:"raceWithoutPlan"         env:"RACE_WITHOUT_PLAN"`
	LookAheadDays           int      `yaml:"lookAheadDays"           env:"LOOK_AHEAD_DAYS"`
	MinimumQualityThreshold float64  `yaml:"minimumQualityThreshold" env:"MINIMUM_QUALITY_THRESHOLD"`
	TimeDecayFactor         float64  `yaml:"timeDecayFactor"         env:"TIME_DECAY_FACTOR"`
	ImprovementThreshold    float64  `yaml:"improvementThreshold"    env:"IMPROVEMENT_THRESHOLD"`
	MinFans                 int      `yaml:"minFans"                 env:"MIN_FANS"`
	Terrain                 string   `yaml:"terrain"                 env:"TERRAIN"`
	Grades                  []string `yaml:"grades"                  env:"GRADES"`
	Distances               []string `yaml:"distances"               env:"DISTANCES"`
	Condition               string   `yaml:"condition"               env:"CONDITION"`
}

// Scheduler returns the scheduler tuning.
func (r Racing) Scheduler() racing.Config {
	return racing.Config{
		LookAheadDays:           r.LookAheadDays,
		MinimumQualityThreshold: r.MinimumQualityThreshold,
		TimeDecayFactor:         r.TimeDecayFactor,
		ImprovementThreshold:    r.ImprovementThreshold,
	}
}

// Preferences returns the race filter preferences.
func (r Racing) Preferences() racing.Preferences {
	return racing.Preferences{
		MinFans:   r.MinFans,
		Terrain:   r.Terrain,
		Grades:    r.Grades,
		Distances: r.Distances,
		Condition: r.Condition,
	}
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.Socket = "/tmp/trackside.sock"
	cfg.Database = "trackside.db"
	cfg.Campaign = string(campaign.TagURAFinale)
	cfg.Screen.Width = 1080
	cfg.Screen.Height = 1920
	cfg.Timing = Timing{
		DefaultTries:    3,
		PerceptionTries: 1,
		WaitBetween:     500 * time.Millisecond,
		TapSettle:       200 * time.Millisecond,
		MinConfidence:   0.8,
		IdleWait:        1,
		RequestTimeout:  10 * time.Second,
	}
	cfg.Racing = Racing{
		EnablePlan:              true,
		Terrain:                 "Any",
		Grades:                  []string{"G1", "G2", "G3"},
		LookAheadDays:           10,
		MinimumQualityThreshold: 70,
		TimeDecayFactor:         0.8,
		ImprovementThreshold:    25,
	}
	cfg.Selection = campaign.DefaultSelectionPolicy()
	cfg.Metrics.Addr = ":9108"
	return cfg
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config YAML: %w", err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate clamps numeric settings to their valid ranges and rejects
// settings that cannot be clamped.
func (c *Config) Validate() error {
	var errs []error
	if c.Socket == "" {
		errs = append(errs, errors.New("socket path is required"))
	}
	switch campaign.Tag(c.Campaign) {
	case campaign.TagURAFinale, campaign.TagAoHaru, campaign.TagUnityCup:
	default:
		errs = append(errs, fmt.Errorf("unknown campaign %q", c.Campaign))
	}

	c.Screen.Width = max(c.Screen.Width, 1)
	c.Screen.Height = max(c.Screen.Height, 1)

	c.Timing.DefaultTries = max(c.Timing.DefaultTries, 1)
	c.Timing.PerceptionTries = max(c.Timing.PerceptionTries, 1)
	c.Timing.WaitBetween = max(c.Timing.WaitBetween, 0)
	c.Timing.MinConfidence = clamp(c.Timing.MinConfidence, 0, 1)
	c.Timing.IdleWait = max(c.Timing.IdleWait, 0)
	c.Timing.MaxTicks = max(c.Timing.MaxTicks, 0)

	c.Racing.LookAheadDays = max(c.Racing.LookAheadDays, 0)
	c.Racing.MinimumQualityThreshold = clamp(c.Racing.MinimumQualityThreshold, 0, 100)
	c.Racing.TimeDecayFactor = clamp(c.Racing.TimeDecayFactor, 0, 1)
	c.Racing.ImprovementThreshold = max(c.Racing.ImprovementThreshold, 0)
	c.Racing.MinFans = max(c.Racing.MinFans, 0)

	c.Selection.RequiredDoubleCircles = max(c.Selection.RequiredDoubleCircles, 1)
	c.Selection.PrimaryScanLimit = max(c.Selection.PrimaryScanLimit, 0)
	c.Selection.FallbackIndex = max(c.Selection.FallbackIndex, 0)
	c.Selection.DefaultIndex = max(c.Selection.DefaultIndex, 0)

	c.Tutorial.Attempts = max(c.Tutorial.Attempts, 0)

	if _, err := racing.CompileFilter(c.Racing.Preferences()); err != nil {
		errs = append(errs, fmt.Errorf("racing filter: %w", err))
	}
	return errors.Join(errs...)
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
