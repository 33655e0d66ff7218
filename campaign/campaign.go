// Package campaign holds the per-scenario decision logic. One Campaign is
// created per run; the Dispatcher routes every tick through its hooks.
package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/racing"
)

// Tag identifies a campaign variant.
type Tag string

const (
	TagURAFinale Tag = "ura_finale"
	TagAoHaru    Tag = "ao_haru"
	TagUnityCup  Tag = "unity_cup"
)

// Step is one dispatcher stage. It reports whether it consumed the tick.
type Step func(ctx context.Context) (bool, error)

// Hook overrides a stage. next is the default implementation of the same
// stage; a hook that wants the default behaviour calls it explicitly.
type Hook func(ctx context.Context, next Step) (bool, error)

// Overrides lists the hooks a variant replaces. A nil hook means the
// default implementation runs unchanged.
type Overrides struct {
	Conditions    Hook
	RaceEvents    Hook
	TrainingEvent Hook
}

// Campaign is one variant with its per-run state.
type Campaign interface {
	Tag() Tag
	Overrides() Overrides
}

// Compose binds hook to its default. Composition order is visible here
// rather than hidden in an embedding chain.
func Compose(hook Hook, def Step) Step {
	if hook == nil {
		return def
	}
	return func(ctx context.Context) (bool, error) {
		return hook(ctx, def)
	}
}

// Deps are what variants need to act.
type Deps struct {
	Bot       *bot.Bot
	Runner    *racing.Runner
	Selection SelectionPolicy
	// TutorialAttempts overrides the variant's tutorial probe budget when > 0.
	TutorialAttempts int
	Logger           *slog.Logger
	Now              func() time.Time
}

func (d Deps) logger(tag Tag) *slog.Logger {
	log := d.Logger
	if log == nil {
		log = d.Bot.Logger()
	}
	return log.With("campaign", string(tag))
}

func (d Deps) selection() SelectionPolicy {
	if d.Selection == (SelectionPolicy{}) {
		return DefaultSelectionPolicy()
	}
	return d.Selection
}

func (d Deps) clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

// New creates the variant named by tag with fresh per-run state.
func New(tag Tag, deps Deps) (Campaign, error) {
	switch tag {
	case TagURAFinale, "":
		return URAFinale{}, nil
	case TagAoHaru:
		return NewAoHaru(deps), nil
	case TagUnityCup:
		return NewUnityCup(deps), nil
	}
	return nil, fmt.Errorf("unknown campaign %q", tag)
}

// URAFinale is the base scenario: every stage runs the default.
type URAFinale struct{}

func (URAFinale) Tag() Tag             { return TagURAFinale }
func (URAFinale) Overrides() Overrides { return Overrides{} }

// State is a read-only view of a variant's per-run flags.
type State struct {
	HasTutorial      bool
	Tutorial         TutorialState
	FirstRacePending bool
	Finals           bool
	Opponent         int
	Override         bool
}

// StateReporter is implemented by variants that carry per-run state.
type StateReporter interface {
	State() State
}
