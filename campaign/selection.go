package campaign

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/model"
)

// SelectionPolicy tunes how a race is picked from a list of options.
type SelectionPolicy struct {
	// RequiredDoubleCircles is how many double-circle predictions make an
	// option good enough to commit to.
	RequiredDoubleCircles int `yaml:"requiredDoubleCircles" env:"REQUIRED_DOUBLE_CIRCLES"`
	// PrimaryScanLimit caps the options inspected in the first pass. Zero
	// inspects every option.
	PrimaryScanLimit int `yaml:"primaryScanLimit" env:"PRIMARY_SCAN_LIMIT"`
	// FallbackIndex is the zero-based option re-inspected after the first
	// pass finds nothing.
	FallbackIndex int `yaml:"fallbackIndex" env:"FALLBACK_INDEX"`
	// DefaultIndex is committed when both passes fail.
	DefaultIndex int `yaml:"defaultIndex" env:"DEFAULT_INDEX"`
}

func DefaultSelectionPolicy() SelectionPolicy {
	return SelectionPolicy{RequiredDoubleCircles: 3, FallbackIndex: 1, DefaultIndex: 1}
}

// SelectionTier records which rule produced a choice.
type SelectionTier int

const (
	TierFinal SelectionTier = iota
	TierPrimary
	TierSecondary
	TierDefault
)

func (t SelectionTier) String() string {
	switch t {
	case TierFinal:
		return "final"
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierDefault:
		return "default"
	}
	return "unknown"
}

// Selection is the outcome of one RaceSelector.Select call.
type Selection struct {
	Tier          SelectionTier
	Index         int
	DoubleCircles int
}

// SelectionTemplates names the screens a selector works with.
type SelectionTemplates struct {
	Final      string
	Option     string
	Select     string
	Cancel     string
	Prediction string
}

// RaceSelector picks one race out of a scenario's option list. Every pass
// re-enumerates the options so taps always follow a fresh observation.
type RaceSelector struct {
	bot       *bot.Bot
	log       *slog.Logger
	policy    SelectionPolicy
	templates SelectionTemplates
}

func NewRaceSelector(b *bot.Bot, templates SelectionTemplates, policy SelectionPolicy) *RaceSelector {
	if policy.RequiredDoubleCircles < 1 {
		policy.RequiredDoubleCircles = 1
	}
	return &RaceSelector{bot: b, log: b.Logger(), policy: policy, templates: templates}
}

// Select commits to a race and reports which tier chose it:
//  1. the final race, when shown, is taken unconditionally;
//  2. the first option with enough double circles;
//  3. the fallback option, re-inspected;
//  4. the default option.
func (s *RaceSelector) Select(ctx context.Context) (Selection, error) {
	if s.templates.Final != "" {
		final, err := s.bot.FindAndAct(ctx, s.templates.Final, 10)
		if err != nil {
			return Selection{}, err
		}
		if final {
			s.log.Info("final race shown, selecting it")
			if _, err := s.bot.FindAndAct(ctx, s.templates.Select, 3); err != nil {
				return Selection{}, err
			}
			return Selection{Tier: TierFinal}, nil
		}
	}

	options, err := s.options(ctx)
	if err != nil {
		return Selection{}, err
	}
	limit := len(options)
	if s.policy.PrimaryScanLimit > 0 && s.policy.PrimaryScanLimit < limit {
		limit = s.policy.PrimaryScanLimit
	}

	for i := 0; i < limit; i++ {
		if i > 0 {
			if options, err = s.options(ctx); err != nil {
				return Selection{}, err
			}
		}
		sel, ok, err := s.inspect(ctx, options, i, TierPrimary)
		if err != nil || ok {
			return sel, err
		}
	}

	if options, err = s.options(ctx); err != nil {
		return Selection{}, err
	}
	if s.policy.FallbackIndex < len(options) {
		sel, ok, err := s.inspect(ctx, options, s.policy.FallbackIndex, TierSecondary)
		if err != nil || ok {
			return sel, err
		}
		if options, err = s.options(ctx); err != nil {
			return Selection{}, err
		}
	}

	s.log.Info("no option had enough double circles, taking default", "option", s.policy.DefaultIndex+1)
	if err := s.bot.TapNth(ctx, options, s.policy.DefaultIndex, "race option"); err != nil {
		return Selection{}, err
	}
	for _, tries := range []int{30, 30} {
		if _, err := s.bot.FindAndAct(ctx, s.templates.Select, tries); err != nil {
			return Selection{}, err
		}
	}
	return Selection{Tier: TierDefault, Index: s.policy.DefaultIndex}, nil
}

func (s *RaceSelector) options(ctx context.Context) ([]model.Location, error) {
	options, err := s.bot.FindAll(ctx, s.templates.Option, model.Rect{})
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("race options: %w", bot.ErrCandidateOutOfRange)
	}
	return options, nil
}

// inspect opens option index, counts its double circles and either commits
// to it or backs out to the list.
func (s *RaceSelector) inspect(ctx context.Context, options []model.Location, index int, tier SelectionTier) (Selection, bool, error) {
	if err := s.bot.TapNth(ctx, options, index, "race option"); err != nil {
		return Selection{}, false, err
	}
	if _, err := s.bot.FindAndAct(ctx, s.templates.Select, 10); err != nil {
		return Selection{}, false, err
	}
	s.bot.Wait(2)

	count, err := s.bot.Count(ctx, s.templates.Prediction, s.bot.Middle())
	if err != nil {
		return Selection{}, false, err
	}
	s.log.Debug("inspected race option", "option", index+1, "double_circles", count, "tier", tier.String())

	if count >= s.policy.RequiredDoubleCircles {
		s.log.Info("race option selected", "option", index+1, "double_circles", count, "tier", tier.String())
		if _, err := s.bot.FindAndAct(ctx, s.templates.Select, 10); err != nil {
			return Selection{}, false, err
		}
		return Selection{Tier: tier, Index: index, DoubleCircles: count}, true, nil
	}

	if _, err := s.bot.FindAndAct(ctx, s.templates.Cancel, 10); err != nil {
		return Selection{}, false, err
	}
	s.bot.Wait(1)
	return Selection{}, false, nil
}
