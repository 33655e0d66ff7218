package campaign

import (
	"context"
	"log/slog"
	"time"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/model"
	"github.com/nstehr/trackside/trackside-core/racing"
)

const (
	unityCupOpponents  = 3
	unityCupRaceBudget = 30 * time.Second
)

// UnityCup is the best-of-three opponent scenario. Opponents are tried in
// order until one shows enough double circles; after every opponent has
// been rejected the second one is taken regardless.
type UnityCup struct {
	bot      *bot.Bot
	runner   *racing.Runner
	policy   SelectionPolicy
	tutorial *TutorialGate
	log      *slog.Logger
	now      func() time.Time

	finals   bool
	opponent int
	override bool
}

func NewUnityCup(deps Deps) *UnityCup {
	attempts := 1
	if deps.TutorialAttempts > 0 {
		attempts = deps.TutorialAttempts
	}
	policy := deps.selection()
	if policy.RequiredDoubleCircles < 1 {
		policy.RequiredDoubleCircles = 1
	}
	if policy.FallbackIndex < 0 || policy.FallbackIndex >= unityCupOpponents {
		policy.FallbackIndex = 1
	}
	return &UnityCup{
		bot:      deps.Bot,
		runner:   deps.Runner,
		policy:   policy,
		tutorial: NewTutorialGate(deps.Bot, bot.TemplateUnityCupTutorialHeader, attempts, 1, deps.Bot.TopHalf()),
		log:      deps.logger(TagUnityCup),
		now:      deps.clock(),
		opponent: -1,
	}
}

func (u *UnityCup) Tag() Tag { return TagUnityCup }

func (u *UnityCup) Overrides() Overrides {
	return Overrides{
		Conditions: func(ctx context.Context, _ Step) (bool, error) {
			return u.race(ctx)
		},
		RaceEvents: func(ctx context.Context, next Step) (bool, error) {
			handled, err := u.race(ctx)
			if err != nil || handled {
				return handled, err
			}
			return next(ctx)
		},
		TrainingEvent: func(ctx context.Context, next Step) (bool, error) {
			active, err := trainingEventActive(ctx, u.bot)
			if err != nil || !active {
				return false, err
			}
			return u.tutorial.Handle(ctx, next)
		},
	}
}

func (u *UnityCup) Tutorial() *TutorialGate { return u.tutorial }

// Opponent returns the zero-based opponent last picked, or -1.
func (u *UnityCup) Opponent() int { return u.opponent }

func (u *UnityCup) Finals() bool { return u.finals }

// OverrideActive reports whether every opponent has been rejected and the
// fallback opponent is being accepted unconditionally.
func (u *UnityCup) OverrideActive() bool { return u.override }

func (u *UnityCup) onScreen(ctx context.Context) (bool, error) {
	for _, t := range []string{bot.TemplateUnityCupRace, bot.TemplateUnityCupFinalRace, bot.TemplateUnityCupRaceManual} {
		found, err := u.bot.Found(ctx, t, 1, bot.InRegion(u.bot.BottomHalf()))
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

// race drives the cup screens until the race end logo is dismissed or the
// time budget runs out. Each pass handles exactly one screen.
func (u *UnityCup) race(ctx context.Context) (bool, error) {
	present, err := u.onScreen(ctx)
	if err != nil || !present {
		return false, err
	}
	u.log.Info("handling unity cup race")

	deadline := u.now().Add(unityCupRaceBudget)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		done, err := u.step(ctx, deadline)
		if err != nil {
			return false, err
		}
		switch done {
		case stepFinished:
			u.log.Info("unity cup race completed")
			return true, nil
		case stepAbort:
			return false, nil
		}
	}
}

type stepResult int

const (
	stepContinue stepResult = iota
	stepFinished
	stepAbort
)

func (u *UnityCup) tapOnce(ctx context.Context, template string, opts ...bot.ActOption) (bool, error) {
	return u.bot.FindAndAct(ctx, template, 1, opts...)
}

func (u *UnityCup) step(ctx context.Context, deadline time.Time) (stepResult, error) {
	if handled, err := u.dialogs(ctx); err != nil || handled {
		return stepContinue, err
	}

	if ok, err := u.tapOnce(ctx, bot.TemplateUnityCupRace); err != nil || ok {
		if ok {
			u.log.Debug("opening opponent selection")
			u.opponent = -1
			u.override = false
		}
		return stepContinue, err
	}
	if ok, err := u.tapOnce(ctx, bot.TemplateUnityCupFinalRace); err != nil || ok {
		if ok {
			u.log.Info("final race detected")
			u.finals = true
		}
		return stepContinue, err
	}

	if found, err := u.bot.Found(ctx, bot.TemplateUnityCupSelectOpponent, 1); err != nil || found {
		if err != nil {
			return stepContinue, err
		}
		return u.selectOpponent(ctx)
	}

	if found, err := u.bot.Found(ctx, bot.TemplateUnityCupViewResultsLock, 1); err != nil || found {
		if err != nil {
			return stepContinue, err
		}
		u.log.Debug("results locked, running race manually")
		if _, err := u.runner.Run(ctx, bot.TemplateUnityCupRaceManual); err != nil {
			return stepContinue, err
		}
		return stepContinue, nil
	}

	if ok, err := u.tapOnce(ctx, bot.TemplateUnityCupSeeAllResults); err != nil || ok {
		return stepContinue, err
	}

	end, err := u.bot.Found(ctx, bot.TemplateUnityCupRaceEndLogo, 1)
	if err != nil {
		return stepContinue, err
	}
	if end {
		if ok, err := u.tapOnce(ctx, bot.TemplateNext); err != nil || ok {
			if ok {
				return stepFinished, nil
			}
			return stepContinue, err
		}
	}

	for _, t := range []string{bot.TemplateNext, bot.TemplateSkip, bot.TemplateNextRaceEnd} {
		if ok, err := u.tapOnce(ctx, t); err != nil || ok {
			return stepContinue, err
		}
	}

	if u.now().After(deadline) {
		u.log.Warn("unity cup race took too long, giving up", "budget", unityCupRaceBudget)
		return stepAbort, nil
	}

	// Nothing recognised; tap through intermediate screens.
	for i := 0; i < 3; i++ {
		if err := u.bot.TapLocation(ctx, model.Location{X: 350, Y: 750}); err != nil {
			return stepContinue, err
		}
	}
	return stepContinue, nil
}

func (u *UnityCup) selectOpponent(ctx context.Context) (stepResult, error) {
	opponents, err := u.bot.FindAll(ctx, bot.TemplateUnityCupOpponentLaurel, model.Rect{})
	if err != nil {
		return stepContinue, err
	}
	if len(opponents) != unityCupOpponents {
		u.log.Error("could not see every opponent", "found", len(opponents), "want", unityCupOpponents)
		return stepAbort, nil
	}

	if u.opponent >= unityCupOpponents-1 {
		u.log.Warn("no opponent had enough double circles, falling back", "opponent", u.policy.FallbackIndex+1)
		u.opponent = u.policy.FallbackIndex
		u.override = true
	} else {
		u.opponent++
	}
	if err := u.bot.TapNth(ctx, opponents, u.opponent, "opponent"); err != nil {
		return stepContinue, err
	}
	if _, err := u.bot.Tap(ctx, bot.TemplateUnityCupSelectOpponent); err != nil {
		return stepContinue, err
	}
	return stepContinue, nil
}

// dialogs closes the auto-fill prompt and answers the opponent
// confirmation: accept in the finals, under override, or when the
// predictions are good enough.
func (u *UnityCup) dialogs(ctx context.Context) (bool, error) {
	autoFill, err := u.bot.Found(ctx, bot.TemplateUnityCupAutoFill, 1)
	if err != nil {
		return false, err
	}
	if autoFill {
		if _, err := u.bot.Tap(ctx, bot.TemplateClose); err != nil {
			return false, err
		}
		u.bot.Wait(0.5)
		return true, nil
	}

	confirm, err := u.bot.Found(ctx, bot.TemplateUnityCupConfirmation, 1)
	if err != nil || !confirm {
		return false, err
	}
	accept := u.finals || u.override
	if !accept {
		count, err := u.bot.Count(ctx, bot.TemplateRaceDoubleCircle, u.bot.Middle())
		if err != nil {
			return false, err
		}
		accept = count >= u.policy.RequiredDoubleCircles
		u.log.Info("opponent predictions", "opponent", u.opponent+1, "double_circles", count, "accept", accept)
	}
	answer := bot.TemplateClose
	if accept {
		answer = bot.TemplateOK
	}
	if _, err := u.bot.Tap(ctx, answer); err != nil {
		return false, err
	}
	u.bot.Wait(0.5)
	return true, nil
}

func (u *UnityCup) State() State {
	return State{
		HasTutorial: true,
		Tutorial:    u.tutorial.State(),
		Finals:      u.finals,
		Opponent:    u.opponent,
		Override:    u.override,
	}
}
