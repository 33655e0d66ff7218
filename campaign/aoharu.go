package campaign

import (
	"context"
	"log/slog"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/model"
	"github.com/nstehr/trackside/trackside-core/racing"
)

const aoHaruTutorialAttempts = 3

// AoHaru is the team-race scenario. Its training events may open on a
// one-off tutorial, and team races are picked from a list of opponents by
// prediction quality.
type AoHaru struct {
	bot      *bot.Bot
	runner   *racing.Runner
	selector *RaceSelector
	tutorial *TutorialGate
	log      *slog.Logger

	firstRace bool
}

func NewAoHaru(deps Deps) *AoHaru {
	attempts := aoHaruTutorialAttempts
	if deps.TutorialAttempts > 0 {
		attempts = deps.TutorialAttempts
	}
	return &AoHaru{
		bot:    deps.Bot,
		runner: deps.Runner,
		selector: NewRaceSelector(deps.Bot, SelectionTemplates{
			Final:      bot.TemplateAoHaruFinalRace,
			Option:     bot.TemplateAoHaruRaceOption,
			Select:     bot.TemplateAoHaruSelectRace,
			Cancel:     bot.TemplateCancel,
			Prediction: bot.TemplateRaceDoubleCircle,
		}, deps.selection()),
		tutorial:  NewTutorialGate(deps.Bot, bot.TemplateAoHaruTutorialHeader, attempts, 2, model.Rect{}),
		log:       deps.logger(TagAoHaru),
		firstRace: true,
	}
}

func (a *AoHaru) Tag() Tag { return TagAoHaru }

func (a *AoHaru) Overrides() Overrides {
	return Overrides{
		TrainingEvent: a.trainingEvent,
		RaceEvents:    a.raceEvents,
	}
}

// Tutorial exposes the gate so callers can report its state.
func (a *AoHaru) Tutorial() *TutorialGate { return a.tutorial }

// FirstRacePending reports whether the initial team race is still ahead.
func (a *AoHaru) FirstRacePending() bool { return a.firstRace }

func (a *AoHaru) trainingEvent(ctx context.Context, next Step) (bool, error) {
	active, err := trainingEventActive(ctx, a.bot)
	if err != nil || !active {
		return false, err
	}
	return a.tutorial.Handle(ctx, next)
}

func (a *AoHaru) raceEvents(ctx context.Context, next Step) (bool, error) {
	if a.firstRace {
		found, err := a.bot.Found(ctx, bot.TemplateAoHaruInitialTeam, 1)
		if err != nil {
			return false, err
		}
		if found {
			if _, err := a.bot.Tap(ctx, bot.TemplateRaceAcceptTrophy); err != nil {
				return false, err
			}
			return true, a.teamRace(ctx)
		}
	}

	found, err := a.bot.Found(ctx, bot.TemplateAoHaruRaceHeader, 1)
	if err != nil {
		return false, err
	}
	if found {
		return true, a.teamRace(ctx)
	}
	return next(ctx)
}

func (a *AoHaru) teamRace(ctx context.Context) error {
	a.log.Info("handling team race")
	a.firstRace = false

	if _, err := a.bot.Tap(ctx, bot.TemplateAoHaruRace); err != nil {
		return err
	}
	a.bot.Wait(7)

	sel, err := a.selector.Select(ctx)
	if err != nil {
		return err
	}
	a.log.Info("team race opponent chosen", "tier", sel.Tier.String(), "option", sel.Index+1, "double_circles", sel.DoubleCircles)
	a.bot.Wait(7)

	ran, err := a.runner.Run(ctx, bot.TemplateAoHaruRunRace)
	if err != nil {
		return err
	}
	if !ran {
		a.log.Warn("team race never started")
	}
	return nil
}

func (a *AoHaru) State() State {
	return State{
		HasTutorial:      true,
		Tutorial:         a.tutorial.State(),
		FirstRacePending: a.firstRace,
		Opponent:         -1,
	}
}
